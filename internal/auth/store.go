package auth

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownToken       = errors.New("unknown token")
	ErrUsernameTaken      = errors.New("username taken")
)

// Store holds user accounts and their opaque API tokens.
type Store interface {
	// CreateUser registers an account with a bcrypt-hashed password.
	CreateUser(username, password string) (Identity, error)
	// ObtainToken verifies credentials and returns the account's token,
	// minting one on first use.
	ObtainToken(username, password string) (string, error)
	// LookupToken resolves a token key to its user. Unknown keys return
	// ErrUnknownToken.
	LookupToken(key string) (Identity, error)
}

type memUser struct {
	id   int64
	name string
	hash []byte
}

type InMemoryStore struct {
	mu      sync.Mutex
	seq     int64
	byName  map[string]*memUser
	tokens  map[string]int64 // key -> user id
	byOwner map[int64]string // user id -> key
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byName:  make(map[string]*memUser),
		tokens:  make(map[string]int64),
		byOwner: make(map[int64]string),
	}
}

func (s *InMemoryStore) CreateUser(username, password string) (Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[username]; ok {
		return Identity{}, ErrUsernameTaken
	}
	s.seq++
	u := &memUser{id: s.seq, name: username, hash: hash}
	s.byName[username] = u
	return Identity{ID: u.id, Username: u.name}, nil
}

func (s *InMemoryStore) ObtainToken(username, password string) (string, error) {
	s.mu.Lock()
	u, ok := s.byName[username]
	s.mu.Unlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.byOwner[u.id]; ok {
		return key, nil
	}
	key := uuid.NewString()
	s.tokens[key] = u.id
	s.byOwner[u.id] = key
	return key, nil
}

func (s *InMemoryStore) LookupToken(key string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[key]
	if !ok {
		return Identity{}, ErrUnknownToken
	}
	for _, u := range s.byName {
		if u.id == id {
			return Identity{ID: u.id, Username: u.name}, nil
		}
	}
	return Identity{}, ErrUnknownToken
}
