package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ApplyMigrations ensures the users and tokens schema exists
func (s *SQLiteStore) ApplyMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tokens (
	key TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL
);
	`)
	return err
}

func (s *SQLiteStore) CreateUser(username, password string) (Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}
	res, err := s.db.Exec(`
		INSERT INTO users (username, password_hash) VALUES (?, ?)
	`, username, string(hash))
	if err != nil {
		// sqlite reports the UNIQUE violation as a generic error; the
		// caller only needs to know the name is unavailable
		if exists, _ := s.usernameExists(username); exists {
			return Identity{}, ErrUsernameTaken
		}
		return Identity{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: id, Username: username}, nil
}

func (s *SQLiteStore) ObtainToken(username, password string) (string, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(`
		SELECT id, password_hash FROM users WHERE username = ?
	`, username).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	var key string
	err = s.db.QueryRow(`SELECT key FROM tokens WHERE user_id = ?`, id).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	key = uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.Exec(`
		INSERT INTO tokens (key, user_id, created_at) VALUES (?, ?, ?)
	`, key, id, now); err != nil {
		return "", err
	}
	return key, nil
}

func (s *SQLiteStore) LookupToken(key string) (Identity, error) {
	var i Identity
	err := s.db.QueryRow(`
		SELECT u.id, u.username
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.key = ?
	`, key).Scan(&i.ID, &i.Username)
	if err == sql.ErrNoRows {
		return Identity{}, ErrUnknownToken
	}
	if err != nil {
		return Identity{}, err
	}
	return i, nil
}

func (s *SQLiteStore) usernameExists(username string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
