package tasks

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned for ids that do not exist under the given
// owner. A foreign-owned task is indistinguishable from a missing one.
var ErrNotFound = errors.New("task not found")

// Repository is an ownership-scoped store: every read and write carries
// the owner's user id, and a row belonging to anyone else behaves as if
// it did not exist.
type Repository interface {
	Create(ownerID int64, title string, status Status) (Task, error)
	ListOwned(ownerID int64) ([]Task, error)
	FindOwned(ownerID, id int64) (Task, error)
	Update(t Task) (Task, error)
	Delete(ownerID, id int64) error
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(ownerID int64, title string, status Status) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t := Task{
		ID:        r.seq,
		Title:     title,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		OwnerID:   ownerID,
	}
	r.store[t.ID] = t
	return t, nil
}

func (r *InMemoryRepo) ListOwned(ownerID int64) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0)
	for _, t := range r.store {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepo) FindOwned(ownerID, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.OwnerID != ownerID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// Update overwrites title and status on an existing row. The row must
// still belong to t.OwnerID.
func (r *InMemoryRepo) Update(t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.store[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return Task{}, ErrNotFound
	}
	cur.Title = t.Title
	cur.Status = t.Status
	r.store[t.ID] = cur
	return cur, nil
}

func (r *InMemoryRepo) Delete(ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}
