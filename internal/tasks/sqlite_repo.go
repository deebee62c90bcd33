package tasks

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

// OpenSQLite opens a database with reasonable pragmas for an app server.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ApplyMigrations ensures the tasks schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_at TEXT NOT NULL,
	owner_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
	`)
	return err
}

func (r *SQLiteRepo) Create(ownerID int64, title string, status Status) (Task, error) {
	now := time.Now().UTC()
	res, err := r.db.Exec(`
		INSERT INTO tasks (title, status, created_at, owner_id)
		VALUES (?, ?, ?, ?)
	`, title, string(status), now.Format(time.RFC3339Nano), ownerID)
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        id,
		Title:     title,
		Status:    status,
		CreatedAt: now,
		OwnerID:   ownerID,
	}, nil
}

func (r *SQLiteRepo) ListOwned(ownerID int64) ([]Task, error) {
	rows, err := r.db.Query(`
		SELECT id, title, status, created_at, owner_id
		FROM tasks
		WHERE owner_id = ?
		ORDER BY id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) FindOwned(ownerID, id int64) (Task, error) {
	row := r.db.QueryRow(`
		SELECT id, title, status, created_at, owner_id
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *SQLiteRepo) Update(t Task) (Task, error) {
	res, err := r.db.Exec(`
		UPDATE tasks
		SET title = ?, status = ?
		WHERE id = ? AND owner_id = ?
	`, t.Title, string(t.Status), t.ID, t.OwnerID)
	if err != nil {
		return Task{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if n == 0 {
		return Task{}, ErrNotFound
	}
	return r.FindOwned(t.OwnerID, t.ID)
}

func (r *SQLiteRepo) Delete(ownerID, id int64) error {
	res, err := r.db.Exec(`
		DELETE FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (Task, error) {
	var t Task
	var status, created string
	if err := s.Scan(&t.ID, &t.Title, &status, &created, &t.OwnerID); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

// SQLiteFileDSN builds a DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
