package tasks

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task. The string values are the
// wire values used by both the REST and GraphQL surfaces.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ParseStatus validates a wire value. Matching is case-sensitive.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("%q is not a valid choice", s)
}

type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   int64     `json:"owner"`
}
