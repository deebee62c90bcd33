package tasks

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"taskboard/internal/auth"
)

const maxTitleLen = 200

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects validation failures in declared-field order
// (title before status), so error output is deterministic.
type FieldErrors []FieldError

// Strings renders one entry per failed field, in the form
// "<field>: <message1>, <message2>".
func (fe FieldErrors) Strings() []string {
	var order []string
	msgs := make(map[string][]string)
	for _, e := range fe {
		if _, seen := msgs[e.Field]; !seen {
			order = append(order, e.Field)
		}
		msgs[e.Field] = append(msgs[e.Field], e.Message)
	}
	out := make([]string, 0, len(order))
	for _, f := range order {
		out = append(out, f+": "+strings.Join(msgs[f], ", "))
	}
	return out
}

// CreateInput carries raw create fields. Status nil means "not supplied"
// and defaults to PENDING.
type CreateInput struct {
	Title  string
	Status *string
}

// UpdateInput carries a partial field set; nil pointers leave the prior
// value untouched.
type UpdateInput struct {
	Title  *string
	Status *string
}

// Engine validates raw input fields and applies them to the repository.
// It is shared by the REST handlers and the GraphQL mutations; the
// transport never sets owner, id or created_at through it.
type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Create validates the input and persists a new task owned by the
// caller. Validation failures come back as FieldErrors with nothing
// persisted.
func (e *Engine) Create(identity auth.Identity, in CreateInput) (Task, FieldErrors, error) {
	var ferrs FieldErrors
	ferrs = append(ferrs, validateTitle(in.Title)...)

	status := StatusPending
	if in.Status != nil {
		s, err := ParseStatus(*in.Status)
		if err != nil {
			ferrs = append(ferrs, FieldError{Field: "status", Message: err.Error()})
		} else {
			status = s
		}
	}

	if len(ferrs) > 0 {
		return Task{}, ferrs, nil
	}

	t, err := e.repo.Create(identity.ID, strings.TrimSpace(in.Title), status)
	if err != nil {
		return Task{}, nil, err
	}
	return t, nil, nil
}

// Update applies the supplied fields to an existing task. The ownership
// guard runs before anything else; a foreign task reads as missing. All
// fields are validated before any write, so a failed validation leaves
// the stored row untouched.
func (e *Engine) Update(identity auth.Identity, existing Task, in UpdateInput) (Task, FieldErrors, error) {
	if !auth.Authorize(identity, existing.OwnerID) {
		return Task{}, nil, ErrNotFound
	}

	var ferrs FieldErrors

	next := existing

	if in.Title != nil {
		ferrs = append(ferrs, validateTitle(*in.Title)...)
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Status != nil {
		s, err := ParseStatus(*in.Status)
		if err != nil {
			ferrs = append(ferrs, FieldError{Field: "status", Message: err.Error()})
		} else {
			next.Status = s
		}
	}

	if len(ferrs) > 0 {
		return Task{}, ferrs, nil
	}

	t, err := e.repo.Update(next)
	if err != nil {
		return Task{}, nil, err
	}
	return t, nil, nil
}

// Delete removes an owned task. A second delete of the same id reports
// ErrNotFound, since the scoped lookup no longer matches.
func (e *Engine) Delete(identity auth.Identity, id int64) error {
	return e.repo.Delete(identity.ID, id)
}

// validateTitle checks the title as it will be stored: surrounding
// whitespace is dropped and the length bound counts characters, not
// bytes, so multibyte titles are not penalized.
func validateTitle(title string) FieldErrors {
	var errs FieldErrors

	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		errs = append(errs, FieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if l := utf8.RuneCountInString(trimmed); l > maxTitleLen {
		errs = append(errs, FieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		})
	}

	return errs
}
