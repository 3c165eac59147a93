// Package docstore provides a small document database with live watches, shaped
// after the Firestore client API the quiz app was built against.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Update when the target document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrInvalidRef is returned for refs with an empty collection or id.
	ErrInvalidRef = errors.New("docstore: invalid document reference")
	// ErrClosed is returned after the store has been closed.
	ErrClosed = errors.New("docstore: store closed")
)

// Ref addresses a single document.
type Ref struct {
	Collection string
	ID         string
}

// Doc builds a Ref.
func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

// Path renders the ref as collection/id.
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

func (r Ref) validate() error {
	if strings.TrimSpace(r.Collection) == "" || strings.TrimSpace(r.ID) == "" {
		return ErrInvalidRef
	}
	if strings.Contains(r.Collection, "/") || strings.Contains(r.ID, "/") {
		return ErrInvalidRef
	}
	return nil
}

// parseRef is the inverse of Ref.Path.
func parseRef(path string) (Ref, bool) {
	collection, id, ok := strings.Cut(path, "/")
	if !ok {
		return Ref{}, false
	}
	ref := Ref{Collection: collection, ID: id}
	return ref, ref.validate() == nil
}

// Snapshot is the state of a document at read time.
type Snapshot struct {
	Ref        Ref
	Exists     bool
	Data       map[string]any
	UpdateTime time.Time
}

// Field returns a top-level field and whether it is present.
func (s *Snapshot) Field(name string) (any, bool) {
	if s == nil || !s.Exists {
		return nil, false
	}
	v, ok := s.Data[name]
	return v, ok
}

// TxFunc inspects the locked snapshot and returns the fields to merge into the
// document. A nil map leaves the document untouched. Returning an error aborts
// the transaction and is passed through to the caller. fn must not call back
// into the store.
type TxFunc func(snap *Snapshot) (map[string]any, error)

// Unsubscribe stops a watch. It is idempotent.
type Unsubscribe func()

// Store is the document database consumed by the repositories.
type Store interface {
	Get(ctx context.Context, ref Ref) (*Snapshot, error)
	// Set creates or overwrites the document.
	Set(ctx context.Context, ref Ref, data map[string]any) error
	// Update shallowly merges fields into an existing document.
	Update(ctx context.Context, ref Ref, fields map[string]any) error
	// Transaction runs fn with the document locked and applies its result atomically.
	Transaction(ctx context.Context, ref Ref, fn TxFunc) error
	// Watch delivers the current snapshot immediately and again after each change.
	// Callbacks for one subscriber never run concurrently.
	Watch(ctx context.Context, ref Ref, onChange func(*Snapshot), onError func(error)) (Unsubscribe, error)
	// Init creates the storage schema if needed.
	Init(ctx context.Context) error
	Close() error
}
