package repository

import (
	"context"

	"github.com/eslsoft/quizstats/internal/entity"
)

// ProfileRepository persists the denormalized per-user profile counters.
type ProfileRepository interface {
	// Get returns entity.ErrProfileNotFound when the document is absent.
	Get(ctx context.Context, userID string) (*entity.ProfileDocument, error)
	Exists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, profile *entity.ProfileDocument) error
	// Update merges fields into an existing document and returns
	// entity.ErrProfileNotFound when there is none.
	Update(ctx context.Context, userID string, fields entity.ProfileFields) error
	// ApplyReplicated writes the value only when the document exists and, unless
	// w.Force is set, its stored version for the field is not newer than w.Version.
	// applied is false when the write was stale. A missing document returns
	// entity.ErrProfileNotFound.
	ApplyReplicated(ctx context.Context, w ReplicatedWrite) (applied bool, err error)
	Watch(ctx context.Context, userID string, onChange func(*entity.ProfileDocument), onError ErrorHandler) (Unsubscribe, error)
}
