package repository

import (
	"context"

	"github.com/eslsoft/quizstats/internal/entity"
)

// ProgressRepository reads per-user quiz progress documents. The core never writes them.
type ProgressRepository interface {
	// Get returns entity.ErrProgressNotFound when the user has no progress document.
	Get(ctx context.Context, userID string) (*entity.ProgressDocument, error)
	// Watch delivers the current document immediately and again on every change.
	// A nil document means it does not exist (yet).
	Watch(ctx context.Context, userID string, onChange func(*entity.ProgressDocument), onError ErrorHandler) (Unsubscribe, error)
}

// ProgressAuditor checks a stored progress document for structural problems.
type ProgressAuditor interface {
	Audit(ctx context.Context, userID string) ([]entity.DataIssue, error)
}
