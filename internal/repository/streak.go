package repository

import (
	"context"

	"github.com/eslsoft/quizstats/internal/entity"
)

// StreakRepository reads streak records maintained by the streak subsystem.
type StreakRepository interface {
	// Get returns (nil, nil) when the user has no streak record.
	Get(ctx context.Context, userID string) (*entity.StreakRecord, error)
}
