package repository

import (
	"context"
	"fmt"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/repository"
)

type streakRepository struct {
	store      docstore.Store
	collection string
}

// NewStreakRepository constructs a document-store backed streak repository.
func NewStreakRepository(store docstore.Store, collections Collections) repository.StreakRepository {
	return &streakRepository{store: store, collection: collections.withDefaults().Streaks}
}

func (r *streakRepository) Get(ctx context.Context, userID string) (*entity.StreakRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := r.store.Get(ctx, docstore.Doc(r.collection, userID))
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", translateStoreError(err, docstore.ErrNotFound))
	}
	if !snap.Exists {
		return nil, nil
	}
	data := snap.Data
	record := &entity.StreakRecord{
		UserID:       userID,
		LastActivity: entity.ParseTimestamp(firstPresent(data, "lastActivityDate", "lastActivity")),
	}
	if v := intPtrField(data, "currentStreak"); v != nil {
		record.CurrentStreak = *v
	}
	for _, key := range []string{"bestStreak", "highestStreak", "longestStreak"} {
		if v := intPtrField(data, key); v != nil {
			record.BestStreak = *v
			break
		}
	}
	if record.BestStreak < record.CurrentStreak {
		record.BestStreak = record.CurrentStreak
	}
	return record, nil
}

func firstPresent(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
