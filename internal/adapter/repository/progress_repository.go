package repository

import (
	"context"
	"fmt"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/repository"
)

type progressRepository struct {
	store      docstore.Store
	collection string
}

// NewProgressRepository constructs a document-store backed progress repository.
func NewProgressRepository(store docstore.Store, collections Collections) repository.ProgressRepository {
	return &progressRepository{store: store, collection: collections.withDefaults().Progress}
}

func (r *progressRepository) Get(ctx context.Context, userID string) (*entity.ProgressDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := r.store.Get(ctx, docstore.Doc(r.collection, userID))
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", translateStoreError(err, entity.ErrProgressNotFound))
	}
	if !snap.Exists {
		return nil, entity.ErrProgressNotFound
	}
	return mapProgressSnapshot(snap), nil
}

func (r *progressRepository) Watch(ctx context.Context, userID string, onChange func(*entity.ProgressDocument), onError repository.ErrorHandler) (repository.Unsubscribe, error) {
	unsubscribe, err := r.store.Watch(ctx, docstore.Doc(r.collection, userID),
		func(snap *docstore.Snapshot) {
			if !snap.Exists {
				onChange(nil)
				return
			}
			onChange(mapProgressSnapshot(snap))
		},
		onError,
	)
	if err != nil {
		return nil, fmt.Errorf("watch progress: %w", translateStoreError(err, entity.ErrProgressNotFound))
	}
	return repository.Unsubscribe(unsubscribe), nil
}

func mapProgressSnapshot(snap *docstore.Snapshot) *entity.ProgressDocument {
	doc := mapProgressData(snap.Data)
	doc.UserID = snap.Ref.ID
	doc.UpdateTime = snap.UpdateTime
	return doc
}

func mapProgressData(data map[string]any) *entity.ProgressDocument {
	doc := &entity.ProgressDocument{
		TotalXP:     intPtrField(data, "totalXP"),
		HeartsCount: intPtrField(data, "heartsCount"),
	}
	for _, d := range mapSlice(data, "difficulties") {
		difficulty := entity.DifficultyProgress{Difficulty: stringField(d, "difficulty", "level", "id", "name")}
		for _, c := range mapSlice(d, "categories") {
			category := entity.CategoryProgress{CategoryID: stringField(c, "categoryId", "id", "name")}
			for _, q := range mapSlice(c, "quizzes") {
				category.Quizzes = append(category.Quizzes, entity.QuizProgress{
					QuizID:          stringField(q, "quizId", "id"),
					Completed:       boolField(q, "completed"),
					Score:           floatField(q, "score"),
					LastAttemptDate: entity.ParseTimestamp(q["lastAttemptDate"]),
					Duration:        floatField(q, "duration"),
				})
			}
			difficulty.Categories = append(difficulty.Categories, category)
		}
		doc.Difficulties = append(doc.Difficulties, difficulty)
	}
	return doc
}
