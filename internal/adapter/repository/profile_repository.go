package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/repository"
)

var errStaleWrite = errors.New("stale replicated write")

type profileRepository struct {
	store      docstore.Store
	collection string
}

// NewProfileRepository constructs a document-store backed profile repository.
func NewProfileRepository(store docstore.Store, collections Collections) repository.ProfileRepository {
	return &profileRepository{store: store, collection: collections.withDefaults().Profiles}
}

func (r *profileRepository) ref(userID string) docstore.Ref {
	return docstore.Doc(r.collection, userID)
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*entity.ProfileDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := r.store.Get(ctx, r.ref(userID))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", translateStoreError(err, entity.ErrProfileNotFound))
	}
	if !snap.Exists {
		return nil, entity.ErrProfileNotFound
	}
	return mapProfileSnapshot(snap), nil
}

func (r *profileRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	snap, err := r.store.Get(ctx, r.ref(userID))
	if err != nil {
		return false, fmt.Errorf("check profile: %w", translateStoreError(err, entity.ErrProfileNotFound))
	}
	return snap.Exists, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *entity.ProfileDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("create profile: %w", entity.ErrInvalidUserID)
	}
	if err := r.store.Set(ctx, r.ref(profile.UserID), profileData(profile)); err != nil {
		return fmt.Errorf("create profile: %w", translateStoreError(err, entity.ErrProfileNotFound))
	}
	return nil
}

func (r *profileRepository) Update(ctx context.Context, userID string, fields entity.ProfileFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.Update(ctx, r.ref(userID), encodeFields(fields)); err != nil {
		return fmt.Errorf("update profile: %w", translateStoreError(err, entity.ErrProfileNotFound))
	}
	return nil
}

func (r *profileRepository) ApplyReplicated(ctx context.Context, w repository.ReplicatedWrite) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	versionField := entity.SyncVersionField(w.Field)
	err := r.store.Transaction(ctx, r.ref(w.UserID), func(snap *docstore.Snapshot) (map[string]any, error) {
		if !snap.Exists {
			return nil, entity.ErrProfileNotFound
		}
		stored := entity.ParseTimestamp(snap.Data[versionField])
		if !w.Force && stored.Valid && stored.Time.After(w.Version) {
			return nil, errStaleWrite
		}
		return map[string]any{
			w.Field:                 w.Value,
			versionField:            w.Version.UTC().Format(time.RFC3339Nano),
			entity.FieldLastUpdated: entity.FormatISO(w.WrittenAt),
		}, nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleWrite):
		return false, nil
	case errors.Is(err, entity.ErrProfileNotFound):
		return false, entity.ErrProfileNotFound
	default:
		return false, fmt.Errorf("apply %s: %w", w.Field, translateStoreError(err, entity.ErrProfileNotFound))
	}
}

func (r *profileRepository) Watch(ctx context.Context, userID string, onChange func(*entity.ProfileDocument), onError repository.ErrorHandler) (repository.Unsubscribe, error) {
	unsubscribe, err := r.store.Watch(ctx, r.ref(userID),
		func(snap *docstore.Snapshot) {
			if !snap.Exists {
				onChange(nil)
				return
			}
			onChange(mapProfileSnapshot(snap))
		},
		onError,
	)
	if err != nil {
		return nil, fmt.Errorf("watch profile: %w", translateStoreError(err, entity.ErrProfileNotFound))
	}
	return repository.Unsubscribe(unsubscribe), nil
}

func mapProfileSnapshot(snap *docstore.Snapshot) *entity.ProfileDocument {
	data := snap.Data
	return &entity.ProfileDocument{
		UserID:                  snap.Ref.ID,
		Email:                   stringField(data, entity.FieldEmail),
		DisplayName:             stringField(data, entity.FieldDisplayName),
		CreatedAt:               entity.ParseTimestamp(data[entity.FieldCreatedAt]),
		XPPoints:                intPtrField(data, entity.FieldXPPoints),
		Lives:                   intPtrField(data, entity.FieldLives),
		TotalGoodAnswers:        intPtrField(data, entity.FieldTotalGoodAnswers),
		TotalQuestionsAttempted: intPtrField(data, entity.FieldTotalQuestionsAttempted),
		QuizDurations:           floatSliceField(data, entity.FieldQuizDurations),
		TotalQuizzes:            intPtrField(data, entity.FieldTotalQuizzes),
		LastUpdated:             entity.ParseTimestamp(data[entity.FieldLastUpdated]),
		XPPointsSyncedAt:        entity.ParseTimestamp(data[entity.SyncVersionField(entity.FieldXPPoints)]).Time,
		LivesSyncedAt:           entity.ParseTimestamp(data[entity.SyncVersionField(entity.FieldLives)]).Time,
		UpdateTime:              snap.UpdateTime,
	}
}

// profileData encodes only the fields that are set, so absent counters stay absent.
func profileData(p *entity.ProfileDocument) map[string]any {
	data := map[string]any{}
	if p.Email != "" {
		data[entity.FieldEmail] = p.Email
	}
	if p.DisplayName != "" {
		data[entity.FieldDisplayName] = p.DisplayName
	}
	if p.CreatedAt.Valid {
		data[entity.FieldCreatedAt] = entity.FormatISO(p.CreatedAt.Time)
	}
	if p.LastUpdated.Valid {
		data[entity.FieldLastUpdated] = entity.FormatISO(p.LastUpdated.Time)
	}
	setInt := func(key string, v *int64) {
		if v != nil {
			data[key] = *v
		}
	}
	setInt(entity.FieldXPPoints, p.XPPoints)
	setInt(entity.FieldLives, p.Lives)
	setInt(entity.FieldTotalGoodAnswers, p.TotalGoodAnswers)
	setInt(entity.FieldTotalQuestionsAttempted, p.TotalQuestionsAttempted)
	setInt(entity.FieldTotalQuizzes, p.TotalQuizzes)
	if p.QuizDurations != nil {
		data[entity.FieldQuizDurations] = p.QuizDurations
	}
	return data
}

func encodeFields(fields entity.ProfileFields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case time.Time:
			out[k] = entity.FormatISO(val)
		case entity.Timestamp:
			if val.Valid {
				out[k] = entity.FormatISO(val.Time)
			}
		default:
			out[k] = v
		}
	}
	return out
}
