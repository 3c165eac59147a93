package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

// EnsureFieldsResult describes what EnsureStatsFields changed.
type EnsureFieldsResult struct {
	Created     bool
	AddedFields []string
}

// MigrationResult is the combined outcome of RunFullMigration.
type MigrationResult struct {
	EnsureFieldsResult
	BackfilledQuizzes int
}

// MigrationUsecase repairs the authenticated user's profile counters. Every
// operation is idempotent and takes the user from the request identity.
type MigrationUsecase interface {
	// EnsureStatsFields creates the profile when absent and otherwise adds the
	// missing counters, never overwriting existing values.
	EnsureStatsFields(ctx context.Context) (EnsureFieldsResult, error)
	// BackfillFromProgress recomputes totalQuizzes from the progress document and
	// returns the count written. Without progress nothing is written.
	BackfillFromProgress(ctx context.Context) (int, error)
	// Diagnose reads both documents without modifying anything.
	Diagnose(ctx context.Context) (*entity.Diagnosis, error)
	// RunFullMigration runs EnsureStatsFields then BackfillFromProgress and fails
	// if either step fails.
	RunFullMigration(ctx context.Context) (MigrationResult, error)
}

// NewMigrationUsecase wires the repositories used for migration.
func NewMigrationUsecase(
	profiles repository.ProfileRepository,
	progress ProgressReader,
	auditor repository.ProgressAuditor,
	logger logrus.FieldLogger,
) MigrationUsecase {
	return &migrationUsecase{
		profiles: profiles,
		progress: progress,
		auditor:  auditor,
		logger:   logger.WithField("component", "migration"),
		clock:    time.Now,
	}
}

type migrationUsecase struct {
	profiles repository.ProfileRepository
	progress ProgressReader
	auditor  repository.ProgressAuditor
	logger   logrus.FieldLogger
	clock    func() time.Time
}

func (u *migrationUsecase) EnsureStatsFields(ctx context.Context) (EnsureFieldsResult, error) {
	identity, ok := entity.IdentityFromContext(ctx)
	if !ok {
		return EnsureFieldsResult{}, entity.ErrNotAuthenticated
	}
	log := u.logger.WithField("user_id", identity.UserID)

	profile, err := u.profiles.Get(ctx, identity.UserID)
	if errors.Is(err, entity.ErrProfileNotFound) {
		if err := u.profiles.Create(ctx, entity.NewStatsProfile(identity, u.clock())); err != nil {
			log.WithError(err).Error("creating profile failed")
			return EnsureFieldsResult{}, fmt.Errorf("ensure stats fields: %w", err)
		}
		log.Info("profile created with zeroed counters")
		return EnsureFieldsResult{Created: true, AddedFields: append([]string(nil), entity.StatsCounterFields...)}, nil
	}
	if err != nil {
		log.WithError(err).Error("reading profile failed")
		return EnsureFieldsResult{}, fmt.Errorf("ensure stats fields: %w", err)
	}

	missing := profile.MissingCounters()
	if len(missing) == 0 {
		log.Debug("all stats fields present")
		return EnsureFieldsResult{}, nil
	}
	updates := make(entity.ProfileFields, len(missing))
	for _, field := range missing {
		if field == entity.FieldQuizDurations {
			updates[field] = []float64{}
		} else {
			updates[field] = 0
		}
	}
	if err := u.profiles.Update(ctx, identity.UserID, updates); err != nil {
		log.WithError(err).Error("adding stats fields failed")
		return EnsureFieldsResult{}, fmt.Errorf("ensure stats fields: %w", err)
	}
	log.WithField("fields", missing).Info("missing stats fields added")
	return EnsureFieldsResult{AddedFields: missing}, nil
}

func (u *migrationUsecase) BackfillFromProgress(ctx context.Context) (int, error) {
	identity, ok := entity.IdentityFromContext(ctx)
	if !ok {
		return 0, entity.ErrNotAuthenticated
	}
	log := u.logger.WithField("user_id", identity.UserID)

	doc, err := u.progress.GetProgress(ctx, identity.UserID, true)
	if err != nil {
		log.WithError(err).Error("reading progress failed")
		return 0, fmt.Errorf("backfill from progress: %w", err)
	}
	if doc == nil {
		log.Info("no progress data to migrate")
		return 0, nil
	}

	total := ScanProgress(doc, nil).CompletedQuizzes
	if err := u.profiles.Update(ctx, identity.UserID, entity.ProfileFields{entity.FieldTotalQuizzes: total}); err != nil {
		log.WithError(err).Error("writing totalQuizzes failed")
		return 0, fmt.Errorf("backfill from progress: %w", err)
	}
	log.WithField("total_quizzes", total).Info("completed quiz count migrated")
	return total, nil
}

func (u *migrationUsecase) Diagnose(ctx context.Context) (*entity.Diagnosis, error) {
	identity, ok := entity.IdentityFromContext(ctx)
	if !ok {
		return nil, entity.ErrNotAuthenticated
	}
	diagnosis := &entity.Diagnosis{UserID: identity.UserID, Email: identity.Email}

	profile, err := u.profiles.Get(ctx, identity.UserID)
	switch {
	case errors.Is(err, entity.ErrProfileNotFound):
	case err != nil:
		return nil, fmt.Errorf("diagnose profile: %w", err)
	default:
		diagnosis.ProfileExists = true
		diagnosis.Profile = profile
		if diagnosis.Email == "" {
			diagnosis.Email = profile.Email
		}
	}
	diagnosis.MissingFields = profile.MissingCounters()

	doc, err := u.progress.GetProgress(ctx, identity.UserID, true)
	if err != nil {
		return nil, fmt.Errorf("diagnose progress: %w", err)
	}
	if doc != nil {
		diagnosis.ProgressExists = true
		diagnosis.Progress = doc
		if u.auditor != nil {
			issues, err := u.auditor.Audit(ctx, identity.UserID)
			if err != nil && !errors.Is(err, entity.ErrProgressNotFound) {
				return nil, fmt.Errorf("audit progress: %w", err)
			}
			diagnosis.DataIssues = issues
		}
	}

	u.logger.WithFields(logrus.Fields{
		"user_id":        identity.UserID,
		"profile":        diagnosis.ProfileExists,
		"progress":       diagnosis.ProgressExists,
		"missing_fields": diagnosis.MissingFields,
		"data_issues":    len(diagnosis.DataIssues),
	}).Info("diagnosis finished")
	return diagnosis, nil
}

func (u *migrationUsecase) RunFullMigration(ctx context.Context) (MigrationResult, error) {
	ensured, err := u.EnsureStatsFields(ctx)
	if err != nil {
		return MigrationResult{}, err
	}
	total, err := u.BackfillFromProgress(ctx)
	if err != nil {
		return MigrationResult{EnsureFieldsResult: ensured}, err
	}
	return MigrationResult{EnsureFieldsResult: ensured, BackfilledQuizzes: total}, nil
}
