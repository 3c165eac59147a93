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

// StatsUsecase serves the authenticated user's derived statistics.
type StatsUsecase interface {
	// GetRealUserStats fails only with entity.ErrNotAuthenticated. Store failures
	// are logged and answered with all-zero statistics.
	GetRealUserStats(ctx context.Context) (*entity.RealUserStats, error)
	// ComputeUserStats bypasses the cache and reports store failures.
	ComputeUserStats(ctx context.Context, userID string) (*entity.RealUserStats, error)
	ClearCache()
}

// NewStatsUsecase wires the accessors, cache and day labels.
func NewStatsUsecase(
	progress ProgressReader,
	profiles repository.ProfileRepository,
	streaks StreakUsecase,
	cache *StatsCache,
	labels DayLabels,
	logger logrus.FieldLogger,
) StatsUsecase {
	return &statsUsecase{
		progress: progress,
		profiles: profiles,
		streaks:  streaks,
		cache:    cache,
		labels:   labels,
		logger:   logger.WithField("component", "stats"),
		clock:    time.Now,
	}
}

type statsUsecase struct {
	progress ProgressReader
	profiles repository.ProfileRepository
	streaks  StreakUsecase
	cache    *StatsCache
	labels   DayLabels
	logger   logrus.FieldLogger
	clock    func() time.Time
}

func (u *statsUsecase) GetRealUserStats(ctx context.Context) (*entity.RealUserStats, error) {
	identity, ok := entity.IdentityFromContext(ctx)
	if !ok {
		return nil, entity.ErrNotAuthenticated
	}
	log := u.logger.WithField("user_id", identity.UserID)

	if stats, ok := u.cache.Get(identity.UserID); ok {
		log.Debug("stats served from cache")
		return stats, nil
	}

	log.Debug("computing stats")
	stats, err := u.ComputeUserStats(ctx, identity.UserID)
	if err != nil {
		log.WithError(err).Error("stats computation failed, serving defaults")
		now := u.clock()
		return entity.DefaultStats(now, ComputeWeeklyActivity(nil, now, u.labels)), nil
	}
	u.cache.Put(identity.UserID, stats)
	return stats, nil
}

func (u *statsUsecase) ComputeUserStats(ctx context.Context, userID string) (*entity.RealUserStats, error) {
	streak, err := u.streaks.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := u.progress.GetProgress(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	profile, err := u.profiles.Get(ctx, userID)
	if errors.Is(err, entity.ErrProfileNotFound) {
		profile, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	now := u.clock()
	dates := WeekDates(now)
	scan := ScanProgress(progress, dates)
	for _, bad := range scan.Malformed {
		u.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"difficulty": bad.Difficulty,
			"category":   bad.Category,
			"quiz_id":    bad.QuizID,
			"value":      bad.Value.String(),
		}).Warn("skipping quiz with unparseable attempt date")
	}

	stats := statsFromScan(scan, profile, streak, BuildWeeklyActivity(scan, dates, u.labels))
	stats.UserID = userID
	stats.XPPoints = progress.XP()
	if progress == nil || progress.TotalXP == nil {
		stats.XPPoints = profile.XP()
	}
	stats.Level = entity.LevelForXP(stats.XPPoints)
	stats.LastUpdated = now
	return stats, nil
}

func (u *statsUsecase) ClearCache() {
	if userID := u.cache.Invalidate(); userID != "" {
		u.progress.Invalidate(userID)
	}
	u.logger.Debug("stats cache cleared")
}
