package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

// StreakUsecase resolves a user's consecutive-day activity streak.
type StreakUsecase interface {
	// GetStreak prefers the stored streak record and otherwise derives the streak
	// from completed quiz attempt dates. It never returns a nil record without an error.
	GetStreak(ctx context.Context, userID string) (*entity.StreakRecord, error)
}

// NewStreakUsecase wires the streak repository with a progress fallback.
func NewStreakUsecase(repo repository.StreakRepository, progress ProgressReader) StreakUsecase {
	return &streakUsecase{
		repo:     repo,
		progress: progress,
		clock:    time.Now,
	}
}

type streakUsecase struct {
	repo     repository.StreakRepository
	progress ProgressReader
	clock    func() time.Time
}

func (u *streakUsecase) GetStreak(ctx context.Context, userID string) (*entity.StreakRecord, error) {
	record, err := u.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	if record != nil {
		return record, nil
	}

	doc, err := u.progress.GetProgress(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("derive streak: %w", err)
	}
	record = DeriveStreak(doc, u.clock())
	record.UserID = userID
	return record, nil
}

// DeriveStreak computes current and best runs of consecutive UTC days with at
// least one completed quiz. The current run is alive only if its last day is
// today or yesterday.
func DeriveStreak(progress *entity.ProgressDocument, now time.Time) *entity.StreakRecord {
	var days []time.Time
	progress.EachQuiz(func(_, _ string, quiz entity.QuizProgress) {
		if !quiz.Completed || !quiz.LastAttemptDate.Valid {
			return
		}
		y, m, d := quiz.LastAttemptDate.Time.UTC().Date()
		days = append(days, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	})
	days = lo.UniqBy(days, func(t time.Time) int64 { return t.Unix() })
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	record := &entity.StreakRecord{}
	if len(days) == 0 {
		return record
	}

	run := int64(1)
	record.BestStreak = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		record.BestStreak = max(record.BestStreak, run)
	}

	last := days[len(days)-1]
	record.LastActivity = entity.NewTimestamp(last)
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if gap := today.Sub(last); gap >= 0 && gap <= 24*time.Hour {
		record.CurrentStreak = run
	}
	return record
}
