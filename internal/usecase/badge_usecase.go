package usecase

import (
	"context"
	"fmt"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/pkg/condexpr"
)

// badgeVariables are the stats exposed to badge conditions.
var badgeVariables = map[string]condexpr.ValueKind{
	"totalQuizzes":            condexpr.KindNumber,
	"accuracyPercentage":      condexpr.KindNumber,
	"averageTimeSeconds":      condexpr.KindNumber,
	"currentStreak":           condexpr.KindNumber,
	"bestStreak":              condexpr.KindNumber,
	"level":                   condexpr.KindNumber,
	"xpPoints":                condexpr.KindNumber,
	"totalQuestionsAttempted": condexpr.KindNumber,
	"totalGoodAnswers":        condexpr.KindNumber,
}

// BadgeUsecase evaluates achievement badges against user statistics.
type BadgeUsecase interface {
	Evaluate(stats *entity.RealUserStats) ([]entity.Badge, error)
	// ListBadges evaluates every badge for the authenticated user.
	ListBadges(ctx context.Context) ([]entity.Badge, error)
	Definitions() []entity.BadgeDefinition
}

type compiledBadge struct {
	def  entity.BadgeDefinition
	cond *condexpr.Condition
}

type badgeUsecase struct {
	badges []compiledBadge
	stats  StatsUsecase
}

// NewBadgeUsecase compiles every badge condition up front; an invalid one is
// reported as entity.ErrInvalidBadgeCondition. Empty defs use entity.DefaultBadges.
func NewBadgeUsecase(defs []entity.BadgeDefinition, stats StatsUsecase) (BadgeUsecase, error) {
	if len(defs) == 0 {
		defs = entity.DefaultBadges()
	}
	env, err := condexpr.NewEnv(badgeVariables)
	if err != nil {
		return nil, err
	}
	badges := make([]compiledBadge, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: badge without id", entity.ErrInvalidBadgeCondition)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge %q", entity.ErrInvalidBadgeCondition, def.ID)
		}
		seen[def.ID] = struct{}{}
		cond, err := env.Compile(def.Condition)
		if err != nil {
			return nil, fmt.Errorf("%w: badge %q: %v", entity.ErrInvalidBadgeCondition, def.ID, err)
		}
		badges = append(badges, compiledBadge{def: def, cond: cond})
	}
	return &badgeUsecase{badges: badges, stats: stats}, nil
}

func (u *badgeUsecase) Evaluate(stats *entity.RealUserStats) ([]entity.Badge, error) {
	if stats == nil {
		stats = &entity.RealUserStats{}
	}
	vars := statsVariables(stats)
	result := make([]entity.Badge, 0, len(u.badges))
	for _, b := range u.badges {
		earned, err := b.cond.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.def.ID, err)
		}
		result = append(result, entity.Badge{BadgeDefinition: b.def, Earned: earned})
	}
	return result, nil
}

func (u *badgeUsecase) ListBadges(ctx context.Context) ([]entity.Badge, error) {
	stats, err := u.stats.GetRealUserStats(ctx)
	if err != nil {
		return nil, err
	}
	return u.Evaluate(stats)
}

func (u *badgeUsecase) Definitions() []entity.BadgeDefinition {
	defs := make([]entity.BadgeDefinition, len(u.badges))
	for i, b := range u.badges {
		defs[i] = b.def
	}
	return defs
}

func statsVariables(s *entity.RealUserStats) map[string]any {
	return map[string]any{
		"totalQuizzes":            float64(s.TotalQuizzes),
		"accuracyPercentage":      s.AccuracyPercentage,
		"averageTimeSeconds":      s.AverageTimeSeconds,
		"currentStreak":           float64(s.CurrentStreak),
		"bestStreak":              float64(s.BestStreak),
		"level":                   float64(s.Level),
		"xpPoints":                float64(s.XPPoints),
		"totalQuestionsAttempted": float64(s.TotalQuestionsAttempted),
		"totalGoodAnswers":        float64(s.TotalGoodAnswers),
	}
}
