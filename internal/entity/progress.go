package entity

import "time"

const (
	// PassingScore is the minimum score for a completed quiz to count as passed.
	PassingScore = 60
	// DefaultHearts is the lives count assumed when a progress document has none.
	DefaultHearts int64 = 5
)

// QuizProgress is one quiz completion record inside a progress document.
type QuizProgress struct {
	QuizID          string
	Completed       bool
	Score           float64
	LastAttemptDate Timestamp
	Duration        float64
}

// Passed reports whether the quiz counts towards the completed-quiz total.
func (q QuizProgress) Passed() bool {
	return q.Completed && q.Score >= PassingScore
}

// CategoryProgress groups quiz records of one category.
type CategoryProgress struct {
	CategoryID string
	Quizzes    []QuizProgress
}

// DifficultyProgress groups categories of one difficulty level.
type DifficultyProgress struct {
	Difficulty string
	Categories []CategoryProgress
}

// ProgressDocument is the per-user hierarchical quiz completion history.
type ProgressDocument struct {
	UserID       string
	Difficulties []DifficultyProgress
	TotalXP      *int64
	HeartsCount  *int64
	UpdateTime   time.Time
}

// EachQuiz visits every quiz record across all difficulty and category groupings.
// A nil document visits nothing.
func (p *ProgressDocument) EachQuiz(fn func(difficulty, category string, quiz QuizProgress)) {
	if p == nil {
		return
	}
	for _, d := range p.Difficulties {
		for _, c := range d.Categories {
			for _, q := range c.Quizzes {
				fn(d.Difficulty, c.CategoryID, q)
			}
		}
	}
}

// XP returns the authoritative experience total, zero when absent.
func (p *ProgressDocument) XP() int64 {
	if p == nil || p.TotalXP == nil {
		return 0
	}
	return *p.TotalXP
}

// Hearts returns the authoritative remaining lives, DefaultHearts when absent.
// A stored zero is kept as zero, not replaced by the default.
func (p *ProgressDocument) Hearts() int64 {
	if p == nil || p.HeartsCount == nil {
		return DefaultHearts
	}
	return *p.HeartsCount
}
