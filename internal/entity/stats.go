package entity

import "time"

// WeeklyActivityBucket is one calendar day of the seven-day activity histogram.
type WeeklyActivityBucket struct {
	Day          string
	Date         string
	QuizCount    int
	TotalScore   float64
	AverageScore float64
	Height       string
}

// RealUserStats is the derived statistics view of one user. It is never persisted.
type RealUserStats struct {
	UserID                  string
	CurrentStreak           int64
	BestStreak              int64
	TotalQuizzes            int
	TotalQuestionsAttempted int64
	TotalGoodAnswers        int64
	AccuracyPercentage      float64
	QuizDurations           []float64
	AverageTimeSeconds      float64
	WeeklyActivity          []WeeklyActivityBucket
	XPPoints                int64
	Level                   int64
	MalformedTimestamps     int
	LastUpdated             time.Time
}

// DefaultStats returns the all-zero statistics served when computation fails.
// weekly should hold the zero buckets for the current week.
func DefaultStats(now time.Time, weekly []WeeklyActivityBucket) *RealUserStats {
	if weekly == nil {
		weekly = []WeeklyActivityBucket{}
	}
	return &RealUserStats{
		QuizDurations:  []float64{},
		WeeklyActivity: weekly,
		Level:          1,
		LastUpdated:    now,
	}
}
