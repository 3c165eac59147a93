package mapping

import (
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/quizstats/internal/entity"
)

// Empty is the message of requests and responses without fields.
type Empty struct{}

type WeeklyActivity struct {
	Day          string  `json:"day"`
	Date         string  `json:"date"`
	QuizCount    int     `json:"quizCount"`
	TotalScore   float64 `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
	Height       string  `json:"height"`
}

type RealUserStats struct {
	UserID                  string           `json:"userId"`
	CurrentStreak           int64            `json:"currentStreak"`
	BestStreak              int64            `json:"bestStreak"`
	TotalQuizzes            int              `json:"totalQuizzes"`
	TotalQuestionsAttempted int64            `json:"totalQuestionsAttempted"`
	TotalGoodAnswers        int64            `json:"totalGoodAnswers"`
	AccuracyPercentage      float64          `json:"accuracyPercentage"`
	QuizDurations           []float64        `json:"quizDurations"`
	AverageTimeSeconds      float64          `json:"averageTimeSeconds"`
	WeeklyActivity          []WeeklyActivity `json:"weeklyActivity"`
	XPPoints                int64            `json:"xpPoints"`
	Level                   int64            `json:"level"`
	MalformedTimestamps     int              `json:"malformedTimestamps,omitempty"`
	LastUpdated             string           `json:"lastUpdated"`
}

type Badge struct {
	ID        string `json:"id"`
	Icon      string `json:"icon"`
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Earned    bool   `json:"earned"`
}

type ListBadgesResponse struct {
	Badges []Badge `json:"badges"`
}

func ToRealUserStats(in *entity.RealUserStats) *RealUserStats {
	if in == nil {
		return nil
	}
	return &RealUserStats{
		UserID:                  in.UserID,
		CurrentStreak:           in.CurrentStreak,
		BestStreak:              in.BestStreak,
		TotalQuizzes:            in.TotalQuizzes,
		TotalQuestionsAttempted: in.TotalQuestionsAttempted,
		TotalGoodAnswers:        in.TotalGoodAnswers,
		AccuracyPercentage:      in.AccuracyPercentage,
		QuizDurations:           lo.Ternary(in.QuizDurations == nil, []float64{}, in.QuizDurations),
		AverageTimeSeconds:      in.AverageTimeSeconds,
		WeeklyActivity: lo.Map(in.WeeklyActivity, func(b entity.WeeklyActivityBucket, _ int) WeeklyActivity {
			return WeeklyActivity{
				Day:          b.Day,
				Date:         b.Date,
				QuizCount:    b.QuizCount,
				TotalScore:   b.TotalScore,
				AverageScore: b.AverageScore,
				Height:       b.Height,
			}
		}),
		XPPoints:            in.XPPoints,
		Level:               in.Level,
		MalformedTimestamps: in.MalformedTimestamps,
		LastUpdated:         formatTime(in.LastUpdated),
	}
}

func ToBadges(in []entity.Badge) []Badge {
	return lo.Map(in, func(b entity.Badge, _ int) Badge {
		return Badge{
			ID:        b.ID,
			Icon:      b.Icon,
			Name:      b.Name,
			Condition: b.Condition,
			Earned:    b.Earned,
		}
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return entity.FormatISO(t)
}
