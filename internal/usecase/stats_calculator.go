package usecase

import (
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/quizstats/internal/entity"
)

const (
	// WeekLength is the number of buckets in the activity histogram.
	WeekLength = 7
	// quizzesForFullBar is the daily quiz count drawn as a full-height bar.
	quizzesForFullBar = 10
	minBarPercent     = 20
	maxBarPercent     = 100
)

// DayLabels names weekdays indexed by time.Weekday.
type DayLabels [7]string

var (
	EnglishDayLabels = DayLabels{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	FrenchDayLabels  = DayLabels{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"}
)

// DayLabelsFor returns the weekday labels for a language, English by default.
func DayLabelsFor(lang entity.Language) DayLabels {
	if lang == entity.LanguageFrench {
		return FrenchDayLabels
	}
	return EnglishDayLabels
}

// MalformedTimestamp identifies a completed quiz whose attempt date could not be read.
type MalformedTimestamp struct {
	Difficulty string
	Category   string
	QuizID     string
	Value      entity.Timestamp
}

// DayTally accumulates the completed quizzes of one calendar day.
type DayTally struct {
	QuizCount  int
	TotalScore float64
}

// ProgressScan is the result of a single traversal of a progress document.
type ProgressScan struct {
	CompletedQuizzes int
	Days             map[string]DayTally
	Malformed        []MalformedTimestamp
}

// WeekDates returns the seven UTC calendar days ending on today, oldest first.
func WeekDates(today time.Time) []time.Time {
	y, m, d := today.UTC().Date()
	anchor := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, WeekLength)
	for i := range dates {
		dates[i] = anchor.AddDate(0, 0, i-(WeekLength-1))
	}
	return dates
}

// ScanProgress walks every quiz once, counting passed quizzes and tallying
// completed attempts whose date is one of dates. A nil document yields an empty scan.
func ScanProgress(progress *entity.ProgressDocument, dates []time.Time) ProgressScan {
	scan := ProgressScan{Days: make(map[string]DayTally, len(dates))}
	for _, d := range dates {
		scan.Days[d.Format(entity.DateLayout)] = DayTally{}
	}

	progress.EachQuiz(func(difficulty, category string, quiz entity.QuizProgress) {
		if quiz.Passed() {
			scan.CompletedQuizzes++
		}
		if !quiz.Completed || !quiz.LastAttemptDate.Present {
			return
		}
		day, ok := quiz.LastAttemptDate.DateString()
		if !ok {
			scan.Malformed = append(scan.Malformed, MalformedTimestamp{
				Difficulty: difficulty,
				Category:   category,
				QuizID:     quiz.QuizID,
				Value:      quiz.LastAttemptDate,
			})
			return
		}
		if tally, tracked := scan.Days[day]; tracked {
			tally.QuizCount++
			tally.TotalScore += quiz.Score
			scan.Days[day] = tally
		}
	})
	return scan
}

// BuildWeeklyActivity turns a scan into ordered histogram buckets for dates.
func BuildWeeklyActivity(scan ProgressScan, dates []time.Time, labels DayLabels) []entity.WeeklyActivityBucket {
	return lo.Map(dates, func(d time.Time, _ int) entity.WeeklyActivityBucket {
		key := d.Format(entity.DateLayout)
		tally := scan.Days[key]
		bucket := entity.WeeklyActivityBucket{
			Day:        labels[d.Weekday()],
			Date:       key,
			QuizCount:  tally.QuizCount,
			TotalScore: tally.TotalScore,
			Height:     BarHeight(tally.QuizCount),
		}
		if tally.QuizCount > 0 {
			bucket.AverageScore = tally.TotalScore / float64(tally.QuizCount)
		}
		return bucket
	})
}

// ComputeWeeklyActivity returns the seven daily buckets ending on today.
func ComputeWeeklyActivity(progress *entity.ProgressDocument, today time.Time, labels DayLabels) []entity.WeeklyActivityBucket {
	dates := WeekDates(today)
	return BuildWeeklyActivity(ScanProgress(progress, dates), dates, labels)
}

// BarHeight maps a daily quiz count to a chart height. Any activity shows at
// least the minimum height and ten or more quizzes fill the bar.
func BarHeight(quizCount int) string {
	if quizCount <= 0 {
		return "0%"
	}
	pct := min(max(quizCount*maxBarPercent/quizzesForFullBar, minBarPercent), maxBarPercent)
	return strconv.Itoa(pct) + "%"
}

// ComputeStats derives user statistics from the raw documents. It never fails:
// absent documents and fields contribute zero.
func ComputeStats(progress *entity.ProgressDocument, profile *entity.ProfileDocument, streak *entity.StreakRecord, weekly []entity.WeeklyActivityBucket) *entity.RealUserStats {
	return statsFromScan(ScanProgress(progress, nil), profile, streak, weekly)
}

func statsFromScan(scan ProgressScan, profile *entity.ProfileDocument, streak *entity.StreakRecord, weekly []entity.WeeklyActivityBucket) *entity.RealUserStats {
	if weekly == nil {
		weekly = []entity.WeeklyActivityBucket{}
	}
	stats := &entity.RealUserStats{
		TotalQuizzes:            scan.CompletedQuizzes,
		TotalQuestionsAttempted: profile.QuestionsAttempted(),
		TotalGoodAnswers:        profile.GoodAnswers(),
		QuizDurations:           profile.Durations(),
		WeeklyActivity:          weekly,
		MalformedTimestamps:     len(scan.Malformed),
	}
	if streak != nil {
		stats.CurrentStreak = streak.CurrentStreak
		stats.BestStreak = streak.BestStreak
	}
	if stats.TotalQuestionsAttempted > 0 {
		stats.AccuracyPercentage = float64(stats.TotalGoodAnswers) / float64(stats.TotalQuestionsAttempted) * 100
	}
	if n := len(stats.QuizDurations); n > 0 {
		stats.AverageTimeSeconds = lo.Sum(stats.QuizDurations) / float64(n)
	}
	return stats
}
