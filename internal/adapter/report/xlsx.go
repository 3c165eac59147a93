package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eslsoft/quizstats/internal/entity"
)

const (
	defaultSheet = "Sheet1"
	firstColumn  = "A"

	SummarySheet = "Summary"
	WeeklySheet  = "Weekly Activity"
	BadgesSheet  = "Badges"
)

// WriteWorkbook renders a workbook with summary, weekly activity and badge sheets.
func WriteWorkbook(w io.Writer, stats *entity.RealUserStats, badges []entity.Badge) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName(defaultSheet, SummarySheet)
	for _, name := range []string{WeeklySheet, BadgesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if stats == nil {
		stats = &entity.RealUserStats{}
	}
	if err := writeRows(f, SummarySheet, header, []string{"Metric", "Value"}, summaryRows(stats)); err != nil {
		return err
	}

	weekly := make([][]any, 0, len(stats.WeeklyActivity))
	for _, b := range stats.WeeklyActivity {
		weekly = append(weekly, []any{b.Day, b.Date, b.QuizCount, b.TotalScore, b.AverageScore, b.Height})
	}
	if err := writeRows(f, WeeklySheet, header, []string{"Day", "Date", "Quizzes", "Total Score", "Average Score", "Height"}, weekly); err != nil {
		return err
	}

	badgeRows := make([][]any, 0, len(badges))
	for _, b := range badges {
		badgeRows = append(badgeRows, []any{b.Icon, b.Name, b.Condition, earnedLabel(b.Earned)})
	}
	if err := writeRows(f, BadgesSheet, header, []string{"Icon", "Badge", "Condition", "Earned"}, badgeRows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func summaryRows(s *entity.RealUserStats) [][]any {
	return [][]any{
		{"User", s.UserID},
		{"Total quizzes", s.TotalQuizzes},
		{"Questions attempted", s.TotalQuestionsAttempted},
		{"Good answers", s.TotalGoodAnswers},
		{"Accuracy %", round2(s.AccuracyPercentage)},
		{"Average time (s)", round2(s.AverageTimeSeconds)},
		{"Current streak", s.CurrentStreak},
		{"Best streak", s.BestStreak},
		{"XP", s.XPPoints},
		{"Level", s.Level},
		{"Last updated", formatUpdated(s)},
	}
}

func writeRows(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, firstColumn, lastCol, 18)
}

func earnedLabel(earned bool) string {
	if earned {
		return "yes"
	}
	return "no"
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func formatUpdated(s *entity.RealUserStats) string {
	if s.LastUpdated.IsZero() {
		return ""
	}
	return entity.FormatISO(s.LastUpdated)
}
