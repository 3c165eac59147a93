/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/quizstats/internal/adapter/report"
	"github.com/eslsoft/quizstats/internal/entity"
)

const (
	exportFormatKey = "cli.export.format"
	exportOutputKey = "cli.export.output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show or export a user's statistics",
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the statistics of --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, _, err := identityContext(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := c.Stats.GetRealUserStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		badges, err := c.Badges.Evaluate(stats)
		if err != nil {
			return fmt.Errorf("evaluate badges: %w", err)
		}
		renderStats(cmd.OutOrStdout(), stats, badges)
		return nil
	},
}

var statsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the statistics of --user as json, gzip or xlsx",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		format, err := report.ParseFormat(viper.GetString(exportFormatKey))
		if err != nil {
			return err
		}

		c, cleanup, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, identity, err := identityContext(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := c.Stats.ComputeUserStats(ctx, identity.UserID)
		if err != nil {
			return fmt.Errorf("compute stats: %w", err)
		}
		badges, err := c.Badges.Evaluate(stats)
		if err != nil {
			return fmt.Errorf("evaluate badges: %w", err)
		}

		outputPath := viper.GetString(exportOutputKey)
		if outputPath == "" {
			outputPath = defaultExportFilename(identity.UserID, format, time.Now())
		}

		var w io.Writer = cmd.OutOrStdout()
		if outputPath != "-" {
			file, createErr := os.Create(filepath.Clean(outputPath))
			if createErr != nil {
				return fmt.Errorf("create export file: %w", createErr)
			}
			defer func() {
				if closeErr := file.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("close export file: %w", closeErr)
				}
			}()
			w = file
		}

		if err := report.Write(w, format, stats, badges); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		if outputPath != "-" {
			c.Logger.WithField("path", outputPath).Info("stats exported")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsShowCmd, statsExportCmd)

	statsExportCmd.Flags().String("format", string(report.FormatJSON), "export format: json, gzip or xlsx")
	statsExportCmd.Flags().StringP("output", "o", "", "output path, - for stdout (default stats-<user>-<timestamp>.<ext>)")
	bindFlagToViper(exportFormatKey, statsExportCmd.Flags().Lookup("format"))
	bindFlagToViper(exportOutputKey, statsExportCmd.Flags().Lookup("output"))
}

func defaultExportFilename(userID string, format report.Format, now time.Time) string {
	return fmt.Sprintf("stats-%s-%s%s", userID, now.UTC().Format("20060102-150405"), format.Extension())
}

func renderStats(w io.Writer, stats *entity.RealUserStats, badges []entity.Badge) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.AppendBulk([][]string{
		{"User", stats.UserID},
		{"Level", strconv.FormatInt(stats.Level, 10)},
		{"XP", humanize.Comma(stats.XPPoints)},
		{"Completed quizzes", strconv.Itoa(stats.TotalQuizzes)},
		{"Questions attempted", humanize.Comma(stats.TotalQuestionsAttempted)},
		{"Good answers", humanize.Comma(stats.TotalGoodAnswers)},
		{"Accuracy", fmt.Sprintf("%.1f%%", stats.AccuracyPercentage)},
		{"Average time", fmt.Sprintf("%.1fs", stats.AverageTimeSeconds)},
		{"Current streak", strconv.FormatInt(stats.CurrentStreak, 10)},
		{"Best streak", strconv.FormatInt(stats.BestStreak, 10)},
		{"Last updated", lastUpdatedLabel(stats.LastUpdated)},
	})
	summary.Render()

	week := tablewriter.NewWriter(w)
	week.SetHeader([]string{"Day", "Date", "Quizzes", "Avg score", "Bar"})
	for _, b := range stats.WeeklyActivity {
		week.Append([]string{b.Day, b.Date, strconv.Itoa(b.QuizCount), fmt.Sprintf("%.1f", b.AverageScore), b.Height})
	}
	week.Render()

	if len(badges) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Badge", "Name", "Earned"})
	for _, b := range badges {
		earned := "no"
		if b.Earned {
			earned = "yes"
		}
		table.Append([]string{b.Icon, b.Name, earned})
	}
	table.Render()
}

func lastUpdatedLabel(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
