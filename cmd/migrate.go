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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/usecase"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Repair the profile counters of --user",
}

var migrateEnsureCmd = &cobra.Command{
	Use:   "ensure-fields",
	Short: "Create the profile or add its missing counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigration(cmd, func(ctx context.Context, out io.Writer, uc usecase.MigrationUsecase, identity entity.Identity) error {
			result, err := uc.EnsureStatsFields(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, describeEnsure(identity.UserID, result))
			return nil
		})
	},
}

var migrateBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute totalQuizzes from the progress document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigration(cmd, func(ctx context.Context, out io.Writer, uc usecase.MigrationUsecase, identity entity.Identity) error {
			total, err := uc.BackfillFromProgress(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: totalQuizzes set to %d\n", identity.UserID, total)
			return nil
		})
	},
}

var migrateDiagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Report on the profile and progress documents without changing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigration(cmd, func(ctx context.Context, out io.Writer, uc usecase.MigrationUsecase, identity entity.Identity) error {
			diagnosis, err := uc.Diagnose(ctx)
			if err != nil {
				return err
			}
			renderDiagnosis(out, diagnosis)
			return nil
		})
	},
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ensure-fields then backfill",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigration(cmd, func(ctx context.Context, out io.Writer, uc usecase.MigrationUsecase, identity entity.Identity) error {
			result, err := uc.RunFullMigration(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, describeEnsure(identity.UserID, result.EnsureFieldsResult))
			fmt.Fprintf(out, "%s: totalQuizzes set to %d\n", identity.UserID, result.BackfilledQuizzes)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateEnsureCmd, migrateBackfillCmd, migrateDiagnoseCmd, migrateRunCmd)
}

type migrationFunc func(ctx context.Context, out io.Writer, uc usecase.MigrationUsecase, identity entity.Identity) error

func withMigration(cmd *cobra.Command, fn migrationFunc) error {
	ctx, identity, err := identityContext(cmd.Context())
	if err != nil {
		return err
	}
	c, cleanup, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, cmd.OutOrStdout(), c.Migration, identity)
}

func describeEnsure(userID string, result usecase.EnsureFieldsResult) string {
	switch {
	case result.Created:
		return fmt.Sprintf("%s: profile created with zeroed counters", userID)
	case len(result.AddedFields) > 0:
		return fmt.Sprintf("%s: added %s", userID, strings.Join(result.AddedFields, ", "))
	default:
		return fmt.Sprintf("%s: all stats fields present", userID)
	}
}

func renderDiagnosis(w io.Writer, d *entity.Diagnosis) {
	status := "healthy"
	if !d.Healthy() {
		status = "needs attention"
	}
	missing := strings.Join(d.MissingFields, ", ")
	if missing == "" {
		missing = "-"
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Result"})
	table.AppendBulk([][]string{
		{"User", d.UserID},
		{"Email", d.Email},
		{"Profile", yesNo(d.ProfileExists)},
		{"Progress", yesNo(d.ProgressExists)},
		{"Missing fields", missing},
		{"Status", status},
	})
	if d.Progress != nil {
		table.Append([]string{"Progress XP", fmt.Sprint(d.Progress.XP())})
		table.Append([]string{"Progress hearts", fmt.Sprint(d.Progress.Hearts())})
	}
	table.Render()

	if len(d.DataIssues) == 0 {
		return
	}
	issues := tablewriter.NewWriter(w)
	issues.SetHeader([]string{"Location", "Issue"})
	for _, issue := range d.DataIssues {
		issues.Append([]string{issue.Location, issue.Message})
	}
	issues.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
