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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/usecase"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replicate XP and lives from progress into the profile of --user",
}

var syncForceCmd = &cobra.Command{
	Use:   "force",
	Short: "Replicate the current XP and lives once",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := cliIdentity()
		if err != nil {
			return err
		}
		c, cleanup, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		report := c.Sync.ForceSyncAll(cmd.Context(), identity.UserID)
		printSyncReport(cmd.OutOrStdout(), report)
		if report.XPOutcome == usecase.SyncFailed || report.HeartsOutcome == usecase.SyncFailed {
			return fmt.Errorf("sync failed for %s", identity.UserID)
		}
		return nil
	},
}

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the progress document and replicate every change until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := cliIdentity()
		if err != nil {
			return err
		}
		c, cleanup, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		sub, err := c.Sync.StartUserProgressSync(ctx, identity.UserID, func(doc *entity.ProgressDocument) {
			if doc == nil {
				fmt.Fprintf(out, "%s: no progress document\n", identity.UserID)
				return
			}
			fmt.Fprintf(out, "%s: xp=%d hearts=%d\n", identity.UserID, doc.XP(), doc.Hearts())
		})
		if err != nil {
			return fmt.Errorf("start progress sync: %w", err)
		}
		defer sub.Stop()

		select {
		case <-ctx.Done():
		case <-sub.Done():
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncForceCmd, syncWatchCmd)
}

func printSyncReport(w io.Writer, r usecase.SyncReport) {
	fmt.Fprintf(w, "%s: xp=%d (%s) hearts=%d (%s)\n", r.UserID, r.XP, r.XPOutcome, r.Hearts, r.HeartsOutcome)
}
