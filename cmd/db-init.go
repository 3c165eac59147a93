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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// dbInitCmd creates the document schema and, with --user, the user's profile counters.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Create the document schema",
	Long:  "Create the document table (and the change-notification trigger on PostgreSQL). With --user, also create or repair that user's profile counters. Note: go-sqlite3 requires CGO_ENABLED=1.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		driver, _ := c.Config.DatabaseDriver()
		c.Logger.WithField("driver", driver).Info("document schema ready")

		ctx, identity, err := identityContext(cmd.Context())
		if errors.Is(err, errUserRequired) {
			return nil
		}
		result, err := c.Migration.EnsureStatsFields(ctx)
		if err != nil {
			return fmt.Errorf("ensure stats fields for %s: %w", identity.UserID, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeEnsure(identity.UserID, result))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
}
