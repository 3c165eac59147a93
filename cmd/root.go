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

	"github.com/spf13/cobra"

	"github.com/eslsoft/quizstats/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "quizstats",
	Short:        "Quiz statistics and profile sync service",
	Long:         "quizstats serves per-user quiz statistics, replicates XP and lives into user profiles and repairs profile counters.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().String("user", "", "user id the command acts as")
	rootCmd.PersistentFlags().String("email", "", "email of the acting user")
	rootCmd.PersistentFlags().String("name", "", "display name of the acting user")

	bindFlagToViper(userKey, rootCmd.PersistentFlags().Lookup("user"))
	bindFlagToViper(emailKey, rootCmd.PersistentFlags().Lookup("email"))
	bindFlagToViper(nameKey, rootCmd.PersistentFlags().Lookup("name"))
}

// newContainer builds the application graph and makes sure the document schema exists.
func newContainer(cmd *cobra.Command) (*app.Container, func(), error) {
	c, cleanup, err := app.Initialize(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize application: %w", err)
	}
	if err := c.Store.Init(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init document store: %w", err)
	}
	return c, cleanup, nil
}

// ensureSchema creates the document schema without keeping the application running.
func ensureSchema(cmd *cobra.Command) error {
	_, cleanup, err := newContainer(cmd)
	if err != nil {
		return err
	}
	cleanup()
	return nil
}
