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
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/quizstats/internal/usecase/backup"
)

const (
	backupImportInputKey       = "backup.import.input"
	backupImportGzipKey        = "backup.import.gzip"
	backupImportCollectionsKey = "backup.import.collections"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore documents from an NDJSON backup",
	Long:  "Restore documents from a backup written by export. Existing documents with the same collection and id are replaced; the whole import runs in one transaction.",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		if err := ensureSchema(cmd); err != nil {
			return err
		}

		inputPath := viper.GetString(backupImportInputKey)
		gzipEnabled := viper.GetBool(backupImportGzipKey)
		collections := collectionsFromConfig(backupImportCollectionsKey)

		if inputPath == "" {
			return fmt.Errorf("pass --input with a backup file, or - for stdin")
		}
		if !gzipEnabled && inputPath != "-" && strings.HasSuffix(strings.ToLower(inputPath), ".gz") {
			gzipEnabled = true
		}

		service, err := newBackupService(0)
		if err != nil {
			return err
		}

		var (
			reader  = cmd.InOrStdin()
			closers []func() error
		)

		if inputPath != "-" {
			file, openErr := os.Open(filepath.Clean(inputPath))
			if openErr != nil {
				return fmt.Errorf("open backup file: %w", openErr)
			}
			reader = file
			closers = append(closers, file.Close)
		}

		if gzipEnabled {
			gzr, gzErr := gzip.NewReader(reader)
			if gzErr != nil {
				return fmt.Errorf("create gzip reader: %w", gzErr)
			}
			reader = gzr
			closers = append([]func() error{gzr.Close}, closers...)
		}

		defer func() {
			for _, closer := range closers {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		var importOpts []backup.ImportOption
		if len(collections) > 0 {
			importOpts = append(importOpts, backup.WithImportCollections(collections))
		}

		if err := service.Import(ctx, reader, importOpts...); err != nil {
			return fmt.Errorf("import backup: %w", err)
		}

		if inputPath == "-" {
			cmd.Println("import finished: read from stdin")
		} else {
			cmd.Printf("import finished: %s\n", inputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("input", "i", "", "backup file path, - for stdin")
	importCmd.Flags().Bool("gzip", false, "input is gzip compressed")
	importCmd.Flags().StringSlice("collections", nil, "only import these collections, comma separated or repeated")

	bindImportConfig()
}

func bindImportConfig() {
	bindFlagToViper(backupImportInputKey, importCmd.Flags().Lookup("input"))
	bindFlagToViper(backupImportGzipKey, importCmd.Flags().Lookup("gzip"))
	bindFlagToViper(backupImportCollectionsKey, importCmd.Flags().Lookup("collections"))
}
