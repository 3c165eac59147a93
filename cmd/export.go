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
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/quizstats/internal/usecase/backup"
)

const (
	backupExportOutputKey      = "backup.export.output"
	backupExportGzipKey        = "backup.export.gzip"
	backupExportCollectionsKey = "backup.export.collections"
	backupExportBatchKey       = "backup.export.batch_size"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored documents as an NDJSON backup",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		outputPath := viper.GetString(backupExportOutputKey)
		gzipEnabled := viper.GetBool(backupExportGzipKey)
		collections := collectionsFromConfig(backupExportCollectionsKey)

		if outputPath == "" {
			outputPath = defaultBackupFilename(gzipEnabled, time.Now())
		}
		if !gzipEnabled && outputPath != "-" && strings.HasSuffix(strings.ToLower(outputPath), ".gz") {
			gzipEnabled = true
		}

		service, err := newBackupService(viper.GetInt(backupExportBatchKey))
		if err != nil {
			return err
		}

		var (
			writer   = cmd.OutOrStdout()
			closeFns []func() error
		)

		if outputPath != "-" {
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			file, openErr := os.Create(outputPath)
			if openErr != nil {
				return fmt.Errorf("create backup file: %w", openErr)
			}
			writer = file
			closeFns = append(closeFns, file.Close)
		}

		if gzipEnabled {
			gz := gzip.NewWriter(writer)
			writer = gz
			closeFns = append([]func() error{gz.Close}, closeFns...)
		}

		defer func() {
			for _, closer := range closeFns {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		progress := newCLIProgress(cmd.ErrOrStderr())
		exportOpts := []backup.ExportOption{backup.WithProgressReporter(progress)}
		if len(collections) > 0 {
			exportOpts = append(exportOpts, backup.WithCollections(collections))
		}

		if err := service.Export(ctx, writer, exportOpts...); err != nil {
			return fmt.Errorf("export backup: %w", err)
		}

		if outputPath == "-" {
			cmd.PrintErrln("export finished: written to stdout")
		} else {
			cmd.Printf("export finished: %s\n", outputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "backup file path, - for stdout")
	exportCmd.Flags().Bool("gzip", false, "gzip the output")
	exportCmd.Flags().StringSlice("collections", nil, "only export these collections, comma separated or repeated")
	exportCmd.Flags().Int("batch-size", 0, "export batch size (default 512)")

	bindExportConfig()
}

func defaultBackupFilename(gzipEnabled bool, now time.Time) string {
	ts := now.UTC().Format("20060102-150405")
	filename := fmt.Sprintf("quizstats-backup-%s.jsonl", ts)
	if gzipEnabled {
		filename += ".gz"
	}
	return filename
}

func bindExportConfig() {
	bindFlagToViper(backupExportOutputKey, exportCmd.Flags().Lookup("output"))
	bindFlagToViper(backupExportGzipKey, exportCmd.Flags().Lookup("gzip"))
	bindFlagToViper(backupExportCollectionsKey, exportCmd.Flags().Lookup("collections"))
	bindFlagToViper(backupExportBatchKey, exportCmd.Flags().Lookup("batch-size"))
}

type cliProgress struct {
	out         io.Writer
	totals      map[string]int
	counts      map[string]int
	lastPrinted map[string]int
	steps       map[string]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[string]int),
		counts:      make(map[string]int),
		lastPrinted: make(map[string]int),
		steps:       make(map[string]int),
	}
}

func (p *cliProgress) StartCollection(collection string, total int) {
	if total < 0 {
		total = 0
	}
	p.totals[collection] = total
	p.counts[collection] = 0
	p.lastPrinted[collection] = 0
	p.steps[collection] = progressStep(total)
	fmt.Fprintf(p.out, "exporting %s (%s documents)\n", collection, humanize.Comma(int64(total)))
}

func (p *cliProgress) Increment(collection string, delta int) {
	if delta <= 0 {
		return
	}
	current := p.counts[collection] + delta
	p.counts[collection] = current
	total := p.totals[collection]
	step := p.steps[collection]
	if step <= 0 {
		step = 1
	}
	last := p.lastPrinted[collection]
	if current == total || last == 0 || current-last >= step {
		p.printProgress(collection, current, total)
		p.lastPrinted[collection] = current
	}
}

func (p *cliProgress) FinishCollection(collection string) {
	current := p.counts[collection]
	total := p.totals[collection]
	if current != p.lastPrinted[collection] {
		p.printProgress(collection, current, total)
	}
	fmt.Fprintf(p.out, "exported %s: %s documents\n", collection, humanize.Comma(int64(current)))
	delete(p.counts, collection)
	delete(p.totals, collection)
	delete(p.lastPrinted, collection)
	delete(p.steps, collection)
}

func (p *cliProgress) printProgress(collection string, current, total int) {
	if total > 0 {
		fmt.Fprintf(p.out, "%s: %d/%d\n", collection, current, total)
	} else {
		fmt.Fprintf(p.out, "%s: %d processed\n", collection, current)
	}
}

func progressStep(total int) int {
	if total <= 0 {
		return 1000
	}
	return min(max(total/20, 1), 1000)
}
