package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eslsoft/quizstats/internal/adapter/report"
	"github.com/eslsoft/quizstats/internal/usecase"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n" +
		"  driver: sqlite3\n" +
		"  path: " + filepath.Join(dir, "quizstats.db") + "\n" +
		"log:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestDBInitAndMigrate(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := executeCommand(t, "db-init", "--config", cfg, "--user", "u1", "--email", "u1@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "u1: profile created with zeroed counters")

	out, err = executeCommand(t, "migrate", "ensure-fields", "--config", cfg, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "u1: all stats fields present")

	out, err = executeCommand(t, "migrate", "diagnose", "--config", cfg, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
	assert.NotContains(t, out, "needs attention")

	out, err = executeCommand(t, "migrate", "backfill", "--config", cfg, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "u1: totalQuizzes set to 0")
}

func TestSyncForceWithoutProgress(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := executeCommand(t, "sync", "force", "--config", cfg, "--user", "u2")
	require.NoError(t, err)
	assert.Contains(t, out, "u2: xp=0 (skipped_missing_progress) hearts=0 (skipped_missing_progress)")
}

func TestStatsShowAndExport(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := executeCommand(t, "stats", "show", "--config", cfg, "--user", "u3")
	require.NoError(t, err)
	assert.Contains(t, out, "Completed quizzes")
	assert.Contains(t, out, "Quiz Master")

	path := filepath.Join(t.TempDir(), "stats.xlsx")
	_, err = executeCommand(t, "stats", "export", "--config", cfg, "--user", "u3", "--format", "xlsx", "--output", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")

	_, err = executeCommand(t, "stats", "export", "--config", cfg, "--user", "u3", "--format", "csv")
	assert.Error(t, err)
}

func TestDescribeEnsure(t *testing.T) {
	assert.Equal(t, "u: added lives, xpPoints", describeEnsure("u", usecase.EnsureFieldsResult{AddedFields: []string{"lives", "xpPoints"}}))
	assert.Equal(t, "u: profile created with zeroed counters", describeEnsure("u", usecase.EnsureFieldsResult{Created: true}))
	assert.Equal(t, "u: all stats fields present", describeEnsure("u", usecase.EnsureFieldsResult{}))
}

func TestDefaultExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "stats-u1-20240315-123000.xlsx", defaultExportFilename("u1", report.FormatXLSX, now))
}

func TestBackupExportImport(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := executeCommand(t, "db-init", "--config", cfg, "--user", "u9")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backup.jsonl.gz")
	out, err := executeCommand(t, "export", "--config", cfg, "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "export finished: "+path)
	assert.Contains(t, out, "exported users: 1 documents")

	other := writeTestConfig(t)
	out, err = executeCommand(t, "import", "--config", other, "--input", path)
	require.NoError(t, err)
	assert.Contains(t, out, "import finished: "+path)

	out, err = executeCommand(t, "migrate", "diagnose", "--config", other, "--user", "u9")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
}

func TestNormalizeCollections(t *testing.T) {
	assert.Nil(t, normalizeCollections(nil))
	assert.Nil(t, normalizeCollections([]string{" ", ""}))
	assert.Equal(t, []string{"users", "userProgress"}, normalizeCollections([]string{" users", "userProgress "}))
	assert.Equal(t, 1, progressStep(5))
	assert.Equal(t, 1000, progressStep(0))
	assert.Equal(t, 50, progressStep(1000))
}
