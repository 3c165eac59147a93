package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/config"
)

func TestInitializeSQLite(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	content := "database:\n" +
		"  driver: sqlite3\n" +
		"  path: " + filepath.Join(dir, "quizstats.db") + "\n" +
		"log:\n" +
		"  level: warn\n" +
		"badges:\n" +
		"  - id: explorer\n" +
		"    condition: totalQuizzes >= 1\n" +
		"  - id: newcomer\n" +
		"    name: Newcomer\n" +
		"    condition: level >= 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, cleanup, err := Initialize(path)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx := context.Background()
	require.NoError(t, c.Store.Init(ctx))
	ctx = entity.ContextWithIdentity(ctx, entity.Identity{UserID: "u1", Email: "u1@example.com"})

	result, err := c.Migration.RunFullMigration(ctx)
	require.NoError(t, err)
	assert.True(t, result.Created)

	stats, err := c.Stats.GetRealUserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", stats.UserID)
	assert.Len(t, stats.WeeklyActivity, 7)

	badges, err := c.Badges.ListBadges(ctx)
	require.NoError(t, err)
	earned := map[string]bool{}
	for _, b := range badges {
		earned[b.ID] = b.Earned
	}
	assert.False(t, earned["explorer"])
	assert.True(t, earned["newcomer"])
	assert.Len(t, badges, len(entity.DefaultBadges())+1)

	assert.NotNil(t, c.Server.Handler())
	assert.NotNil(t, c.Reconciler)
}

func TestProvideBadgeDefinitions(t *testing.T) {
	cfg := &config.Config{Badges: []config.BadgeConfig{{ID: "explorer", Condition: "totalQuizzes >= 5"}}}

	defs := ProvideBadgeDefinitions(cfg)
	byID := map[string]entity.BadgeDefinition{}
	for _, d := range defs {
		byID[d.ID] = d
	}
	assert.Equal(t, "totalQuizzes >= 5", byID["explorer"].Condition)
	assert.Equal(t, "Explorer", byID["explorer"].Name)
}
