package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/eslsoft/quizstats/internal/infrastructure/config"
	"github.com/eslsoft/quizstats/internal/usecase/backup"
)

func collectionsFromConfig(key string) []string {
	return normalizeCollections(viper.GetStringSlice(key))
}

func normalizeCollections(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		result = append(result, name)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// newBackupService opens a backup service on the configured database. The
// postgres driver is served by lib/pq through database/sql.
func newBackupService(batchSize int) (*backup.Service, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, fmt.Errorf("resolve database driver: %w", err)
	}
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, fmt.Errorf("resolve database DSN: %w", err)
	}
	service, err := backup.NewService(driver, dsn, backup.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("create backup service: %w", err)
	}
	return service, nil
}
