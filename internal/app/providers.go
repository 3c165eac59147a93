package app

import (
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/adapter/connectrpc"
	adapterrepo "github.com/eslsoft/quizstats/internal/adapter/repository"
	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/config"
	"github.com/eslsoft/quizstats/internal/infrastructure/database"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/infrastructure/scheduler"
	"github.com/eslsoft/quizstats/internal/infrastructure/server"
	"github.com/eslsoft/quizstats/internal/repository"
	"github.com/eslsoft/quizstats/internal/usecase"
)

// ProvideStore opens the configured database and returns the document store on top of it.
// The schema is not created here; callers run Init.
func ProvideStore(cfg *config.Config, logger *logrus.Logger) (docstore.Store, func(), error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case "postgres":
		pool, closePool, err := database.NewConnection(cfg, logger)
		if err != nil {
			if closePool != nil {
				closePool()
			}
			return nil, nil, err
		}
		dsn, err := cfg.DatabaseURL()
		if err != nil {
			closePool()
			return nil, nil, err
		}
		store := docstore.NewPostgresStore(pool, dsn, logger)
		return store, func() {
			_ = store.Close()
			closePool()
		}, nil
	case "sqlite3":
		db, closeDB, err := database.NewSQLite(cfg)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.NewSQLiteStore(db, logger)
		return store, func() {
			_ = store.Close()
			closeDB()
		}, nil
	default:
		return nil, nil, fmt.Errorf("no document store for driver %s", driver)
	}
}

func ProvideCollections(cfg *config.Config) adapterrepo.Collections {
	return adapterrepo.Collections{
		Progress: cfg.Collections.Progress,
		Profiles: cfg.Collections.Profiles,
		Streaks:  cfg.Collections.Streaks,
	}
}

func ProvideProgressReader(repo repository.ProgressRepository, cfg *config.Config) usecase.ProgressReader {
	return usecase.NewProgressReader(repo, cfg.Stats.ProgressCacheTTL)
}

func ProvideStatsCache(cfg *config.Config) *usecase.StatsCache {
	return usecase.NewStatsCache(cfg.Stats.CacheTTL)
}

func ProvideDayLabels(cfg *config.Config) usecase.DayLabels {
	return usecase.DayLabelsFor(entity.ParseLanguage(cfg.Stats.DayLabels))
}

// ProvideBadgeDefinitions merges configured badges over the built-in set.
func ProvideBadgeDefinitions(cfg *config.Config) []entity.BadgeDefinition {
	overrides := lo.Map(cfg.Badges, func(b config.BadgeConfig, _ int) entity.BadgeDefinition {
		return entity.BadgeDefinition{ID: b.ID, Icon: b.Icon, Name: b.Name, Condition: b.Condition}
	})
	return entity.MergeBadges(entity.DefaultBadges(), overrides)
}

// ProvideSyncUsecase stops every live subscription on cleanup.
func ProvideSyncUsecase(
	progressRepo repository.ProgressRepository,
	profiles repository.ProfileRepository,
	progress usecase.ProgressReader,
	logger logrus.FieldLogger,
) (usecase.SyncUsecase, func()) {
	uc := usecase.NewSyncUsecase(progressRepo, profiles, progress, logger)
	return uc, uc.Cleanup
}

func ProvideAuthHeaders(cfg *config.Config) connectrpc.AuthHeaders {
	return connectrpc.AuthHeaders{
		User:  cfg.Auth.UserHeader,
		Email: cfg.Auth.EmailHeader,
		Name:  cfg.Auth.NameHeader,
	}
}

// ProvideRPCHandler mounts the connect services behind request logging and
// identity extraction, in that order.
func ProvideRPCHandler(services connectrpc.Services, headers connectrpc.AuthHeaders, logger *logrus.Logger) http.Handler {
	return connectrpc.NewHandler(services, connect.WithInterceptors(
		server.NewLoggingInterceptor(logger),
		connectrpc.NewIdentityInterceptor(headers),
	))
}

func ProvideServer(cfg *config.Config, logger *logrus.Logger, rpc http.Handler, headers connectrpc.AuthHeaders) *server.Server {
	return server.NewServer(cfg, logger, rpc, headers.List())
}

func ProvideReconciler(sync usecase.SyncUsecase, cfg *config.Config, logger *logrus.Logger) *scheduler.Reconciler {
	return scheduler.NewReconciler(sync, cfg.Sync.ReconcileInterval, logger)
}
