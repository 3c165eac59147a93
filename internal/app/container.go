package app

import (
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/infrastructure/config"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/infrastructure/scheduler"
	"github.com/eslsoft/quizstats/internal/infrastructure/server"
	"github.com/eslsoft/quizstats/internal/usecase"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Store      docstore.Store
	Stats      usecase.StatsUsecase
	Badges     usecase.BadgeUsecase
	Sync       usecase.SyncUsecase
	Migration  usecase.MigrationUsecase
	Server     *server.Server
	Reconciler *scheduler.Reconciler
}
