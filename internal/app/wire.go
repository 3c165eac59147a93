//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/adapter/connectrpc"
	adapterrepo "github.com/eslsoft/quizstats/internal/adapter/repository"
	"github.com/eslsoft/quizstats/internal/infrastructure/config"
	"github.com/eslsoft/quizstats/internal/infrastructure/server"
	"github.com/eslsoft/quizstats/internal/usecase"
)

var configSet = wire.NewSet(
	config.Load,
)

var storeSet = wire.NewSet(
	ProvideStore,
	ProvideCollections,
)

var repositorySet = wire.NewSet(
	adapterrepo.NewProgressRepository,
	adapterrepo.NewProfileRepository,
	adapterrepo.NewStreakRepository,
	adapterrepo.NewProgressAuditor,
)

var usecaseSet = wire.NewSet(
	ProvideProgressReader,
	ProvideStatsCache,
	ProvideDayLabels,
	ProvideBadgeDefinitions,
	ProvideSyncUsecase,
	usecase.NewStreakUsecase,
	usecase.NewStatsUsecase,
	usecase.NewBadgeUsecase,
	usecase.NewMigrationUsecase,
)

var serviceSet = wire.NewSet(
	connectrpc.NewStatsServiceServer,
	connectrpc.NewSyncServiceServer,
	connectrpc.NewMigrationServiceServer,
	wire.Struct(new(connectrpc.Services), "*"),
	ProvideAuthHeaders,
	ProvideRPCHandler,
)

var serverSet = wire.NewSet(
	server.NewLogger,
	wire.Bind(new(logrus.FieldLogger), new(*logrus.Logger)),
	ProvideServer,
	ProvideReconciler,
)

// Initialize builds the application container using Wire.
func Initialize(configFile string) (*Container, func(), error) {
	wire.Build(
		configSet,
		storeSet,
		repositorySet,
		usecaseSet,
		serviceSet,
		serverSet,
		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}
