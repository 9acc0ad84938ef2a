package fx

import (
	"go.uber.org/fx"

	"github.com/condor-legion/condor-stats/internal/config"
	"github.com/condor-legion/condor-stats/internal/database"
	"github.com/condor-legion/condor-stats/internal/logger"
	"github.com/condor-legion/condor-stats/internal/repository"
	"github.com/condor-legion/condor-stats/internal/server"
	"github.com/condor-legion/condor-stats/internal/service"
	"github.com/condor-legion/condor-stats/internal/stats"
)

func ProvideDataSource(store *repository.Store) stats.DataSource {
	return store
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// store
	fx.Provide(repository.NewStore),
	fx.Provide(ProvideDataSource),
	// svc
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewImportService),
	// server
	fx.Provide(server.NewStatsServer),
)
