package app

import (
	"context"
	"database/sql"

	goredis "github.com/redis/go-redis/v9"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sensorvision/internal/auth"
	"sensorvision/internal/config"
	"sensorvision/internal/engine"
	httpserver "sensorvision/internal/http"
	"sensorvision/internal/http/handlers"
	"sensorvision/internal/http/middleware"
	"sensorvision/internal/redisstore"
	"sensorvision/internal/repository"
	"sensorvision/internal/service"
	"sensorvision/internal/stats"
	"sensorvision/internal/ws"
	"sensorvision/libs/db"
	libredis "sensorvision/libs/redis"
)

// App wires synthetic variable service dependencies.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	redis  *goredis.Client
	logger *zap.Logger
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	telemetryRepo := repository.NewTelemetryRepository(sqlDB)
	variableRepo := repository.NewSyntheticVariableRepository(sqlDB)
	valueRepo := repository.NewCalculatedValueRepository(sqlDB)
	deviceRepo := repository.NewDeviceRepository(sqlDB)

	aggregator := stats.NewAggregator(telemetryRepo)
	scheduler := engine.NewScheduler(variableRepo, valueRepo, aggregator, logger)

	latestStore := redisstore.NewLatestValueStore(redisClient, cfg.Redis.LatestTTL)
	hub := ws.NewHub(cfg.WS.PingInterval, logger)

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	deviceTokens := auth.NewDeviceTokenHasher(cfg.Auth.BcryptCost)

	telemetryService := service.NewTelemetryService(telemetryRepo, variableRepo, scheduler, latestStore, hub, logger)
	variableService := service.NewVariableService(variableRepo, valueRepo, deviceRepo, latestStore, logger)
	deviceService := service.NewDeviceService(deviceRepo, deviceTokens, logger)

	routes := httpserver.Routes{
		Ingest:    handlers.NewIngestHandler(telemetryService, deviceService, logger),
		Devices:   handlers.NewDevicesHandler(deviceService, logger),
		Variables: handlers.NewVariablesHandler(variableService, logger),
		Values:    handlers.NewValuesHandler(variableService, logger),
		WS:        handlers.NewWSHandler(hub, logger),
		Health:    handlers.NewHealthHandler(),
		Metrics:   promhttp.Handler(),
	}

	router := httpserver.NewRouter(routes, middleware.UserAuth(tokenService))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server: server,
		db:     sqlDB,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// Run starts serving HTTP requests.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
