package main

import (
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/foodrush/tracking/internal/pkg/config"
	"github.com/foodrush/tracking/internal/pkg/database"
	"github.com/foodrush/tracking/internal/pkg/health"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/middleware"
	natspkg "github.com/foodrush/tracking/internal/pkg/nats"
	nrpkg "github.com/foodrush/tracking/internal/pkg/newrelic"
	"github.com/foodrush/tracking/internal/pkg/server"
	wspkg "github.com/foodrush/tracking/internal/pkg/websocket"
	"github.com/foodrush/tracking/services/tracking/gateway"
	"github.com/foodrush/tracking/services/tracking/handler"
	wsHandler "github.com/foodrush/tracking/services/tracking/handler/websocket"
	"github.com/foodrush/tracking/services/tracking/repository"
	"github.com/foodrush/tracking/services/tracking/usecase"
)

func main() {
	appName := "tracking-service"
	configPath := os.Getenv("CONFIG_PATH")
	configs := config.InitConfig(configPath)

	// Initialize New Relic before the logger so log forwarding attaches
	nrApp := nrpkg.InitNewRelic(configs)
	if nrApp != nil {
		if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			log.Printf("Warning: New Relic connection timeout: %v", err)
		}
	}

	appLogger, err := logger.New(configs.Logger, nrApp)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()
	logger.SetGlobalLogger(appLogger)

	appLogger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("environment", configs.App.Environment))

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresClient.Close()

	redisClient, err := database.NewRedisClient(configs.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer redisClient.Close()

	natsClient, err := natspkg.NewClient(configs.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", logger.Err(err))
	}
	defer natsClient.Close()

	// Repositories
	trackingRepo := repository.NewTrackingRepository(redisClient)
	orderRepo := repository.NewOrderRepository(postgresClient)

	// Gateway
	trackingGW := gateway.NewTrackingGW(natsClient, appLogger)

	// UseCase
	trackingUC := usecase.NewTrackingUC(orderRepo, trackingRepo, trackingGW)

	// Handlers
	manager := wspkg.NewManager(configs.JWT)
	trackingWS := wsHandler.NewWebSocketHandler(trackingUC, manager)
	h := handler.NewHandler(trackingUC, trackingWS, configs)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.EchoMiddleware(appLogger))

	health.RegisterHealthEndpoints(e, appName)
	h.RegisterRoutes(e)

	srv := server.NewGracefulServer(e, appLogger, configs.Server.Port)
	if err := srv.Start(); err != nil {
		appLogger.Fatal("Server stopped with error", logger.Err(err))
	}
}
