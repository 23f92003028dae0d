package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	chainport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/chain"
	ledgerport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	accountUseCase "github.com/amirhossein-jamali/settlement-engine/internal/domain/usecase/account"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/usecase/reconcile"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/usecase/settlement"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/middleware"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/routes"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/chain"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/ledger"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/metrics"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/notification"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/repository"
	timeProvider "github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/config"
)

// closableSink is a notification sink that may hold buffered messages
type closableSink interface {
	Notify(ctx context.Context, userID uint64, message string, severity entity.Severity)
	Close(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(coreport.ParseLogLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()
	ctx := context.Background()

	var settlementMetrics coreport.SettlementMetrics = coreport.NoopMetrics{}
	var promMetrics *metrics.PrometheusMetrics
	if cfg.Metrics.Enabled {
		promMetrics = metrics.NewPrometheusMetrics()
		settlementMetrics = promMetrics
	}

	// Ledger store
	var store persistence.LedgerStore
	var dbManager *database.Manager
	dbConfig := database.CreateConfigFromAppConfig(cfg)
	if dbConfig.Driver == database.DriverMemory {
		appLogger.Warn("Using in-memory ledger store, state is lost on restart", nil)
		store = repository.NewMemoryLedgerStore()
	} else {
		var poolMetrics database.PoolMetrics
		if promMetrics != nil {
			poolMetrics = promMetrics
		}
		dbManager = database.NewManager(dbConfig, appLogger, tp, poolMetrics)
		if _, err := dbManager.Connect(ctx); err != nil {
			appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		if err := dbManager.Migrate(ctx); err != nil {
			appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		store = repository.NewGormLedgerStore(dbManager.DB(), appLogger)
	}

	deferredStore, err := repository.NewBadgerDeferredStore(repository.DeferredStoreConfig{
		Path:     cfg.Deferred.Path,
		InMemory: cfg.Deferred.InMemory,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to open deferred event store", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	var externalLedger ledgerport.ExternalLedger
	if cfg.Chain.RPCURL != "" {
		reader, err := ledger.NewCometBFTLedger(ledger.CometBFTConfig{
			RPCURL:  cfg.Chain.RPCURL,
			Timeout: cfg.Chain.RPCTimeout(),
		}, appLogger)
		if err != nil {
			appLogger.Error("Failed to configure external ledger reader", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		externalLedger = reader
	}

	sink, err := newNotificationSink(cfg.Notification, appLogger)
	if err != nil {
		appLogger.Error("Failed to configure notifications", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Settlement pipeline
	queue := settlement.NewIntentQueue(cfg.Settlement.QueueCapacity)
	workerConfig := settlement.DefaultWorkerConfig()
	workerConfig.ProcessingTimeout = coreport.Duration(cfg.Settlement.ProcessingTimeout())
	workerConfig.PersistTimeout = coreport.Duration(cfg.Settlement.PersistTimeout())
	workerConfig.Retry.MaxRetries = cfg.Settlement.MaxRetries
	workerConfig.Retry.RetryInterval = cfg.Settlement.RetryInterval()
	workerConfig.ConfirmationHorizon = coreport.Duration(cfg.Settlement.ConfirmationHorizon())
	workerConfig.SweepInterval = coreport.Duration(cfg.Settlement.SweepInterval())
	workerConfig.SweepBatch = cfg.Settlement.SweepBatch
	workerConfig.ConfirmationBuffer = cfg.Settlement.ConfirmationBuffer

	worker := settlement.NewSettlementWorker(queue, store, sink, appLogger, tp, settlementMetrics, workerConfig)
	settlementService := settlement.NewService(store, queue, worker, externalLedger, sink, appLogger, tp, settlementMetrics)
	reconciler := reconcile.NewReconciler(store, deferredStore, worker, sink, appLogger, tp, settlementMetrics, reconcile.DefaultConfig())
	accounts := accountUseCase.NewAccountUseCase(store, externalLedger, reconciler, tp, appLogger)

	if err := accounts.CreateDefaultAccounts(ctx); err != nil {
		appLogger.Error("Failed to create default accounts", map[string]any{"error": err.Error()})
	}

	// Chain event source
	var bridge chainport.EventBridge
	var chainHandler *handler.ChainHandler
	switch cfg.Chain.Source {
	case config.ChainSourceKafka:
		bridge = chain.NewKafkaBridge(chain.KafkaConfig{
			Brokers: cfg.Chain.Brokers,
			Topic:   cfg.Chain.Topic,
			GroupID: cfg.Chain.GroupID,
			Buffer:  cfg.Chain.Buffer,
		}, appLogger)
	default:
		channelBridge := chain.NewChannelBridge(cfg.Chain.Buffer, appLogger)
		chainHandler = handler.NewChainHandler(channelBridge, appLogger)
		bridge = channelBridge
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go worker.Run(workerCtx)

	bridgeCtx, cancelBridge := context.WithCancel(ctx)
	defer cancelBridge()
	go func() {
		if err := bridge.Run(bridgeCtx); err != nil {
			appLogger.Error("Chain event bridge stopped with error", map[string]any{"error": err.Error()})
		}
	}()
	reconcilerDone := make(chan struct{})
	go func() {
		defer close(reconcilerDone)
		reconciler.Run(bridgeCtx, bridge.Deliveries())
	}()

	// HTTP API
	router := gin.New()
	var recorder middleware.RequestRecorder
	var health *handler.HealthHandler
	if promMetrics != nil {
		recorder = promMetrics
	}
	if dbManager != nil {
		health = handler.NewHealthHandler(dbManager)
	} else {
		health = handler.NewHealthHandler(nil)
	}
	routes.SetupMiddlewares(router, appLogger, tp, recorder)

	handlers := routes.Handlers{
		Account:    handler.NewAccountHandler(accounts, appLogger),
		Settlement: handler.NewSettlementHandler(settlementService, appLogger),
		Chain:      chainHandler,
		Health:     health,
	}
	if promMetrics != nil {
		handlers.MetricsHandler = promMetrics.Handler()
		handlers.MetricsPath = cfg.Metrics.Path
	}
	routes.SetupRoutes(router, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr":         server.Addr,
			"env":          cfg.Environment,
			"db_driver":    dbConfig.Driver,
			"chain_source": cfg.Chain.Source,
		})

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	// accepted intents are drained before anything they depend on is closed
	queue.Close()
	select {
	case <-worker.Done():
	case <-shutdownCtx.Done():
		appLogger.Warn("Settlement worker did not drain in time", map[string]any{"pending_intents": queue.Len()})
		cancelWorker()
		<-worker.Done()
	}

	cancelBridge()
	if err := bridge.Close(); err != nil {
		appLogger.Warn("Failed to close chain event bridge", map[string]any{"error": err.Error()})
	}
	<-reconcilerDone

	if err := sink.Close(shutdownCtx); err != nil {
		appLogger.Warn("Failed to close notification sink", map[string]any{"error": err.Error()})
	}
	if err := deferredStore.Close(); err != nil {
		appLogger.Warn("Failed to close deferred event store", map[string]any{"error": err.Error()})
	}
	if dbManager != nil {
		if err := dbManager.Close(); err != nil {
			appLogger.Warn("Failed to close database", map[string]any{"error": err.Error()})
		}
	}

	appLogger.Info("Server exited gracefully", nil)
}

func newNotificationSink(cfg config.NotificationConfig, appLogger coreport.Logger) (closableSink, error) {
	if cfg.Sink == config.NotificationSinkKafka {
		sink, err := notification.NewKafkaSink(notification.KafkaConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Buffer:  cfg.Buffer,
		}, appLogger)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	return notification.NewLogSink(appLogger), nil
}
