package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	cache_adapter "cost-engine-service/internal/adapters/cache"
	"cost-engine-service/internal/adapters/configfile"
	"cost-engine-service/internal/adapters/filesource"
	logger_adapter "cost-engine-service/internal/adapters/logger"
	"cost-engine-service/internal/adapters/metrics"
	postgres_adapter "cost-engine-service/internal/adapters/postgres"
	rabbitmq_adapter "cost-engine-service/internal/adapters/rabbitmq"
	"cost-engine-service/internal/adapters/rest"
	"cost-engine-service/internal/adapters/s3source"
	sqlite_adapter "cost-engine-service/internal/adapters/sqlite"
	"cost-engine-service/internal/configs"
	"cost-engine-service/internal/constants"
	"cost-engine-service/internal/contracts"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
	"cost-engine-service/internal/core/usecase"
	fluentlogger "cost-engine-service/pkg/fluent_logger"
	"cost-engine-service/pkg/postgres"
	"cost-engine-service/pkg/rabbitmq/rabbitmq_common"
	"cost-engine-service/pkg/rabbitmq/rabbitmq_consumer"
	"cost-engine-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the composition root of the service.
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	connManager           *rabbitmq_common.ConnectionManager
	sourceEventsProducer  *rabbitmq_producer.Publisher
	propertyValueListener port.EventListenerPort

	// closers run in reverse order after the listeners stop
	closers []func() error
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	app := &App{config: appConfig}
	if err := app.initLoggers(); err != nil {
		return nil, err
	}
	if err := app.wire(context.Background()); err != nil {
		app.closeResources()
		return nil, err
	}
	return app, nil
}

func (a *App) initLoggers() error {
	cfg := a.config
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(cfg.StdoutLogger.Level),
		IsJSON:   cfg.StdoutLogger.JSON,
		UseColor: !cfg.StdoutLogger.JSON,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if cfg.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      cfg.FluentBit.Host,
			Port:      cfg.FluentBit.Port,
			TagPrefix: cfg.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(cfg.FluentBit.Level))
		if err != nil {
			fluentClient.Close()
			return fmt.Errorf("failed to create fluentbit adapter: %w", err)
		}
		a.fluentClient = fluentClient
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return fmt.Errorf("failed to create multi-logger: %w", err)
	}

	a.logger = multiLogger.WithFields(port.Fields{"service_name": cfg.AppName})
	a.logger.WithFields(port.Fields{"component": "app"}).Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": cfg.FluentBit.Enabled,
	})
	return nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.config
	baseLogger := a.logger
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})

	// --- outgoing adapters ---
	dbPool, err := postgres.NewClient(ctx, postgres.Config{
		DatabaseURL:     cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.dbPool = dbPool
	appLogger.Info("Successfully connected to PostgreSQL pool", nil)

	if cfg.Database.EnsureSchema {
		if err := postgres_adapter.EnsureSchema(ctx, dbPool); err != nil {
			appLogger.Error("Failed to apply schema", err, nil)
			return err
		}
	}

	scenarioRepo, err := postgres_adapter.NewScenarioRepository(dbPool)
	if err != nil {
		return fmt.Errorf("failed to create scenario repository: %w", err)
	}
	geographyRepo, err := postgres_adapter.NewGeographyRepository(dbPool)
	if err != nil {
		return fmt.Errorf("failed to create geography repository: %w", err)
	}

	settingsRepo, err := a.newSettingsRepository(dbPool)
	if err != nil {
		appLogger.Error("Failed to create settings repository", err, nil)
		return err
	}

	recorder := metrics.NewRecorder(cfg.Metrics.Namespace)

	configStore := configfile.NewStore(cfg.CostFactors.ConfigPath)
	if _, err := configStore.Load(ctx); err != nil {
		appLogger.Warn("Cost factor configuration unavailable at startup, estimates will use defaults", port.Fields{
			"path": cfg.CostFactors.ConfigPath, "error": err.Error(),
		})
	}
	// No TTL: freshness is judged per entry against the refresh interval
	// currently configured, so changing it takes effect without a restart.
	factorCache := cache_adapter.NewManager("factors", cfg.CostFactors.CacheSize, 0, recorder)
	heatmapCache := cache_adapter.NewManager("heatmaps", cfg.Heatmap.CacheSize, cfg.Heatmap.CacheTTL, recorder)

	readers := map[domain.SourceKind]port.FactorSetReaderPort{
		domain.SourceKindFile:     filesource.NewReader(cfg.CostFactors.DataDir),
		domain.SourceKindDatabase: usecase.NewSettingsFactorSetReader(settingsRepo),
	}
	if cfg.S3.Enabled {
		s3Client, err := s3source.NewClient(ctx, s3source.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			appLogger.Error("Failed to create S3 client", err, nil)
			return err
		}
		readers[domain.SourceKindS3] = s3source.NewReader(s3Client, cfg.S3.Bucket)
		appLogger.Info("S3 factor-set source enabled", port.Fields{"bucket": cfg.S3.Bucket})
	}

	var sourcePublisher port.SourceChangedPublisherPort = rabbitmq_adapter.NoopSourceChangedPublisher{}
	if cfg.RabbitMQ.Enabled {
		if sourcePublisher, err = a.initPublisher(); err != nil {
			return err
		}
	}
	appLogger.Info("All outgoing adapters initialized.", nil)

	// --- use cases ---
	validator := contracts.NewFactorSetValidator()
	loader := usecase.NewLoadCostFactorsUseCase(configStore, readers, validator, factorCache, recorder, nil)
	factorTable := usecase.NewFactorTableService(loader)

	estimateUC := usecase.NewEstimateCostUseCase(factorTable, recorder, nil)
	matrixUC := usecase.NewEstimateMatrixUseCase()
	batchUC := usecase.NewEstimateBatchUseCase(estimateUC)
	sourcesUC := usecase.NewListCostFactorSourcesUseCase(configStore)
	selectSourceUC := usecase.NewSelectCostFactorSourceUseCase(configStore, loader, sourcePublisher)
	importUC := usecase.NewImportCostFactorsUseCase(configStore, settingsRepo, validator, factorCache)

	rates := domain.ImpactRates{UnitAreaRate: cfg.Impact.UnitAreaRate, RegionImpactRate: cfg.Impact.RegionImpactRate}
	scenarioUCs := rest.ScenarioUseCases{
		Create:          usecase.NewCreateScenarioUseCase(scenarioRepo, nil),
		Get:             usecase.NewGetScenarioUseCase(scenarioRepo),
		List:            usecase.NewListScenariosUseCase(scenarioRepo),
		Update:          usecase.NewUpdateScenarioUseCase(scenarioRepo, rates, nil),
		Save:            usecase.NewSaveScenarioUseCase(scenarioRepo, nil),
		Delete:          usecase.NewDeleteScenarioUseCase(scenarioRepo),
		AddVariation:    usecase.NewAddVariationUseCase(scenarioRepo, rates, nil),
		RemoveVariation: usecase.NewRemoveVariationUseCase(scenarioRepo, nil),
		ListVariations:  usecase.NewListVariationsUseCase(scenarioRepo),
		PreviewImpact:   usecase.NewPreviewImpactUseCase(rates),
		Compare:         usecase.NewCompareScenariosUseCase(scenarioRepo),
	}

	heatmaps := usecase.NewHeatmapService(geographyRepo, heatmapCache, nil)
	appLogger.Info("All use cases initialized.", nil)

	// --- incoming adapters ---
	if cfg.RabbitMQ.Enabled {
		listener, err := rabbitmq_adapter.NewPropertyValuesConsumerAdapter(a.propertyConsumerConfig(), heatmaps, a.connManager, baseLogger)
		if err != nil {
			appLogger.Error("Failed to create property values listener", err, nil)
			return err
		}
		a.propertyValueListener = listener
		appLogger.Info("Property values listener initialized.", nil)
	}

	handlers := rest.Handlers{
		CostFactors: rest.NewCostFactorHandler(factorTable, sourcesUC, selectSourceUC, importUC, loader),
		Estimates:   rest.NewEstimateHandler(estimateUC, matrixUC, batchUC),
		Scenarios:   rest.NewScenarioHandler(scenarioUCs),
		Heatmaps:    rest.NewHeatmapHandler(heatmaps),
	}
	if cfg.Metrics.Enabled {
		handlers.Metrics = recorder.Handler()
	}
	a.apiServer = rest.NewServer(rest.ServerConfig{
		Port:           cfg.Rest.Port,
		AllowedOrigins: cfg.Rest.AllowedOrigins,
	}, handlers, recorder, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	return nil
}

func (a *App) newSettingsRepository(pool *pgxpool.Pool) (port.SettingsRepositoryPort, error) {
	if a.config.Settings.Backend == configs.SettingsBackendSQLite {
		repo, err := sqlite_adapter.NewSettingsRepository(a.config.Settings.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite settings: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	}
	return postgres_adapter.NewSettingsRepository(pool)
}

func (a *App) initPublisher() (port.SourceChangedPublisherPort, error) {
	cfg := a.config
	connManager, err := rabbitmq_common.NewConnectionManager(
		rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
		rabbitmq_adapter.NewPkgLoggerBridge(a.logger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.connManager = connManager

	producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
		ExchangeName:             constants.ExchangeCostFactorEvents,
		ExchangeType:             "topic",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(a.logger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	a.sourceEventsProducer = producer

	publisher, err := rabbitmq_adapter.NewSourceChangedPublisherAdapter(producer, constants.RoutingKeySourceChanged)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func (a *App) propertyConsumerConfig() rabbitmq_consumer.ConsumerConfig {
	return rabbitmq_consumer.ConsumerConfig{
		Config:                 rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		QueueName:              constants.QueuePropertyValuesUpdated,
		DeclareQueue:           true,
		DurableQueue:           true,
		ExchangeNameForBind:    constants.ExchangePropertyEvents,
		DeclareExchangeForBind: true,
		ExchangeTypeForBind:    "topic",
		DurableExchangeForBind: true,
		RoutingKeyForBind:      constants.RoutingKeyPropertyValuesUpdated,
		PrefetchCount:          4,
		ConsumerTag:            "cost-engine-heatmap-invalidator",

		EnableRetryMechanism: true,
		RetryExchange:        constants.RetryExchange,
		RetryQueue:           constants.RetryQueue,
		RetryTTL:             10000,
		FinalDLXExchange:     constants.FinalDLXExchange,
		FinalDLQ:             constants.FinalDLQ,
		FinalDLQRoutingKey:   constants.FinalDLQRoutingKey,
		MaxRetries:           3,

		Logger: rabbitmq_adapter.NewPkgLoggerBridge(a.logger.WithFields(port.Fields{"component": "rabbitmq_consumer"})),
	}
}

// Run starts the listeners and the HTTP server and blocks until a signal or a
// component failure, then shuts everything down.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup
	errorsCh := make(chan error, 2)

	a.logger.Info("Application is starting...", nil)

	if a.propertyValueListener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listenerLogger := a.logger.WithFields(port.Fields{"listener_name": "property values"})
			listenerLogger.Info("Starting listener...", nil)
			if err := a.propertyValueListener.Start(appCtx); err != nil {
				listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
				errorsCh <- fmt.Errorf("property values listener error: %w", err)
				return
			}
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}()
	}

	go func() {
		if err := a.apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": sig.String()})
	case runErr = <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", runErr, nil)
	}

	a.logger.Info("Shutdown sequence initiated...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.apiServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("Error during API server shutdown", err, nil)
	}

	cancelApp()
	wg.Wait()
	a.logger.Info("All background processes finished.", nil)

	a.closeResources()
	return runErr
}

func (a *App) closeResources() {
	if a.propertyValueListener != nil {
		if err := a.propertyValueListener.Close(); err != nil {
			a.logger.Error("Error closing property values listener", err, nil)
		}
	}
	if a.sourceEventsProducer != nil {
		if err := a.sourceEventsProducer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("Error closing resource", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}

	a.logger.Info("Application shut down gracefully.", nil)

	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
