package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentdapp/internal/api"
	"rentdapp/internal/backend"
	"rentdapp/internal/config"
	"rentdapp/internal/database"
	"rentdapp/internal/domain"
	"rentdapp/internal/effects"
	"rentdapp/internal/events"
	"rentdapp/internal/export"
	"rentdapp/internal/logging"
	"rentdapp/internal/metrics"
	"rentdapp/internal/notify"
	"rentdapp/internal/payment"
	"rentdapp/internal/repository"
	"rentdapp/internal/store"
	"rentdapp/internal/wallet"
	"rentdapp/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var sheetsRetry = worker.RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  2 * time.Second,
	MaxDelay:      2 * time.Minute,
	BackoffFactor: 2,
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init action journal")
		return err
	}
	defer db.Close()
	go database.NewBackupService(db, cfg.Database.Backup, &logger).Start(ctx)

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	sessions := repository.NewSessions(initSessionStore(cfg, redisClient, &logger))

	client := backend.NewClient(cfg.Backend, &logger)
	client.UseTokenSource(sessions)
	if redisClient != nil && cfg.Redis.CacheReads {
		client.UseRedisCache(redisClient, cfg.Backend.CacheTTL, cfg.Redis.KeyPrefix)
	}

	st := store.New(store.WithLogger(&logger), store.WithJournal(db))
	defer st.Close()

	walletBridge, provider := initWallet(cfg, &logger)
	if provider != nil {
		defer provider.Close()
	}

	authEffects := effects.NewAuthEffects(backend.NewAuthService(client), sessions, &logger)
	runner := effects.NewRunner(st, &logger,
		authEffects,
		effects.NewBookingEffects(backend.NewBookingService(client)),
		effects.NewListingsEffects(backend.NewListingService(client), backend.NewReviewService(client), &logger),
		effects.NewProfileEffects(backend.NewProfileService(client)),
		effects.NewPaymentEffects(backend.NewPaymentService(client), walletBridge, cfg.Payment, &logger),
	)
	runner.Start()
	defer runner.Stop()

	if restore, ok := authEffects.Restore(ctx); ok {
		if _, err := st.Dispatch(restore); err != nil {
			logger.Warn().Err(err).Msg("restore session")
		}
	}

	bus := events.NewEventBus()
	notify.Attach(bus, initNotifier(cfg, &logger), &logger)
	if fwd := initAMQP(cfg, &logger); fwd != nil {
		defer func() { _ = fwd.Close() }()
		bus.Subscribe(events.AllEvents, fwd.Handle)
	}
	go events.Relay(ctx, st.Subscribe(), bus, &logger)

	exporter := export.NewExporter(cfg.Exports.Path, initSheetsQueue(ctx, cfg, redisClient, &logger), &logger)

	coordinator := payment.NewCoordinator(st, cfg.Payment, cfg.Blockchain.EscrowAddress, &logger)
	defer coordinator.Close()

	handlers := api.NewHandlers(api.Deps{
		Store:    st,
		Journal:  db,
		Payments: coordinator,
		Exporter: exporter,
		Timeout:  cfg.Backend.Timeout,
		Logger:   &logger,
	})

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config; running effects only")
		<-ctx.Done()
		return nil
	}

	return startServers(ctx, cfg, handlers, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessionStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionStore {
	memory := repository.NewMemorySessionRepository()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisSessionRepository(redisClient, cfg.Redis.KeyPrefix)
	return repository.NewFailoverSessionRepository(primary, memory, logger)
}

// initWallet returns a bridge without a provider when no RPC endpoint is set,
// so wallet steps fail with the "no wallet" message.
func initWallet(cfg *config.Config, logger *zerolog.Logger) (*wallet.Bridge, *wallet.RPCProvider) {
	network := wallet.Network{
		ChainID:      cfg.Blockchain.ChainID,
		ChainName:    cfg.Blockchain.ChainName,
		RPCURL:       cfg.Blockchain.RPCURL,
		CurrencyName: cfg.Blockchain.CurrencyName,
		Symbol:       cfg.Blockchain.Symbol,
		ExplorerURL:  cfg.Blockchain.ExplorerURL,
	}
	if cfg.Blockchain.RPCURL == "" {
		logger.Warn().Msg("blockchain rpc_url not set, wallet unavailable")
		return wallet.NewBridge(nil, network, logger), nil
	}

	provider, err := wallet.NewRPCProvider(wallet.RPCConfig{
		URL:           cfg.Blockchain.RPCURL,
		Timeout:       cfg.Backend.Timeout,
		WatchInterval: cfg.Blockchain.WatchInterval,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("wallet provider init failed")
		return wallet.NewBridge(nil, network, logger), nil
	}
	return wallet.NewBridge(provider, network, logger), provider
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.NewLogNotifier(logger)
	}
	n, err := notify.DialTelegram(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, notifications go to the log")
		return notify.NewLogNotifier(logger)
	}
	logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
	return n
}

func initAMQP(cfg *config.Config, logger *zerolog.Logger) *events.AMQPForwarder {
	if !cfg.AMQP.Enabled {
		return nil
	}
	fwd, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp connection failed, events stay in process")
		return nil
	}
	return fwd
}

// initSheetsQueue starts the sheet sync worker when Google credentials are
// configured. A nil queue keeps exports file-only.
func initSheetsQueue(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) export.SheetsQueue {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadsheetID == "" {
		return nil
	}

	sheets, err := export.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadsheetID, cfg.Google.BookingSheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}

	w := worker.NewSheetsWorker(sheets, redisClient, sheetsRetry, cfg.Redis.KeyPrefix, logger)
	go w.Start(ctx)
	logger.Info().Msg("google sheets connected")
	return w
}

func startServers(ctx context.Context, cfg *config.Config, handlers *api.Handlers, logger *zerolog.Logger) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(cfg.API, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
		grpcServer.SetServing(true)
	}

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, handlers, logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Int("grpc_port", cfg.API.GRPC.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.SetServing(false)
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	if port == 0 {
		port = 9090
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
