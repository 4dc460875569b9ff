package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-engine/internal/api"
	"github.com/annel0/voxel-engine/internal/app"
	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/config"
	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/render"
	"github.com/annel0/voxel-engine/internal/storage"
	"github.com/annel0/voxel-engine/internal/util"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	_ "github.com/annel0/voxel-engine/internal/world/block/implementations"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	consoleLevel, _ := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	fileLevel, _ := logging.ParseLevel(cfg.Logging.FileLevel)
	logging.Configure(cfg.Logging.Dir, consoleLevel, fileLevel)
	if err := logging.GetLoggerManager().ApplyLevels(cfg.Logging.Components); err != nil {
		log.Fatalf("❌ Ошибка уровней логирования: %v", err)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск Voxel Engine (seed=%d, источник=%s)", cfg.World.Seed, cfg.World.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
		WorldSeed:   cfg.World.Seed,
	})
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Остановка телеметрии: %v", err)
		}
	}()

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	table := block.Default()
	metrics := world.NewMetrics(prometheus.DefaultRegisterer)

	genCfg, err := cfg.Generator.ToGeneratorConfig(table)
	if err != nil {
		return err
	}
	generator, err := world.NewGenerator(util.NewNoiseContext(cfg.World.Seed), table, genCfg)
	if err != nil {
		return fmt.Errorf("создание генератора: %w", err)
	}

	var store world.ChunkStore
	if cfg.Storage.Enabled {
		chunkStorage, err := storage.NewChunkStorage(cfg.Storage.DataPath, cfg.Storage.Compression)
		if err != nil {
			return err
		}
		store = chunkStorage // закрывается источником
	}

	source, err := world.NewSource(cfg.World.SourceKind(), world.SourceOptions{
		Generator: generator,
		Store:     store,
		Metrics:   metrics,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return fmt.Errorf("создание источника чанков: %w", err)
	}

	backend := render.NewHeadless()
	manager, err := world.NewManager(world.ManagerOptions{
		Table:       table,
		Source:      source,
		Releaser:    backend,
		Metrics:     metrics,
		MaxResident: cfg.World.MaxResident,
	})
	if err != nil {
		return err
	}

	loaders, err := openLoaderRepo(ctx, cfg.Loaders)
	if err != nil {
		manager.Close(context.Background())
		return err
	}
	defer loaders.Close()

	events, err := openEventBus(ctx, cfg.Events)
	if err != nil {
		manager.Close(context.Background())
		return err
	}
	if events != nil {
		defer events.Close()
	}

	missing, _ := cfg.World.MissingPolicy()
	w, err := app.NewWorld(app.Options{
		Manager:          manager,
		Backend:          backend,
		Loaders:          loaders,
		Missing:          missing,
		Metrics:          metrics,
		Events:           events,
		ViewRadius:       cfg.World.ViewRadius,
		TickInterval:     cfg.World.TickInterval(),
		AutosaveInterval: time.Duration(cfg.Loaders.AutosaveSeconds) * time.Second,
	})
	if err != nil {
		manager.Close(context.Background())
		return err
	}

	issuer, err := auth.NewIssuer(cfg.Server.JWTSecret, cfg.Server.TokenLifetime())
	if err != nil {
		manager.Close(context.Background())
		return fmt.Errorf("издатель токенов: %w", err)
	}

	// === ЗАПУСК ===
	gin.SetMode(gin.ReleaseMode)
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer, err := api.NewRestServer(api.Config{
		Port:        restPort,
		World:       w,
		Issuer:      issuer,
		RequireAuth: cfg.Server.RequireAuth,
		Events:      events,
	})
	if err != nil {
		manager.Close(context.Background())
		return err
	}

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 2)
	worldDone := make(chan error, 1)
	go func() { worldDone <- w.Run(runCtx) }()
	if events != nil {
		exporter, err := eventbus.NewMetricsExporter(events, prometheus.DefaultRegisterer, time.Second)
		if err != nil {
			logging.Warn("⚠️ Метрики шины событий недоступны: %v", err)
		} else {
			go exporter.Run(runCtx)
		}
	}
	go func() { errCh <- restServer.Start() }()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("сервер метрик: %w", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsServer.Addr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	if cfg.Server.RequireAuth {
		logging.Info("   🔐 Правки требуют токен editor (chunk-cli -cmd token)")
	}

	var runErr error
	worldStopped := false
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case runErr = <-errCh:
		logging.Error("❌ Сервис остановился: %v", runErr)
	case runErr = <-worldDone:
		logging.Error("❌ Мир остановился: %v", runErr)
		worldStopped = true
	}

	// === GRACEFUL SHUTDOWN ===
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := restServer.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	// Мир сохраняет сущности и выгружает чанки после отмены своего контекста
	cancelRun()
	if !worldStopped {
		select {
		case err := <-worldDone:
			runErr = errors.Join(runErr, err)
		case <-stopCtx.Done():
			runErr = errors.Join(runErr, errors.New("мир не остановился вовремя"))
		}
	}
	return runErr
}

// openLoaderRepo открывает хранилище позиций сущностей
func openLoaderRepo(ctx context.Context, cfg config.LoadersConfig) (storage.LoaderRepo, error) {
	switch cfg.Backend {
	case "redis":
		return storage.NewRedisLoaderRepo(ctx, &storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	case "mariadb":
		return storage.NewMariaLoaderRepo(ctx, cfg.DSN)
	case "sqlite":
		return storage.NewSQLiteLoaderRepo(ctx, cfg.SQLitePath)
	default:
		logging.Warn("⚠️ Позиции сущностей хранятся в памяти и теряются при перезапуске")
		return storage.NewMemoryLoaderRepo(), nil
	}
}

// openEventBus открывает шину событий мира; nil – события отключены
func openEventBus(ctx context.Context, cfg config.EventsConfig) (eventbus.EventBus, error) {
	var bus eventbus.EventBus
	switch cfg.Backend {
	case "nats":
		js, err := eventbus.NewJetStreamBus(eventbus.JetStreamOptions{
			URL:       cfg.NATSURL,
			Stream:    cfg.Stream,
			Retention: cfg.Retention(),
			Consumer:  cfg.Consumer,
		})
		if err != nil {
			return nil, fmt.Errorf("шина событий: %w", err)
		}
		logging.Info("📨 События публикуются в JetStream %s (%s)", cfg.Stream, cfg.NATSURL)
		bus = js
	case "memory":
		bus = eventbus.NewMemoryBus(cfg.BufferSize)
	default:
		return nil, nil
	}

	if cfg.LogEvents {
		if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
			bus.Close()
			return nil, err
		}
	}
	return bus, nil
}
