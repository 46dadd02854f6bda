package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hermes/internal/config"
	"hermes/internal/filestore"
	"hermes/internal/handlers"
	"hermes/internal/logger"
	"hermes/internal/middleware"
	"hermes/internal/realtime"
	"hermes/internal/repository"
	"hermes/internal/repository/inmemory"
	"hermes/internal/repository/mongo"
	"hermes/internal/repository/postgres"
	"hermes/internal/repository/sqlite"
	"hermes/internal/service"
	"hermes/internal/store"
	"hermes/internal/worker"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	substrate repository.Substrate // интерфейс!
	store     *store.Store
	workspace *service.Workspace
	worker    *worker.BackupWorker
	shutdowns []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	files, err := filestore.New(ctx, a.config.Files)
	if err != nil {
		return nil, fmt.Errorf("инициализация файлового хранилища: %w", err)
	}

	a.workspace = service.NewWorkspace(a.store, files, realtime.NewHub())
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие досок и подписок...")
		a.workspace.Close()
	})

	if a.config.Backup.Enabled {
		interval := a.config.Backup.Interval
		a.worker = worker.NewBackupWorker(a.store, files, &interval, nil)
	}

	a.initRouter()
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "hermes"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	repoCfg := a.config.Repository

	switch repoCfg.Type {
	case "inmemory":
		a.substrate = inmemory.NewSubstrate()

	case "sqlite":
		db, err := sqlite.New(repoCfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.substrate = db
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие sqlite...")
			if err := db.Close(); err != nil {
				logger.Error("Ошибка закрытия sqlite", err)
			}
		})

	case "postgres":
		db, err := postgres.New(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула postgres...")
			db.Close()
		})
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("миграции postgres: %w", err)
		}
		a.substrate = db

	case "mongo":
		db, err := mongo.New(ctx, repoCfg.MongoURI, repoCfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("подключение к mongo: %w", err)
		}
		a.substrate = db
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Отключение от mongo...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(shutdownCtx); err != nil {
				logger.Error("Ошибка отключения от mongo", err)
			}
		})

	default:
		return fmt.Errorf("неизвестный тип хранилища %q", repoCfg.Type)
	}

	a.store = store.New(a.substrate, store.WithPrefix(a.config.Store.Prefix))
	if err := a.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("хранилище недоступно: %w", err)
	}

	if a.config.Store.SeedTemplates {
		added, err := a.store.EnsureDefaults(ctx)
		if err != nil {
			return fmt.Errorf("стандартные шаблоны: %w", err)
		}
		logger.Info("Стандартные шаблоны проверены", zap.Int("added", added))
	}

	logger.Info("Хранилище готово",
		zap.String("type", repoCfg.Type),
		zap.String("prefix", a.config.Store.Prefix))
	return nil
}

func (a *App) initRouter() {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "If-Match", "X-Request-ID", middleware.OwnerHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	if a.config.RateLimit.RPM > 0 {
		r.Use(middleware.RateLimit(a.config.RateLimit.RPM))
	}

	handler := handlers.NewHandler(a.workspace)
	handler.Register(r)
	a.router = r
}

// Run блокируется до отмены ctx или ошибки сервера, затем останавливает приложение
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if a.worker != nil {
		go a.worker.Start(workerCtx)
		logger.Info("Резервное копирование запущено", zap.Duration("interval", a.config.Backup.Interval))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	case err := <-serverErr:
		runErr = fmt.Errorf("http сервер: %w", err)
	}

	stopWorker()
	a.Shutdown()
	return runErr
}

func (a *App) Shutdown() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			logger.Error("Ошибка остановки сервера", err)
		}
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

func (a *App) Router() http.Handler {
	return a.router
}
