// Точка входа Archive Registry — реестра архивных документов.
// Загружает конфигурацию, выбирает хранилище (PostgreSQL или память),
// применяет миграции, создаёт сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bigkaa/goarsip/internal/api/handlers"
	"github.com/bigkaa/goarsip/internal/api/middleware"
	"github.com/bigkaa/goarsip/internal/config"
	"github.com/bigkaa/goarsip/internal/database"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
	"github.com/bigkaa/goarsip/internal/repository/memstore"
	"github.com/bigkaa/goarsip/internal/server"
	"github.com/bigkaa/goarsip/internal/service"
)

func main() {
	// 0. .env для локального запуска; в кластере файла нет
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Не удалось прочитать .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Archive Registry запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.Storage),
	)

	ctx := context.Background()

	// 3. Хранилище
	var (
		store        repository.Store
		storageCheck handlers.ReadinessChecker
		dephealthSvc *service.DephealthService
	)
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memstore.New()
		store, storageCheck = mem, mem
		logger.Warn("Используется in-memory хранилище, данные не сохраняются между рестартами")

	default:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		store = repository.NewPostgresStore(pool)
		storageCheck = database.NewReadinessChecker(pool)

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		dephealthSvc, err = service.NewDephealthService(service.DephealthConfig{
			ServiceID:   "archive-registry",
			Group:       cfg.DephealthGroup,
			DB:          pgDB,
			PostgresURL: cfg.DatabaseURL(),
			JWKSURL:     cfg.JWTJWKSURL,
			Interval:    cfg.DephealthCheckInterval,
		}, logger)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 4. Services
	groups := rbac.GroupMapping{
		Admin:     cfg.RoleAdminGroups,
		Archivist: cfg.RoleArchivistGroups,
		Operator:  cfg.RoleOperatorGroups,
		Viewer:    cfg.RoleViewerGroups,
	}
	usersSvc := service.NewUserService(store, groups, logger)
	svc := handlers.Services{
		Codes:     service.NewClassificationService(store, service.NewCodeCache(cfg.CodeCacheSize, cfg.CodeCacheTTL), logger),
		Taxonomy:  service.NewTaxonomyService(store, logger),
		Files:     service.NewArchiveFileService(store, logger),
		Units:     service.NewArchiveUnitService(store, logger),
		Handovers: service.NewHandoverService(store, logger),
		Users:     usersSvc,
		Dashboard: service.NewDashboardService(store, cfg.StatsCacheTTL, logger),
	}

	if cfg.BootstrapAdmin != "" {
		if err := usersSvc.Bootstrap(ctx, cfg.BootstrapAdmin); err != nil {
			logger.Error("Ошибка создания начального администратора", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 5. Readiness checkers
	idpCheck, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var depsCheck handlers.ReadinessChecker
	if dephealthSvc != nil {
		depsCheck = dephealthSvc
	}
	healthHandler := handlers.NewHealthHandler(storageCheck, idpCheck, depsCheck)

	// 6. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		svc,
		handlers.Paging{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax},
		logger,
	)

	// 7. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		usersSvc,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware())
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Archive Registry остановлен")
}
