// Пакет server — HTTP-сервер реестра архива с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goarsip/internal/api/handlers"
	"github.com/bigkaa/goarsip/internal/api/middleware"
	"github.com/bigkaa/goarsip/internal/config"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
)

// Server — HTTP-сервер реестра.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// authn — middleware аутентификации для /api/v1 (JWTAuth.Middleware()).
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, authn func(http.Handler) http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(h, authn, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты API.
// Health и metrics проверяются Kubernetes напрямую и не требуют токена.
// authn == nil отключает аутентификацию: пользователь должен быть
// положен в контекст раньше (тесты).
func NewRouter(h *handlers.APIHandler, authn func(http.Handler) http.Handler, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		if authn != nil {
			r.Use(authn)
		}

		r.Get("/me", h.GetMe)
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/classification-codes", func(r chi.Router) {
			r.Get("/", h.ListClassificationCodes)
			r.Post("/", h.CreateClassificationCode)
			r.Get("/tree", h.ClassificationTree)
			r.Get("/{code}", h.GetClassificationCode)
			r.Put("/{code}", h.UpdateClassificationCode)
			r.Delete("/{code}", h.DeleteClassificationCode)
			r.Get("/{code}/ancestors", h.ClassificationAncestors)
		})

		r.Route("/processing-units", func(r chi.Router) {
			r.Get("/", h.ListProcessingUnits)
			r.Post("/", h.CreateProcessingUnit)
			r.Get("/{id}", h.GetProcessingUnit)
			r.Put("/{id}", h.UpdateProcessingUnit)
			r.Delete("/{id}", h.DeleteProcessingUnit)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
			r.Get("/{id}/sub-categories", h.ListSubCategories)
			r.Post("/{id}/sub-categories", h.CreateSubCategory)
		})

		r.Route("/sub-categories", func(r chi.Router) {
			r.Get("/{id}", h.GetSubCategory)
			r.Put("/{id}", h.UpdateSubCategory)
			r.Delete("/{id}", h.DeleteSubCategory)
		})

		r.Route("/archive-files", func(r chi.Router) {
			r.Get("/", h.ListArchiveFiles)
			r.Post("/", h.CreateArchiveFile)
			r.Get("/{id}", h.GetArchiveFile)
			r.Put("/{id}", h.UpdateArchiveFile)
			r.Delete("/{id}", h.DeleteArchiveFile)
			r.Get("/{id}/retention", h.ArchiveFileRetention)
		})

		r.Route("/archive-units", func(r chi.Router) {
			r.Get("/", h.ListArchiveUnits)
			r.Post("/", h.CreateArchiveUnit)
			r.Get("/{id}", h.GetArchiveUnit)
			r.Put("/{id}", h.UpdateArchiveUnit)
			r.Delete("/{id}", h.DeleteArchiveUnit)
			r.Put("/{id}/status", h.SetArchiveUnitStatus)
			r.Put("/{id}/publish", h.SetArchiveUnitPublish)
			r.Get("/{id}/retention", h.ArchiveUnitRetention)
		})

		r.Route("/handovers", func(r chi.Router) {
			r.Get("/", h.ListHandovers)
			r.Post("/", h.CreateHandover)
			r.Get("/{id}", h.GetHandover)
			r.Put("/{id}", h.UpdateHandover)
			r.Delete("/{id}", h.DeleteHandover)
			r.Post("/{id}/items", h.AddHandoverItem)
			r.Delete("/{id}/items/{unitId}", h.RemoveHandoverItem)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin))
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
