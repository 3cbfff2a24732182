// handler.go — основной обработчик API реестра.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goarsip/internal/api/errors"
	"github.com/bigkaa/goarsip/internal/api/middleware"
	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/service"
)

// Services — сервисы, которые обслуживает API.
type Services struct {
	Codes     *service.ClassificationService
	Taxonomy  *service.TaxonomyService
	Files     *service.ArchiveFileService
	Units     *service.ArchiveUnitService
	Handovers *service.HandoverService
	Users     *service.UserService
	Dashboard *service.DashboardService
}

// APIHandler — основной обработчик API реестра.
type APIHandler struct {
	health   *HealthHandler
	svc      Services
	paging   Paging
	validate *requestValidator
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, paging Paging, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:   health,
		svc:      svc,
		paging:   paging,
		validate: newRequestValidator(),
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// changed сбрасывает кэш статистики после успешной записи.
func (h *APIHandler) changed() {
	if h.svc.Dashboard != nil {
		h.svc.Dashboard.Invalidate()
	}
}

// actor возвращает пользователя запроса. Если его нет, пишет 401 и возвращает false.
func actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется аутентификация")
	}
	return a, ok
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются и возвращаются как 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	field := service.FieldOf(err)

	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error(), field)
	case errors.Is(err, service.ErrUnknownReference):
		apierrors.UnknownReference(w, err.Error(), field)
	case errors.Is(err, service.ErrUnknownParent):
		apierrors.UnknownReference(w, err.Error(), "parent_code")
	case errors.Is(err, service.ErrUnknownCategory):
		apierrors.UnknownReference(w, err.Error(), "category_id")
	case errors.Is(err, service.ErrUnknownArchiveUnit):
		apierrors.UnknownReference(w, err.Error(), "archive_unit_id")
	case errors.Is(err, service.ErrUnknownUnit):
		apierrors.UnknownReference(w, err.Error(), field)
	case errors.Is(err, service.ErrDuplicateCode):
		apierrors.Conflict(w, err.Error(), "code")
	case errors.Is(err, service.ErrDuplicateNumber):
		apierrors.Conflict(w, err.Error(), "number")
	case errors.Is(err, service.ErrDuplicateItem):
		apierrors.Conflict(w, err.Error(), "archive_unit_id")
	case errors.Is(err, service.ErrDuplicateName):
		apierrors.Conflict(w, err.Error(), field)
	case errors.Is(err, service.ErrCyclicParent):
		apierrors.CyclicParent(w, err.Error())
	case errors.Is(err, service.ErrHasChildren),
		errors.Is(err, service.ErrReferencedByArchiveFile),
		errors.Is(err, service.ErrReferencedByHandover):
		apierrors.Referenced(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		h.logger.Error("Хранилище недоступно",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		apierrors.Unavailable(w, "Хранилище недоступно")
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
