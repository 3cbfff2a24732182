// users.go — обработчики /api/v1/users и /api/v1/me.
// Управление локальными пользователями доступно только admin.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goarsip/internal/api/middleware"
	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/service"
)

type userRequest struct {
	Username         string `json:"username" validate:"required,max=100"`
	FullName         string `json:"full_name" validate:"max=255"`
	Email            string `json:"email" validate:"omitempty,email,max=255"`
	Role             string `json:"role" validate:"required,oneof=admin archivist operator viewer"`
	ProcessingUnitID *int64 `json:"processing_unit_id" validate:"omitempty,gte=1"`
	Active           *bool  `json:"active"`
}

func (req userRequest) input() service.UserInput {
	return service.UserInput{
		Username:         req.Username,
		FullName:         req.FullName,
		Email:            req.Email,
		Role:             req.Role,
		ProcessingUnitID: req.ProcessingUnitID,
		Active:           req.Active,
	}
}

// GetMe — GET /api/v1/me.
// Возвращает пользователя запроса с итоговой ролью.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	groups := claims.Groups
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:           a.UserID,
		Username:         a.Username,
		Role:             a.Role,
		ProcessingUnitID: a.ProcessingUnitID,
		Email:            claims.Email,
		Groups:           groups,
	})
}

// ListUsers — GET /api/v1/users.
// Фильтры: q, role.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	res, err := h.svc.Users.ListUsers(r.Context(), model.UserFilter{
		Search: r.URL.Query().Get("q"),
		Role:   queryString(r, "role"),
		Page:   page,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toUserResponse))
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Users.CreateUser(r.Context(), a, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateUser — PUT /api/v1/users/{id}.
// active не передан — текущее значение сохраняется.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req userRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Users.UpdateUser(r.Context(), a, id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// DeleteUser — DELETE /api/v1/users/{id}.
// Запрещено, пока пользователь указан автором актов.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Users.DeleteUser(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
