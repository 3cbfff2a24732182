// classification.go — обработчики /api/v1/classification-codes endpoints.
// Коды классификации: список, дерево, цепочка предков, CRUD.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/service"
)

// codeRequest — тело POST и PUT кода классификации.
// При изменении поле code игнорируется.
type codeRequest struct {
	Code                   string  `json:"code" validate:"max=50"`
	ParentCode             *string `json:"parent_code" validate:"omitempty,max=50"`
	Description            string  `json:"description" validate:"required,max=2000"`
	ActiveRetentionYears   int     `json:"active_retention_years" validate:"gte=0"`
	InactiveRetentionYears int     `json:"inactive_retention_years" validate:"gte=0"`
	FinalDisposition       string  `json:"final_disposition" validate:"omitempty,oneof=destroy permanent reappraise"`
	SecurityClassification string  `json:"security_classification" validate:"omitempty,oneof=normal confidential restricted"`
}

func (req codeRequest) input() service.CodeInput {
	return service.CodeInput{
		Code:                   req.Code,
		ParentCode:             req.ParentCode,
		Description:            req.Description,
		ActiveRetentionYears:   req.ActiveRetentionYears,
		InactiveRetentionYears: req.InactiveRetentionYears,
		FinalDisposition:       model.FinalDisposition(req.FinalDisposition),
		SecurityClassification: model.SecurityClassification(req.SecurityClassification),
	}
}

// ListClassificationCodes — GET /api/v1/classification-codes.
// Фильтры: q, parent, root=true.
func (h *APIHandler) ListClassificationCodes(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	f := model.ClassificationFilter{
		Search:     r.URL.Query().Get("q"),
		ParentCode: queryString(r, "parent"),
		RootOnly:   r.URL.Query().Get("root") == "true",
		Page:       page,
	}
	res, err := h.svc.Codes.ListCodes(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPage(res, toCodeResponse))
}

// CreateClassificationCode — POST /api/v1/classification-codes.
func (h *APIHandler) CreateClassificationCode(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	code, err := h.svc.Codes.CreateCode(r.Context(), a, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toCodeResponse(code))
}

// GetClassificationCode — GET /api/v1/classification-codes/{code}.
func (h *APIHandler) GetClassificationCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.svc.Codes.GetCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCodeResponse(code))
}

// UpdateClassificationCode — PUT /api/v1/classification-codes/{code}.
// Смена родителя проверяется на циклы.
func (h *APIHandler) UpdateClassificationCode(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	code, err := h.svc.Codes.UpdateCode(r.Context(), a, chi.URLParam(r, "code"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCodeResponse(code))
}

// DeleteClassificationCode — DELETE /api/v1/classification-codes/{code}.
// Запрещено, пока на код ссылаются дочерние коды или дела.
func (h *APIHandler) DeleteClassificationCode(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Codes.DeleteCode(r.Context(), a, chi.URLParam(r, "code")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

// ClassificationTree — GET /api/v1/classification-codes/tree.
func (h *APIHandler) ClassificationTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Codes.Tree(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toCodeNodes(nodes)})
}

// ClassificationAncestors — GET /api/v1/classification-codes/{code}/ancestors.
// Предки начиная с ближайшего, сам код не входит.
func (h *APIHandler) ClassificationAncestors(w http.ResponseWriter, r *http.Request) {
	chain, err := h.svc.Codes.Ancestors(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]codeResponse, 0, len(chain))
	for i := range chain {
		items = append(items, toCodeResponse(&chain[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
