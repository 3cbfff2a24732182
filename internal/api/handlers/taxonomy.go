// taxonomy.go — обработчики справочников: подразделения, категории, подкатегории.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/service"
)

type unitRequest struct {
	Name string  `json:"name" validate:"required,max=255"`
	Code *string `json:"code" validate:"omitempty,max=50"`
}

type categoryRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type subCategoryRequest struct {
	// CategoryID — при создании берётся из пути, при изменении переносит подкатегорию
	CategoryID  int64   `json:"category_id" validate:"gte=0"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// taxonomyFilter разбирает q, page, per_page.
func (h *APIHandler) taxonomyFilter(r *http.Request) (model.TaxonomyFilter, error) {
	page, err := h.page(r)
	if err != nil {
		return model.TaxonomyFilter{}, err
	}
	return model.TaxonomyFilter{Search: r.URL.Query().Get("q"), Page: page}, nil
}

// --- unit_pengolah ---

// ListProcessingUnits — GET /api/v1/processing-units.
func (h *APIHandler) ListProcessingUnits(w http.ResponseWriter, r *http.Request) {
	f, err := h.taxonomyFilter(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	res, err := h.svc.Taxonomy.ListUnits(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toUnitResponse))
}

// CreateProcessingUnit — POST /api/v1/processing-units.
func (h *APIHandler) CreateProcessingUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req unitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Taxonomy.CreateUnit(r.Context(), a, service.UnitInput{Name: req.Name, Code: req.Code})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toUnitResponse(u))
}

// GetProcessingUnit — GET /api/v1/processing-units/{id}.
func (h *APIHandler) GetProcessingUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.svc.Taxonomy.GetUnit(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitResponse(u))
}

// UpdateProcessingUnit — PUT /api/v1/processing-units/{id}.
func (h *APIHandler) UpdateProcessingUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req unitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Taxonomy.UpdateUnit(r.Context(), a, id, service.UnitInput{Name: req.Name, Code: req.Code})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitResponse(u))
}

// DeleteProcessingUnit — DELETE /api/v1/processing-units/{id}.
// Ссылки из дел, единиц хранения и пользователей обнуляются,
// удаление запрещено, пока подразделение указано в актах.
func (h *APIHandler) DeleteProcessingUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Taxonomy.DeleteUnit(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

// --- kategori ---

// ListCategories — GET /api/v1/categories.
func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	f, err := h.taxonomyFilter(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	res, err := h.svc.Taxonomy.ListCategories(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toCategoryResponse))
}

// CreateCategory — POST /api/v1/categories.
func (h *APIHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	c, err := h.svc.Taxonomy.CreateCategory(r.Context(), a, service.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// GetCategory — GET /api/v1/categories/{id}.
func (h *APIHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Taxonomy.GetCategory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// UpdateCategory — PUT /api/v1/categories/{id}.
func (h *APIHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	c, err := h.svc.Taxonomy.UpdateCategory(r.Context(), a, id, service.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// DeleteCategory — DELETE /api/v1/categories/{id}.
// Подкатегории удаляются каскадно, ссылки единиц хранения обнуляются.
func (h *APIHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Taxonomy.DeleteCategory(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- sub_kategori ---

// ListSubCategories — GET /api/v1/categories/{id}/sub-categories.
func (h *APIHandler) ListSubCategories(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	f, err := h.taxonomyFilter(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	res, err := h.svc.Taxonomy.ListSubCategories(r.Context(), categoryID, f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toSubCategoryResponse))
}

// CreateSubCategory — POST /api/v1/categories/{id}/sub-categories.
func (h *APIHandler) CreateSubCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	categoryID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req subCategoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	sc, err := h.svc.Taxonomy.CreateSubCategory(r.Context(), a, service.SubCategoryInput{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubCategoryResponse(sc))
}

// GetSubCategory — GET /api/v1/sub-categories/{id}.
func (h *APIHandler) GetSubCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sc, err := h.svc.Taxonomy.GetSubCategory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubCategoryResponse(sc))
}

// UpdateSubCategory — PUT /api/v1/sub-categories/{id}.
// category_id = 0 оставляет текущую категорию.
func (h *APIHandler) UpdateSubCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req subCategoryRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.CategoryID == 0 {
		cur, err := h.svc.Taxonomy.GetSubCategory(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		req.CategoryID = cur.CategoryID
	}

	sc, err := h.svc.Taxonomy.UpdateSubCategory(r.Context(), a, id, service.SubCategoryInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubCategoryResponse(sc))
}

// DeleteSubCategory — DELETE /api/v1/sub-categories/{id}.
func (h *APIHandler) DeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Taxonomy.DeleteSubCategory(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
