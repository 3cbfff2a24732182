// archive.go — обработчики дел (/archive-files) и единиц хранения (/archive-units).
package handlers

import (
	"net/http"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/retention"
	"github.com/bigkaa/goarsip/internal/service"
)

type archiveFileRequest struct {
	Name                   string `json:"name" validate:"required,max=255"`
	ClassificationCode     string `json:"classification_code" validate:"required,max=50"`
	ProcessingUnitID       *int64 `json:"processing_unit_id" validate:"omitempty,gte=1"`
	ActiveRetentionYears   *int   `json:"active_retention_years" validate:"omitempty,gte=0"`
	InactiveRetentionYears *int   `json:"inactive_retention_years" validate:"omitempty,gte=0"`
	PhysicalLocation       string `json:"physical_location" validate:"max=255"`
	Description            string `json:"description" validate:"max=2000"`
}

func (req archiveFileRequest) input() service.ArchiveFileInput {
	return service.ArchiveFileInput{
		Name:                   req.Name,
		ClassificationCode:     req.ClassificationCode,
		ProcessingUnitID:       req.ProcessingUnitID,
		ActiveRetentionYears:   req.ActiveRetentionYears,
		InactiveRetentionYears: req.InactiveRetentionYears,
		PhysicalLocation:       req.PhysicalLocation,
		Description:            req.Description,
	}
}

type archiveUnitRequest struct {
	ClassificationCode *string     `json:"classification_code" validate:"omitempty,max=50"`
	ProcessingUnitID   *int64      `json:"processing_unit_id" validate:"omitempty,gte=1"`
	ArchiveFileID      *int64      `json:"archive_file_id" validate:"omitempty,gte=1"`
	CategoryID         *int64      `json:"category_id" validate:"omitempty,gte=1"`
	SubCategoryID      *int64      `json:"sub_category_id" validate:"omitempty,gte=1"`
	IndexTerms         string      `json:"index_terms" validate:"max=500"`
	Description        string      `json:"description" validate:"max=5000"`
	ItemDate           *string     `json:"item_date" validate:"omitempty,datetime=2006-01-02"`
	Amount             *int        `json:"amount" validate:"required,gte=0"`
	AmountUnit         string      `json:"amount_unit" validate:"max=50"`
	Location           locationDTO `json:"location"`
	Remarks            string      `json:"remarks" validate:"max=2000"`
}

func (req archiveUnitRequest) input() (service.ArchiveUnitInput, error) {
	itemDate, err := parseDate(req.ItemDate)
	if err != nil {
		return service.ArchiveUnitInput{}, service.ValidationFailed("item_date", "invalid date")
	}
	return service.ArchiveUnitInput{
		ClassificationCode: req.ClassificationCode,
		ProcessingUnitID:   req.ProcessingUnitID,
		ArchiveFileID:      req.ArchiveFileID,
		CategoryID:         req.CategoryID,
		SubCategoryID:      req.SubCategoryID,
		IndexTerms:         req.IndexTerms,
		Description:        req.Description,
		ItemDate:           itemDate,
		Amount:             req.Amount,
		AmountUnit:         req.AmountUnit,
		Location:           model.Location(req.Location),
		Remarks:            req.Remarks,
	}, nil
}

type statusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending diterima ditolak"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type publishRequest struct {
	PublishStatus string `json:"publish_status" validate:"required,oneof=draft published"`
}

// --- berkas_arsip ---

// ListArchiveFiles — GET /api/v1/archive-files.
// Фильтры: q, classification_code, processing_unit_id.
func (h *APIHandler) ListArchiveFiles(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	unitID, err := queryInt64(r, "processing_unit_id")
	if err != nil {
		writeQueryError(w, err)
		return
	}

	res, err := h.svc.Files.ListArchiveFiles(r.Context(), model.ArchiveFileFilter{
		Search:             r.URL.Query().Get("q"),
		ClassificationCode: queryString(r, "classification_code"),
		ProcessingUnitID:   unitID,
		Page:               page,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toArchiveFileResponse))
}

// CreateArchiveFile — POST /api/v1/archive-files.
func (h *APIHandler) CreateArchiveFile(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req archiveFileRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	f, err := h.svc.Files.CreateArchiveFile(r.Context(), a, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toArchiveFileResponse(f))
}

// GetArchiveFile — GET /api/v1/archive-files/{id}.
func (h *APIHandler) GetArchiveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	f, err := h.svc.Files.GetArchiveFile(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArchiveFileResponse(f))
}

// UpdateArchiveFile — PUT /api/v1/archive-files/{id}.
func (h *APIHandler) UpdateArchiveFile(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req archiveFileRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	f, err := h.svc.Files.UpdateArchiveFile(r.Context(), a, id, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArchiveFileResponse(f))
}

// DeleteArchiveFile — DELETE /api/v1/archive-files/{id}.
// Единицы хранения дела остаются, ссылка на дело обнуляется.
func (h *APIHandler) DeleteArchiveFile(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Files.DeleteArchiveFile(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

// ArchiveFileRetention — GET /api/v1/archive-files/{id}/retention.
func (h *APIHandler) ArchiveFileRetention(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Files.ResolveFileRetention(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyResponse(p))
}

// --- arsip_unit ---

// ListArchiveUnits — GET /api/v1/archive-units.
// Видимость ограничивается ролью запрашивающего.
func (h *APIHandler) ListArchiveUnits(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f, err := h.archiveUnitFilter(r)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	res, err := h.svc.Units.ListArchiveUnits(r.Context(), a, f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toArchiveUnitResponse))
}

func (h *APIHandler) archiveUnitFilter(r *http.Request) (model.ArchiveUnitFilter, error) {
	q := r.URL.Query()
	f := model.ArchiveUnitFilter{
		Search:             q.Get("q"),
		ClassificationCode: queryString(r, "classification_code"),
	}

	var err error
	if f.Page, err = h.page(r); err != nil {
		return f, err
	}
	if v := q.Get("status"); v != "" {
		st := model.ArchiveStatus(v)
		if !st.Valid() {
			return f, &fieldError{Field: "status", Message: "допустимые значения: pending diterima ditolak"}
		}
		f.Status = &st
	}
	if v := q.Get("publish_status"); v != "" {
		ps := model.PublishStatus(v)
		if !ps.Valid() {
			return f, &fieldError{Field: "publish_status", Message: "допустимые значения: draft published"}
		}
		f.PublishStatus = &ps
	}

	ids := []struct {
		name string
		dst  **int64
	}{
		{"processing_unit_id", &f.ProcessingUnitID},
		{"category_id", &f.CategoryID},
		{"sub_category_id", &f.SubCategoryID},
		{"archive_file_id", &f.ArchiveFileID},
	}
	for _, p := range ids {
		if *p.dst, err = queryInt64(r, p.name); err != nil {
			return f, err
		}
	}
	return f, nil
}

// CreateArchiveUnit — POST /api/v1/archive-units.
// Новая единица получает статусы pending и draft.
func (h *APIHandler) CreateArchiveUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req archiveUnitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	u, err := h.svc.Units.CreateArchiveUnit(r.Context(), a, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusCreated, toArchiveUnitResponse(u))
}

// GetArchiveUnit — GET /api/v1/archive-units/{id}.
func (h *APIHandler) GetArchiveUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.Units.GetArchiveUnit(r.Context(), a, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArchiveUnitDetailResponse(d))
}

// UpdateArchiveUnit — PUT /api/v1/archive-units/{id}.
// Статусы проверки и публикации не меняются.
func (h *APIHandler) UpdateArchiveUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req archiveUnitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	u, err := h.svc.Units.UpdateArchiveUnit(r.Context(), a, id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArchiveUnitResponse(u))
}

// SetArchiveUnitStatus — PUT /api/v1/archive-units/{id}/status.
func (h *APIHandler) SetArchiveUnitStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Units.SetStatus(r.Context(), a, id, model.ArchiveStatus(req.Status), req.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusOK, toArchiveUnitResponse(u))
}

// SetArchiveUnitPublish — PUT /api/v1/archive-units/{id}/publish.
func (h *APIHandler) SetArchiveUnitPublish(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req publishRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	u, err := h.svc.Units.SetPublishStatus(r.Context(), a, id, model.PublishStatus(req.PublishStatus))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	writeJSON(w, http.StatusOK, toArchiveUnitResponse(u))
}

// DeleteArchiveUnit — DELETE /api/v1/archive-units/{id}.
// Запрещено, пока единица включена в акт.
func (h *APIHandler) DeleteArchiveUnit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Units.DeleteArchiveUnit(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

// ArchiveUnitRetention — GET /api/v1/archive-units/{id}/retention.
// Даты окончания сроков пустые, если не задана дата документа.
func (h *APIHandler) ArchiveUnitRetention(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.svc.Units.ResolveUnitRetention(r.Context(), a, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(s))
}

func toScheduleResponse(s *retention.Schedule) scheduleResponse {
	return scheduleResponse{
		Policy:        toPolicyResponse(&s.Policy),
		ActiveUntil:   formatDate(s.ActiveUntil),
		InactiveUntil: formatDate(s.InactiveUntil),
	}
}
