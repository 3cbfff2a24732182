// handovers.go — обработчики /api/v1/handovers endpoints.
// Акты приёма-передачи и их позиции.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/service"
)

type handoverItemRequest struct {
	ArchiveUnitID int64  `json:"archive_unit_id" validate:"required,gte=1"`
	Remarks       string `json:"remarks" validate:"max=2000"`
}

type handoverRequest struct {
	Number            string                `json:"number" validate:"required,max=100"`
	Date              string                `json:"date" validate:"required,datetime=2006-01-02"`
	OriginUnitID      int64                 `json:"origin_unit_id" validate:"required,gte=1"`
	DestinationUnitID *int64                `json:"destination_unit_id" validate:"omitempty,gte=1"`
	RecipientName     *string               `json:"recipient_name" validate:"omitempty,max=255"`
	RecipientTitle    *string               `json:"recipient_title" validate:"omitempty,max=255"`
	Notes             string                `json:"notes" validate:"max=5000"`
	Items             []handoverItemRequest `json:"items" validate:"omitempty,dive"`
}

func (req handoverRequest) input() (service.HandoverInput, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return service.HandoverInput{}, service.ValidationFailed("date", "invalid date")
	}
	items := make([]service.HandoverItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.HandoverItemInput{ArchiveUnitID: it.ArchiveUnitID, Remarks: it.Remarks})
	}
	return service.HandoverInput{
		Number:            req.Number,
		Date:              date,
		OriginUnitID:      req.OriginUnitID,
		DestinationUnitID: req.DestinationUnitID,
		RecipientName:     req.RecipientName,
		RecipientTitle:    req.RecipientTitle,
		Notes:             req.Notes,
		Items:             items,
	}, nil
}

// ListHandovers — GET /api/v1/handovers.
// Фильтры: q, origin_unit_id, destination_unit_id, date_from, date_to.
func (h *APIHandler) ListHandovers(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f := model.HandoverFilter{Search: r.URL.Query().Get("q")}

	var err error
	if f.Page, err = h.page(r); err != nil {
		writeQueryError(w, err)
		return
	}
	if f.OriginUnitID, err = queryInt64(r, "origin_unit_id"); err != nil {
		writeQueryError(w, err)
		return
	}
	if f.DestinationUnitID, err = queryInt64(r, "destination_unit_id"); err != nil {
		writeQueryError(w, err)
		return
	}
	if f.DateFrom, err = queryDate(r, "date_from"); err != nil {
		writeQueryError(w, err)
		return
	}
	if f.DateTo, err = queryDate(r, "date_to"); err != nil {
		writeQueryError(w, err)
		return
	}

	res, err := h.svc.Handovers.ListHandovers(r.Context(), a, f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(res, toHandoverResponse))
}

// CreateHandover — POST /api/v1/handovers.
// Акт и его позиции создаются в одной транзакции.
func (h *APIHandler) CreateHandover(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req handoverRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rec, err := h.svc.Handovers.CreateHandover(r.Context(), a, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	h.writeHandoverDetail(w, r, http.StatusCreated, rec.ID)
}

// GetHandover — GET /api/v1/handovers/{id}.
func (h *APIHandler) GetHandover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.writeHandoverDetail(w, r, http.StatusOK, id)
}

// UpdateHandover — PUT /api/v1/handovers/{id}.
// Позиции в теле игнорируются, для них есть /items.
func (h *APIHandler) UpdateHandover(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req handoverRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if _, err := h.svc.Handovers.UpdateHandover(r.Context(), a, id, in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeHandoverDetail(w, r, http.StatusOK, id)
}

// DeleteHandover — DELETE /api/v1/handovers/{id}.
// Позиции удаляются вместе с актом.
func (h *APIHandler) DeleteHandover(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Handovers.DeleteHandover(r.Context(), a, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.changed()

	w.WriteHeader(http.StatusNoContent)
}

// AddHandoverItem — POST /api/v1/handovers/{id}/items.
func (h *APIHandler) AddHandoverItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req handoverItemRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	item := service.HandoverItemInput{ArchiveUnitID: req.ArchiveUnitID, Remarks: req.Remarks}
	if err := h.svc.Handovers.AddItem(r.Context(), a, id, item); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeHandoverDetail(w, r, http.StatusCreated, id)
}

// RemoveHandoverItem — DELETE /api/v1/handovers/{id}/items/{unitId}.
func (h *APIHandler) RemoveHandoverItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	unitID, ok := pathID(w, r, "unitId")
	if !ok {
		return
	}
	if err := h.svc.Handovers.RemoveItem(r.Context(), a, id, unitID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeHandoverDetail отвечает актом с позициями, видимыми пользователю запроса.
func (h *APIHandler) writeHandoverDetail(w http.ResponseWriter, r *http.Request, status int, id int64) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Handovers.GetHandover(r.Context(), a, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, toHandoverDetailResponse(d))
}
