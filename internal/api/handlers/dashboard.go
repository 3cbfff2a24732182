// dashboard.go — обработчик /api/v1/dashboard.
package handlers

import "net/http"

// GetDashboard — GET /api/v1/dashboard.
// Статистика в пределах видимости пользователя.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Dashboard.Statistics(r.Context(), a)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsResponse(st))
}
