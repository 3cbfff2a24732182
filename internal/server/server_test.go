package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bigkaa/goarsip/internal/api/handlers"
	"github.com/bigkaa/goarsip/internal/api/middleware"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository/memstore"
	"github.com/bigkaa/goarsip/internal/service"
)

// --- Вспомогательные функции ---

type okChecker struct{}

func (okChecker) CheckReady() (string, string) { return "ok", "" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAPI — роутер на in-memory хранилище с подменой аутентификации.
// Пользователь запроса задаётся заголовком X-Test-User (username);
// без заголовка запрос анонимный.
type testAPI struct {
	t      *testing.T
	router http.Handler
	users  *service.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := testLogger()
	store := memstore.New()

	users := service.NewUserService(store, rbac.GroupMapping{}, logger)
	if err := users.Bootstrap(context.Background(), "admin"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	svc := handlers.Services{
		Codes:     service.NewClassificationService(store, service.NewCodeCache(16, time.Minute), logger),
		Taxonomy:  service.NewTaxonomyService(store, logger),
		Files:     service.NewArchiveFileService(store, logger),
		Units:     service.NewArchiveUnitService(store, logger),
		Handovers: service.NewHandoverService(store, logger),
		Users:     users,
		Dashboard: service.NewDashboardService(store, time.Minute, logger),
	}
	h := handlers.NewAPIHandler(
		handlers.NewHealthHandler(store, okChecker{}, nil),
		svc,
		handlers.Paging{Default: 20, Max: 50},
		logger,
	)

	api := &testAPI{t: t, users: users}
	authn := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := r.Header.Get("X-Test-User")
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}
			a, err := users.ResolveActor(r.Context(), name, nil)
			if err != nil {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), a)))
		})
	}
	api.router = NewRouter(h, authn, logger)
	return api
}

// do выполняет запрос и декодирует JSON-ответ в out (если не nil).
func (a *testAPI) do(user, method, path string, body any, out any) int {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				a.t.Fatalf("json.Marshal: %v", err)
			}
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("%s %s: невалидный JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

// mustDo — do с проверкой статуса.
func (a *testAPI) mustDo(user, method, path string, body any, want int, out any) {
	a.t.Helper()
	var raw json.RawMessage
	code := a.do(user, method, path, body, &raw)
	if code != want {
		a.t.Fatalf("%s %s: статус = %d, хотели %d; тело %s", method, path, code, want, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			a.t.Fatalf("%s %s: %v", method, path, err)
		}
	}
}

type errorBody struct {
	Error struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

type idBody struct {
	ID int64 `json:"id"`
}

func path(format string, id int64) string {
	return format + "/" + strconv.FormatInt(id, 10)
}

// --- Тесты ---

func TestHealthWithoutAuth(t *testing.T) {
	api := newTestAPI(t)

	var live struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	api.mustDo("", http.MethodGet, "/health/live", nil, http.StatusOK, &live)
	if live.Service != "archive-registry" {
		t.Errorf("service = %q", live.Service)
	}

	var ready struct {
		Status string `json:"status"`
		Checks struct {
			Storage struct {
				Status string `json:"status"`
			} `json:"storage"`
			Dependencies *struct{} `json:"dependencies"`
		} `json:"checks"`
	}
	api.mustDo("", http.MethodGet, "/health/ready", nil, http.StatusOK, &ready)
	if ready.Status != "ok" || ready.Checks.Storage.Status != "ok" {
		t.Errorf("ready = %+v", ready)
	}
	if ready.Checks.Dependencies != nil {
		t.Error("dependencies не должно быть без dephealth")
	}
}

func TestAPIRequiresActor(t *testing.T) {
	api := newTestAPI(t)

	var body errorBody
	if code := api.do("", http.MethodGet, "/api/v1/archive-units", nil, &body); code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, хотели 401", code)
	}
	if body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestClassificationEndpoints(t *testing.T) {
	api := newTestAPI(t)

	api.mustDo("admin", http.MethodPost, "/api/v1/classification-codes", map[string]any{
		"code": "000", "description": "Umum", "active_retention_years": 2, "inactive_retention_years": 5,
	}, http.StatusCreated, nil)
	api.mustDo("admin", http.MethodPost, "/api/v1/classification-codes", map[string]any{
		"code": "000.1", "parent_code": "000", "description": "Ketatausahaan",
	}, http.StatusCreated, nil)

	t.Run("дубликат кода", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodPost, "/api/v1/classification-codes",
			map[string]any{"code": "000", "description": "x"}, &body)
		if code != http.StatusConflict || body.Error.Field != "code" {
			t.Errorf("статус = %d, field = %q; хотели 409 code", code, body.Error.Field)
		}
	})

	t.Run("неизвестный родитель", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodPost, "/api/v1/classification-codes",
			map[string]any{"code": "999.1", "parent_code": "999", "description": "x"}, &body)
		if code != http.StatusUnprocessableEntity || body.Error.Field != "parent_code" {
			t.Errorf("статус = %d, field = %q; хотели 422 parent_code", code, body.Error.Field)
		}
	})

	t.Run("цикл при смене родителя", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodPut, "/api/v1/classification-codes/000",
			map[string]any{"parent_code": "000.1", "description": "Umum"}, &body)
		if code != http.StatusConflict || body.Error.Code != "CYCLIC_PARENT" {
			t.Errorf("статус = %d, code = %q; хотели 409 CYCLIC_PARENT", code, body.Error.Code)
		}
	})

	t.Run("дерево и предки", func(t *testing.T) {
		var tree struct {
			Items []struct {
				Code     string `json:"code"`
				Children []struct {
					Code string `json:"code"`
				} `json:"children"`
			} `json:"items"`
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/classification-codes/tree", nil, http.StatusOK, &tree)
		if len(tree.Items) != 1 || len(tree.Items[0].Children) != 1 || tree.Items[0].Children[0].Code != "000.1" {
			t.Errorf("дерево = %+v", tree)
		}

		var anc struct {
			Items []struct {
				Code string `json:"code"`
			} `json:"items"`
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/classification-codes/000.1/ancestors", nil, http.StatusOK, &anc)
		if len(anc.Items) != 1 || anc.Items[0].Code != "000" {
			t.Errorf("предки = %+v", anc)
		}
	})

	t.Run("удаление кода с потомками", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodDelete, "/api/v1/classification-codes/000", nil, &body)
		if code != http.StatusConflict || body.Error.Code != "REFERENCED" {
			t.Errorf("статус = %d, code = %q; хотели 409 REFERENCED", code, body.Error.Code)
		}
	})
}

func TestArchiveLifecycle(t *testing.T) {
	api := newTestAPI(t)

	api.mustDo("admin", http.MethodPost, "/api/v1/classification-codes", map[string]any{
		"code": "000", "description": "Umum", "active_retention_years": 2, "inactive_retention_years": 5,
	}, http.StatusCreated, nil)

	var origin, dest idBody
	api.mustDo("admin", http.MethodPost, "/api/v1/processing-units", map[string]any{"name": "Sekretariat"}, http.StatusCreated, &origin)
	api.mustDo("admin", http.MethodPost, "/api/v1/processing-units", map[string]any{"name": "Arsip Pusat"}, http.StatusCreated, &dest)

	var file idBody
	api.mustDo("admin", http.MethodPost, "/api/v1/archive-files", map[string]any{
		"name": "Surat Masuk 2024", "classification_code": "000", "inactive_retention_years": 1,
	}, http.StatusCreated, &file)

	t.Run("amount обязателен", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodPost, "/api/v1/archive-units",
			map[string]any{"description": "без количества"}, &body)
		if code != http.StatusUnprocessableEntity || body.Error.Field != "amount" {
			t.Errorf("статус = %d, field = %q; хотели 422 amount", code, body.Error.Field)
		}
	})

	t.Run("неизвестное поле тела", func(t *testing.T) {
		code := api.do("admin", http.MethodPost, "/api/v1/archive-units", `{"amount":1,"colour":"red"}`, nil)
		if code != http.StatusBadRequest {
			t.Errorf("статус = %d, хотели 400", code)
		}
	})

	var unit struct {
		ID            int64  `json:"id"`
		Status        string `json:"status"`
		PublishStatus string `json:"publish_status"`
	}
	api.mustDo("admin", http.MethodPost, "/api/v1/archive-units", map[string]any{
		"classification_code": "000",
		"processing_unit_id":  origin.ID,
		"archive_file_id":     file.ID,
		"description":         "Surat undangan",
		"item_date":           "2024-03-01",
		"amount":              3,
		"amount_unit":         "lembar",
		"location":            map[string]string{"room": "A", "box": "12"},
	}, http.StatusCreated, &unit)
	if unit.Status != "pending" || unit.PublishStatus != "draft" {
		t.Fatalf("статусы новой единицы = %s/%s", unit.Status, unit.PublishStatus)
	}
	unitPath := path("/api/v1/archive-units", unit.ID)

	t.Run("сроки хранения", func(t *testing.T) {
		var sch struct {
			Policy struct {
				ActiveYears    int    `json:"active_years"`
				InactiveYears  int    `json:"inactive_years"`
				InactiveSource string `json:"inactive_source"`
			} `json:"policy"`
			ActiveUntil   string `json:"active_until"`
			InactiveUntil string `json:"inactive_until"`
		}
		api.mustDo("admin", http.MethodGet, unitPath+"/retention", nil, http.StatusOK, &sch)
		if sch.Policy.ActiveYears != 2 || sch.Policy.InactiveYears != 1 || sch.Policy.InactiveSource != "file" {
			t.Errorf("политика = %+v", sch.Policy)
		}
		if sch.ActiveUntil != "2026-03-01" || sch.InactiveUntil != "2027-03-01" {
			t.Errorf("сроки = %s / %s", sch.ActiveUntil, sch.InactiveUntil)
		}
	})

	t.Run("статус и публикация независимы", func(t *testing.T) {
		api.mustDo("admin", http.MethodPut, unitPath+"/status",
			map[string]any{"status": "diterima", "notes": "lengkap"}, http.StatusOK, &unit)
		if unit.Status != "diterima" || unit.PublishStatus != "draft" {
			t.Errorf("после проверки = %s/%s", unit.Status, unit.PublishStatus)
		}
		api.mustDo("admin", http.MethodPut, unitPath+"/publish",
			map[string]any{"publish_status": "published"}, http.StatusOK, &unit)
		if unit.Status != "diterima" || unit.PublishStatus != "published" {
			t.Errorf("после публикации = %s/%s", unit.Status, unit.PublishStatus)
		}
	})

	t.Run("фильтр по статусу", func(t *testing.T) {
		var page struct {
			Items []idBody `json:"items"`
			Total int      `json:"total"`
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/archive-units?status=pending", nil, http.StatusOK, &page)
		if page.Total != 0 {
			t.Errorf("pending total = %d, хотели 0", page.Total)
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/archive-units?status=diterima&per_page=500", nil, http.StatusOK, &page)
		if page.Total != 1 || len(page.Items) != 1 {
			t.Errorf("diterima = %+v", page)
		}
		if code := api.do("admin", http.MethodGet, "/api/v1/archive-units?status=lost", nil, nil); code != http.StatusUnprocessableEntity {
			t.Errorf("неизвестный статус: %d, хотели 422", code)
		}
	})

	var handover struct {
		ID    int64 `json:"id"`
		Items []struct {
			ArchiveUnitID int64 `json:"archive_unit_id"`
		} `json:"items"`
	}
	api.mustDo("admin", http.MethodPost, "/api/v1/handovers", map[string]any{
		"number":              "BA/001/2024",
		"date":                "2024-06-10",
		"origin_unit_id":      origin.ID,
		"destination_unit_id": dest.ID,
		"items":               []map[string]any{{"archive_unit_id": unit.ID}},
	}, http.StatusCreated, &handover)
	if len(handover.Items) != 1 || handover.Items[0].ArchiveUnitID != unit.ID {
		t.Fatalf("позиции акта = %+v", handover.Items)
	}

	t.Run("повторная позиция", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodPost, path("/api/v1/handovers", handover.ID)+"/items",
			map[string]any{"archive_unit_id": unit.ID}, &body)
		if code != http.StatusConflict || body.Error.Field != "archive_unit_id" {
			t.Errorf("статус = %d, field = %q; хотели 409 archive_unit_id", code, body.Error.Field)
		}
	})

	t.Run("единица в акте не удаляется", func(t *testing.T) {
		var body errorBody
		code := api.do("admin", http.MethodDelete, unitPath, nil, &body)
		if code != http.StatusConflict || body.Error.Code != "REFERENCED" {
			t.Errorf("статус = %d, code = %q; хотели 409 REFERENCED", code, body.Error.Code)
		}
	})

	t.Run("подразделение из акта не удаляется", func(t *testing.T) {
		code := api.do("admin", http.MethodDelete, path("/api/v1/processing-units", origin.ID), nil, nil)
		if code != http.StatusConflict {
			t.Errorf("статус = %d, хотели 409", code)
		}
	})

	t.Run("удаление дела обнуляет ссылку", func(t *testing.T) {
		api.mustDo("admin", http.MethodDelete, path("/api/v1/archive-files", file.ID), nil, http.StatusNoContent, nil)
		var got struct {
			ArchiveFileID *int64 `json:"archive_file_id"`
		}
		api.mustDo("admin", http.MethodGet, unitPath, nil, http.StatusOK, &got)
		if got.ArchiveFileID != nil {
			t.Errorf("archive_file_id = %d, хотели null", *got.ArchiveFileID)
		}
	})

	t.Run("удаление акта снимает ограничение", func(t *testing.T) {
		api.mustDo("admin", http.MethodDelete, path("/api/v1/handovers", handover.ID), nil, http.StatusNoContent, nil)
		api.mustDo("admin", http.MethodDelete, unitPath, nil, http.StatusNoContent, nil)
	})

	t.Run("dashboard", func(t *testing.T) {
		var st struct {
			ArchiveUnits    int `json:"archive_units"`
			ProcessingUnits int `json:"processing_units"`
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/dashboard", nil, http.StatusOK, &st)
		if st.ArchiveUnits != 0 || st.ProcessingUnits != 2 {
			t.Errorf("статистика = %+v", st)
		}
	})
}

func TestVisibilityAndRoles(t *testing.T) {
	api := newTestAPI(t)

	var unit idBody
	api.mustDo("admin", http.MethodPost, "/api/v1/archive-units",
		map[string]any{"description": "черновик", "amount": 0, "amount_unit": "lembar"}, http.StatusCreated, &unit)
	api.mustDo("admin", http.MethodPost, "/api/v1/users",
		map[string]any{"username": "reader", "role": "viewer"}, http.StatusCreated, nil)

	t.Run("черновик не виден viewer", func(t *testing.T) {
		code := api.do("reader", http.MethodGet, path("/api/v1/archive-units", unit.ID), nil, nil)
		if code != http.StatusNotFound {
			t.Errorf("статус = %d, хотели 404", code)
		}
		var page struct {
			Total int `json:"total"`
		}
		api.mustDo("reader", http.MethodGet, "/api/v1/archive-units", nil, http.StatusOK, &page)
		if page.Total != 0 {
			t.Errorf("total = %d, хотели 0", page.Total)
		}
	})

	t.Run("опубликованная видна viewer", func(t *testing.T) {
		api.mustDo("admin", http.MethodPut, path("/api/v1/archive-units", unit.ID)+"/publish",
			map[string]any{"publish_status": "published"}, http.StatusOK, nil)
		api.mustDo("reader", http.MethodGet, path("/api/v1/archive-units", unit.ID), nil, http.StatusOK, nil)
	})

	t.Run("viewer не пишет", func(t *testing.T) {
		code := api.do("reader", http.MethodPost, "/api/v1/processing-units", map[string]any{"name": "X"}, nil)
		if code != http.StatusForbidden {
			t.Errorf("статус = %d, хотели 403", code)
		}
	})

	t.Run("users только для admin", func(t *testing.T) {
		if code := api.do("reader", http.MethodGet, "/api/v1/users", nil, nil); code != http.StatusForbidden {
			t.Errorf("статус = %d, хотели 403", code)
		}
		var page struct {
			Total int `json:"total"`
		}
		api.mustDo("admin", http.MethodGet, "/api/v1/users", nil, http.StatusOK, &page)
		if page.Total != 2 {
			t.Errorf("total = %d, хотели 2", page.Total)
		}
	})

	t.Run("me", func(t *testing.T) {
		var me struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		}
		api.mustDo("reader", http.MethodGet, "/api/v1/me", nil, http.StatusOK, &me)
		if me.Username != "reader" || me.Role != "viewer" {
			t.Errorf("me = %+v", me)
		}
	})
}

func TestPagination(t *testing.T) {
	api := newTestAPI(t)
	for i := range 3 {
		api.mustDo("admin", http.MethodPost, "/api/v1/categories",
			map[string]any{"name": "Kategori " + strconv.Itoa(i)}, http.StatusCreated, nil)
	}

	var page struct {
		Items   []idBody `json:"items"`
		Total   int      `json:"total"`
		Page    int      `json:"page"`
		PerPage int      `json:"per_page"`
		HasMore bool     `json:"has_more"`
	}
	api.mustDo("admin", http.MethodGet, "/api/v1/categories?page=1&per_page=2", nil, http.StatusOK, &page)
	if len(page.Items) != 2 || page.Total != 3 || !page.HasMore {
		t.Errorf("страница 1 = %+v", page)
	}
	api.mustDo("admin", http.MethodGet, "/api/v1/categories?page=2&per_page=2", nil, http.StatusOK, &page)
	if len(page.Items) != 1 || page.HasMore {
		t.Errorf("страница 2 = %+v", page)
	}

	var body errorBody
	if code := api.do("admin", http.MethodGet, "/api/v1/categories?page=0", nil, &body); code != http.StatusUnprocessableEntity || body.Error.Field != "page" {
		t.Errorf("page=0: статус = %d, field = %q", code, body.Error.Field)
	}
}
