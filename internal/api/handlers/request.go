// request.go — разбор и проверка входящих запросов: JSON-тело с тегами
// validator/v10, параметры пути, фильтры и пагинация.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/bigkaa/goarsip/internal/api/errors"
	"github.com/bigkaa/goarsip/internal/domain/model"
)

// maxBodyBytes — предельный размер тела запроса.
const maxBodyBytes = 1 << 20

// dateLayout — формат дат в запросах и ответах.
const dateLayout = "2006-01-02"

// Paging — размер страницы по умолчанию и максимальный (AR_PAGE_SIZE_*).
type Paging struct {
	Default int
	Max     int
}

// requestValidator проверяет DTO запросов по тегам validate.
// Имена полей в ошибках берутся из тегов json.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

// fieldError — первое нарушение правил проверки.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string { return e.Field + ": " + e.Message }

// check проверяет структуру и возвращает первое нарушение.
func (rv *requestValidator) check(dst any) error {
	err := rv.v.Struct(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &fieldError{Field: fe.Field(), Message: ruleMessage(fe)}
	}
	return err
}

// ruleMessage формирует сообщение по нарушенному правилу.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "max":
		return "превышена максимальная длина " + fe.Param()
	case "min", "gte":
		return "значение меньше " + fe.Param()
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "email":
		return "некорректный email"
	case "datetime":
		return "ожидается дата в формате ГГГГ-ММ-ДД"
	default:
		return "не прошло проверку " + fe.Tag()
	}
}

// decodeBody разбирает JSON-тело в dst и проверяет его.
// При ошибке пишет ответ и возвращает false.
func (h *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.BadRequest(w, "Некорректное тело запроса: "+err.Error())
		return false
	}
	if err := h.validate.check(dst); err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			apierrors.ValidationError(w, fe.Message, fe.Field)
			return false
		}
		apierrors.BadRequest(w, err.Error())
		return false
	}
	return true
}

// page разбирает page и per_page. per_page ограничивается сверху Paging.Max.
func (h *APIHandler) page(r *http.Request) (model.Page, error) {
	q := r.URL.Query()
	p := model.Page{Number: 1, PerPage: h.paging.Default}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &fieldError{Field: "page", Message: "ожидается целое число >= 1"}
		}
		p.Number = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &fieldError{Field: "per_page", Message: "ожидается целое число >= 1"}
		}
		p.PerPage = min(n, h.paging.Max)
	}
	return p, nil
}

// writeQueryError пишет 422 для ошибки разбора параметров запроса.
func writeQueryError(w http.ResponseWriter, err error) {
	var fe *fieldError
	if errors.As(err, &fe) {
		apierrors.ValidationError(w, fe.Message, fe.Field)
		return
	}
	apierrors.BadRequest(w, err.Error())
}

// pathID разбирает числовой параметр пути. При ошибке пишет 404.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		apierrors.NotFound(w, "Ресурс не найден")
		return 0, false
	}
	return id, true
}

// queryInt64 разбирает необязательный числовой фильтр.
func queryInt64(r *http.Request, name string) (*int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &fieldError{Field: name, Message: "ожидается целое число"}
	}
	return &n, nil
}

// queryString возвращает необязательный строковый фильтр.
func queryString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// queryDate разбирает необязательную дату ГГГГ-ММ-ДД.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, &fieldError{Field: name, Message: "ожидается дата в формате ГГГГ-ММ-ДД"}
	}
	return &t, nil
}

// parseDate разбирает дату из тела запроса (формат уже проверен validator).
func parseDate(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *v)
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %q: %w", *v, err)
	}
	return &t, nil
}
