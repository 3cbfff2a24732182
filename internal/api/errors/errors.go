// Пакет errors — конструкторы стандартных ошибок API реестра.
// Единый формат: {"error": {"code": "...", "message": "...", "field": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError или WriteFieldError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeUnknownReference = "UNKNOWN_REFERENCE"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeCyclicParent     = "CYCLIC_PARENT"
	CodeReferenced       = "REFERENCED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки. Field — поле формы, к которому относится ошибка.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteFieldError(w, statusCode, code, message, "")
}

// WriteFieldError записывает ответ ошибки с указанием поля.
func WriteFieldError(w http.ResponseWriter, statusCode int, code, message, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// BadRequest — 400 тело запроса не разобрано.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// ValidationError — 422 поле не прошло проверку.
func ValidationError(w http.ResponseWriter, message, field string) {
	WriteFieldError(w, http.StatusUnprocessableEntity, CodeValidationError, message, field)
}

// UnknownReference — 422 ссылка на несуществующую запись.
func UnknownReference(w http.ResponseWriter, message, field string) {
	WriteFieldError(w, http.StatusUnprocessableEntity, CodeUnknownReference, message, field)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 конфликт (дублирующийся ресурс).
func Conflict(w http.ResponseWriter, message, field string) {
	WriteFieldError(w, http.StatusConflict, CodeConflict, message, field)
}

// CyclicParent — 409 назначение родителя образует цикл.
func CyclicParent(w http.ResponseWriter, message string) {
	WriteFieldError(w, http.StatusConflict, CodeCyclicParent, message, "parent_code")
}

// Referenced — 409 запись используется и не может быть удалена.
func Referenced(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeReferenced, message)
}

// Unavailable — 503 хранилище недоступно.
func Unavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
