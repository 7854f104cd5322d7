// Пакет errors — ответы с ошибками для действий консоли.
// Формат тела: {"error": {"code": "...", "message": "..."}}.
// Скрипт страницы показывает message у формы, если код VALIDATION_ERROR,
// остальные ошибки оператор видит в уведомлениях.
package errors

import (
	"encoding/json"
	"net/http"
)

const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeBackendError    = "BACKEND_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidationError: http.StatusUnprocessableEntity,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeTooLarge:        http.StatusRequestEntityTooLarge,
	CodeRateLimited:     http.StatusTooManyRequests,
	CodeBackendError:    http.StatusBadGateway,
	CodeInternalError:   http.StatusInternalServerError,
}

// Response — тело ответа с ошибкой.
type Response struct {
	Error Detail `json:"error"`
}

type Detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusOf возвращает HTTP статус для кода ошибки; для неизвестного кода 500.
func StatusOf(code string) int {
	if st, ok := statusByCode[code]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// Write отвечает ошибкой с кодом code. Ответ не кэшируется:
// повтор того же действия может пройти.
func Write(w http.ResponseWriter, code, message string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(StatusOf(code))
	_ = json.NewEncoder(w).Encode(Response{Error: Detail{Code: code, Message: message}})
}

// ValidationError — локальная проверка не пройдена, на backend ничего не отправлялось.
func ValidationError(w http.ResponseWriter, message string) {
	Write(w, CodeValidationError, message)
}

func NotFound(w http.ResponseWriter, message string) { Write(w, CodeNotFound, message) }

// Conflict — операция уже выполняется или сессия редактирования закрыта.
func Conflict(w http.ResponseWriter, message string) { Write(w, CodeConflict, message) }

func TooLarge(w http.ResponseWriter, message string) { Write(w, CodeTooLarge, message) }

func RateLimited(w http.ResponseWriter, message string) { Write(w, CodeRateLimited, message) }

// BackendError — backend устройств ответил ошибкой или недоступен.
// Уведомление оператору уже опубликовано, message попадает в журнал браузера.
func BackendError(w http.ResponseWriter, message string) { Write(w, CodeBackendError, message) }

func InternalError(w http.ResponseWriter, message string) { Write(w, CodeInternalError, message) }
