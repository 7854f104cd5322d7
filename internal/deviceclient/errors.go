// errors.go — таксономия ошибок обращения к backend устройств.
package deviceclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// errMissingID — успешный ответ на создание не содержит id.
var errMissingID = errors.New("в ответе нет идентификатора")

// Kind — категория ошибки запроса к backend.
type Kind int

// Категории ошибок.
const (
	// KindNone — ошибка не относится к backend (или её нет).
	KindNone Kind = iota
	// KindTransport — запрос не был выполнен (сеть, таймаут, отмена).
	KindTransport
	// KindConflict — 409, дублирующийся документ или метка.
	KindConflict
	// KindNotFound — 404.
	KindNotFound
	// KindClient — прочие 4xx.
	KindClient
	// KindServer — 5xx.
	KindServer
	// KindDecode — успешный статус, но тело не разобрано.
	KindDecode
)

// String возвращает имя категории для логов.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "none"
	}
}

// Error — ошибка операции клиента backend.
type Error struct {
	// Kind — категория ошибки.
	Kind Kind
	// Op — имя операции клиента (ListRegula, UploadPhoto, ...).
	Op string
	// StatusCode — HTTP-статус ответа (0 для KindTransport).
	StatusCode int
	// Detail — сообщение из поля detail ответа backend.
	Detail string
	// Body — сырое тело ответа (для диагностики, не показывается пользователю).
	Body string
	// Err — исходная ошибка транспорта или декодирования.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("%s: запрос к backend не выполнен: %v", e.Op, e.Err)
	case KindDecode:
		return fmt.Sprintf("%s: некорректный ответ backend: %v", e.Op, e.Err)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s: backend вернул статус %d: %s", e.Op, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s: backend вернул статус %d", e.Op, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf возвращает категорию ошибки backend или KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// IsConflict — true для ответа 409.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsNotFound — true для ответа 404.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Detail возвращает сообщение backend, которое можно показать пользователю.
// Только для ответов 4xx: тексты 5xx и тела некорректных ответов не показываются.
func Detail(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	switch e.Kind {
	case KindConflict, KindNotFound, KindClient:
		return e.Detail
	default:
		return ""
	}
}

// kindForStatus классифицирует неуспешный HTTP-статус.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindClient
	default:
		return KindServer
	}
}

// errorBody — тело ответа с ошибкой. detail бывает строкой
// ({"detail": "..."}) или списком ошибок валидации ({"detail": [{"msg": "..."}]}).
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// validationItem — элемент списка ошибок валидации.
type validationItem struct {
	Msg string `json:"msg"`
}

// parseDetail извлекает detail из тела ответа с ошибкой.
func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []validationItem
	if err := json.Unmarshal(eb.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
