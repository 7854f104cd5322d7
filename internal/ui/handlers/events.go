// events.go — SSE-поток изменений состояния консоли.
// Каждый SSE-клиент обслуживается отдельной горутиной запроса.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
)

// ChangeSource — подписка на изменения состояния.
type ChangeSource interface {
	Subscribe() (<-chan service.Change, func())
}

// ToastFeed — подписка на новые уведомления.
type ToastFeed interface {
	Subscribe() (<-chan notify.Notification, func())
}

// EventsHandler — обработчик GET /events.
type EventsHandler struct {
	changes   ChangeSource
	toasts    ToastFeed
	keepalive time.Duration
	logger    *slog.Logger
}

// NewEventsHandler создаёт обработчик SSE. keepalive — интервал
// комментариев, не дающих прокси закрыть простаивающее соединение.
func NewEventsHandler(changes ChangeSource, toasts ToastFeed, keepalive time.Duration, logger *slog.Logger) *EventsHandler {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &EventsHandler{
		changes:   changes,
		toasts:    toasts,
		keepalive: keepalive,
		logger:    logger.With(slog.String("component", "ui.events")),
	}
}

// stateEvent — данные события state.
type stateEvent struct {
	Source service.Source `json:"source"`
	Rev    uint64         `json:"rev"`
}

// toastEvent — данные события toast.
type toastEvent struct {
	ID       string          `json:"id"`
	Severity notify.Severity `json:"severity"`
}

// HandleEvents обрабатывает GET /events.
// Формат: event: state\ndata: {json}\n\n и event: toast\ndata: {json}\n\n.
// Поток завершается при отключении клиента или остановке сервиса.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// ResponseController находит http.Flusher через Unwrap()
	// обёрток middleware.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	changes, unsubChanges := h.changes.Subscribe()
	defer unsubChanges()
	toasts, unsubToasts := h.toasts.Subscribe()
	defer unsubToasts()

	h.logger.Debug("SSE клиент подключён", slog.String("remote_addr", r.RemoteAddr))

	// retry — пауза переподключения EventSource, мс.
	fmt.Fprint(w, "retry: 3000\n\n")
	_ = rc.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE клиент отключён", slog.String("remote_addr", r.RemoteAddr))
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := h.send(w, "state", stateEvent{Source: c.Source, Rev: c.Rev}); err != nil {
				return
			}
		case n, ok := <-toasts:
			if !ok {
				return
			}
			if err := h.send(w, "toast", toastEvent{ID: n.ID, Severity: n.Severity}); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// send пишет одно SSE-событие.
func (h *EventsHandler) send(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Ошибка сериализации SSE-события",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return nil
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
