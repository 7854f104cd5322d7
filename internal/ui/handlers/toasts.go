// toasts.go — фрагмент области уведомлений.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/views"
)

// ToastStore — активные уведомления с ручным закрытием.
type ToastStore interface {
	ToastSource
	Dismiss(id string) bool
}

// ToastsHandler — обработчик области уведомлений.
type ToastsHandler struct {
	store  ToastStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewToastsHandler создаёт обработчик уведомлений.
func NewToastsHandler(store ToastStore, ttl time.Duration, logger *slog.Logger) *ToastsHandler {
	return &ToastsHandler{
		store:  store,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "ui.toasts")),
	}
}

// HandleList обрабатывает GET /partials/toasts.
func (h *ToastsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.Toasts(h.store.Active(), h.ttl), h.logger)
}

// HandleDismiss обрабатывает DELETE /partials/toasts/{id}.
// Уже исчезнувшее уведомление не считается ошибкой.
func (h *ToastsHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	h.store.Dismiss(chi.URLParam(r, "id"))
	done(w)
}

var _ ToastStore = (*notify.Hub)(nil)
