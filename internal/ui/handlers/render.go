// Пакет handlers — HTTP-обработчики UI консоли устройств.
//
// Действия оператора (кнопки, поля форм, загрузка фото) меняют состояние
// сервисного слоя и отвечают 204; браузер перерисовывает фрагменты по
// SSE-событию. Ошибки локальной проверки возвращаются как 422 с текстом
// для формы, ошибки backend оператор уже видит в уведомлении.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/fakedevices/device-console/internal/api/errors"
	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/views"
)

// ToastSource — активные уведомления для отрисовки страницы.
type ToastSource interface {
	Active() []notify.Notification
}

// Layout — общие параметры страниц.
type Layout struct {
	Toasts ToastSource
	TTL    time.Duration
}

func (l Layout) meta(tab string) views.PageMeta {
	m := views.PageMeta{Tab: tab, ToastTTL: l.TTL}
	if l.Toasts != nil {
		m.Toasts = l.Toasts.Active()
	}
	return m
}

// render пишет HTML-компонент.
func render(w http.ResponseWriter, r *http.Request, c templ.Component, logger *slog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}

// actionCtx — context действия оператора. Не отменяется при разрыве
// соединения браузера: начатая операция backend доводится до конца
// и отражается в состоянии консоли.
func actionCtx(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// done — успешное действие.
func done(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// validationKeys — ключи текста для ошибок локальной проверки.
var validationKeys = []struct {
	err error
	key string
}{
	{service.ErrNotImage, "error.not_image"},
	{service.ErrEmptyFile, "error.empty_file"},
	{service.ErrUnknownField, "error.unknown_field"},
	{service.ErrInvalidValue, "error.invalid_value"},
	{service.ErrUnknownPhoto, "error.unknown_photo"},
	{service.ErrNothingSelected, "error.nothing_selected"},
	{service.ErrUnsupported, "error.unsupported"},
}

// inFlight — операция уже выполняется.
var inFlight = []error{
	service.ErrSubmitInFlight,
	service.ErrUploadInFlight,
	service.ErrPhotoDeleteInFlight,
	service.ErrBulkInFlight,
}

// writeActionError переводит ошибку действия в HTTP-ответ.
func writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	for _, v := range validationKeys {
		if errors.Is(err, v.err) {
			apierrors.ValidationError(w, i18n.T(ctx, v.key))
			return
		}
	}
	for _, e := range inFlight {
		if errors.Is(err, e) {
			apierrors.Conflict(w, i18n.T(ctx, "error.in_flight"))
			return
		}
	}

	switch {
	case errors.Is(err, service.ErrSessionClosed):
		apierrors.Conflict(w, i18n.T(ctx, "error.session_closed"))
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, i18n.T(ctx, "error.not_found"))
	case deviceclient.KindOf(err) != deviceclient.KindNone:
		apierrors.BackendError(w, i18n.T(ctx, "error.backend"))
	default:
		apierrors.InternalError(w, err.Error())
	}
}

// applyForm применяет все поля тела формы через update. Поля
// применяются в порядке имён; пустое тело ничего не меняет.
func applyForm(r *http.Request, update func(name, value string) error) error {
	if err := r.ParseForm(); err != nil {
		return service.ErrInvalidValue
	}
	for _, name := range slices.Sorted(maps.Keys(r.PostForm)) {
		values := r.PostForm[name]
		if len(values) == 0 {
			continue
		}
		if err := update(name, values[len(values)-1]); err != nil {
			return err
		}
	}
	return nil
}

// fieldUpdate читает пару name/value одного изменённого поля.
func fieldUpdate(r *http.Request) (name, value string) {
	return r.FormValue("name"), r.FormValue("value")
}

// pathID разбирает числовой параметр маршрута.
func pathID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// badID отвечает 404 на некорректный id в пути.
func badID(w http.ResponseWriter, r *http.Request) {
	apierrors.NotFound(w, i18n.T(r.Context(), "error.not_found"))
}
