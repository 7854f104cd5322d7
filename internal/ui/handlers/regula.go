// regula.go — страница устройств Regula: таблица, выбор, удаление,
// модальная форма записи и фото паспорта.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/fakedevices/device-console/internal/api/errors"
	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/views"
)

// multipartOverhead — запас на заголовки multipart сверх размера файла.
const multipartOverhead = 64 << 10

// RegulaConfig — параметры страницы Regula.
type RegulaConfig struct {
	// DeviceURL — адрес симулируемого устройства для подсказки.
	DeviceURL string
	// MaxUploadBytes — максимальный размер файла фото.
	MaxUploadBytes int64
}

// RegulaHandler — обработчик страницы Regula.
type RegulaHandler struct {
	store  *service.Collection[model.RegulaRecord]
	editor *service.RegulaEditor
	bulk   *service.BulkActions[model.RegulaRecord]
	photos *service.PhotoCache
	layout Layout
	cfg    RegulaConfig
	logger *slog.Logger
}

// NewRegulaHandler создаёт обработчик страницы Regula.
func NewRegulaHandler(
	store *service.Collection[model.RegulaRecord],
	editor *service.RegulaEditor,
	bulk *service.BulkActions[model.RegulaRecord],
	photos *service.PhotoCache,
	layout Layout,
	cfg RegulaConfig,
	logger *slog.Logger,
) *RegulaHandler {
	return &RegulaHandler{
		store:  store,
		editor: editor,
		bulk:   bulk,
		photos: photos,
		layout: layout,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ui.regula")),
	}
}

// Routes регистрирует маршруты страницы. upload — middleware
// маршрута загрузки фото (ограничение частоты), может быть nil.
func (h *RegulaHandler) Routes(r chi.Router, upload func(http.Handler) http.Handler) {
	r.Get("/", h.HandlePage)
	r.Get("/table", h.HandleTable)
	r.Post("/refresh", h.HandleRefresh)
	r.Post("/select/{target}", h.HandleSelect)
	r.Post("/bulk-delete", h.HandleBulkDelete)
	r.Post("/new", h.HandleNew)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/edit", h.HandleEdit)
	r.Get("/photos/{id}/image", h.HandlePhotoImage)

	r.Route("/modal", func(r chi.Router) {
		r.Get("/", h.HandleModal)
		r.Post("/field", h.HandleField)
		r.Post("/submit", h.HandleSubmit)
		r.Post("/cancel", h.HandleCancel)
		r.Post("/photos/clear", h.HandleClearPhoto)
		r.Post("/photos/{id}/select", h.HandleSelectPhoto)
		r.Delete("/photos/{id}", h.HandleDeletePhoto)
		if upload != nil {
			r.With(upload).Post("/photos", h.HandleUpload)
		} else {
			r.Post("/photos", h.HandleUpload)
		}
	})
}

func (h *RegulaHandler) tableData(q string) views.RegulaTableData {
	snap := h.store.Snapshot()
	items := service.FilterRegula(snap.Items, q)
	deleting := make(map[int64]bool)
	for _, rec := range items {
		if h.bulk.Deleting(rec.ID) {
			deleting[rec.ID] = true
		}
	}
	return views.RegulaTableData{
		Snapshot: snap,
		Items:    items,
		BulkBusy: h.bulk.Busy(),
		Deleting: deleting,
	}
}

// HandlePage обрабатывает GET /devices/regula — загружает коллекцию
// и отображает страницу. Ошибка загрузки показывается в таблице.
func (h *RegulaHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	_ = h.store.Refresh(actionCtx(r))

	q := r.URL.Query().Get("q")
	render(w, r, views.RegulaPage(views.RegulaPageData{
		Meta:      h.layout.meta(views.TabRegula),
		DeviceURL: h.cfg.DeviceURL,
		Search:    q,
		Table:     h.tableData(q),
		Modal:     h.editor.Snapshot(),
	}), h.logger)
}

// HandleTable обрабатывает GET /devices/regula/table — фрагмент таблицы.
func (h *RegulaHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.RegulaTable(h.tableData(r.URL.Query().Get("q"))), h.logger)
}

// HandleRefresh обрабатывает POST /devices/regula/refresh.
func (h *RegulaHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleSelect обрабатывает POST /devices/regula/select/{all|none|id}.
func (h *RegulaHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	selectTarget(w, r, h.store)
}

// HandleBulkDelete обрабатывает POST /devices/regula/bulk-delete.
func (h *RegulaHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.bulk.BulkDelete(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleDelete обрабатывает DELETE /devices/regula/{id}.
func (h *RegulaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	if err := h.bulk.DeleteOne(actionCtx(r), id); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleNew обрабатывает POST /devices/regula/new — открывает форму создания.
func (h *RegulaHandler) HandleNew(w http.ResponseWriter, _ *http.Request) {
	h.editor.OpenCreate()
	done(w)
}

// HandleEdit обрабатывает POST /devices/regula/{id}/edit.
func (h *RegulaHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	rec, found := h.store.Find(id)
	if !found {
		writeActionError(w, r, service.ErrNotFound)
		return
	}
	h.editor.OpenEdit(rec)
	done(w)
}

// HandleModal обрабатывает GET /devices/regula/modal — фрагмент формы.
func (h *RegulaHandler) HandleModal(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.RegulaModal(h.editor.Snapshot()), h.logger)
}

// HandleField обрабатывает POST /devices/regula/modal/field (name, value).
func (h *RegulaHandler) HandleField(w http.ResponseWriter, r *http.Request) {
	name, value := fieldUpdate(r)
	if err := h.editor.UpdateField(name, value); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleSubmit обрабатывает POST /devices/regula/modal/submit.
// Тело содержит все поля формы: они применяются до сохранения.
func (h *RegulaHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := applyForm(r, h.editor.UpdateField); err != nil {
		writeActionError(w, r, err)
		return
	}
	if err := h.editor.Submit(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleCancel обрабатывает POST /devices/regula/modal/cancel.
func (h *RegulaHandler) HandleCancel(w http.ResponseWriter, _ *http.Request) {
	h.editor.Cancel()
	done(w)
}

// HandleUpload обрабатывает POST /devices/regula/modal/photos
// (multipart/form-data, поле file).
func (h *RegulaHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(w, r)
			return
		}
		if errors.Is(err, http.ErrMissingFile) {
			writeActionError(w, r, service.ErrEmptyFile)
			return
		}
		apierrors.ValidationError(w, i18n.T(r.Context(), "error.bad_form"))
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		h.tooLarge(w, r)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		apierrors.ValidationError(w, i18n.T(r.Context(), "error.bad_form"))
		return
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		h.tooLarge(w, r)
		return
	}

	photo, err := h.editor.UploadPhoto(actionCtx(r), service.PhotoFile{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeActionError(w, r, err)
		return
	}
	h.logger.Debug("Фото загружено через форму",
		slog.Int64("photo_id", photo.ID),
		slog.Int("bytes", len(data)),
	)
	done(w)
}

func (h *RegulaHandler) tooLarge(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Файл фото больше допустимого размера",
		slog.Int64("max_bytes", h.cfg.MaxUploadBytes),
	)
	apierrors.TooLarge(w, i18n.T(r.Context(), "error.too_large"))
}

// HandleClearPhoto обрабатывает POST /devices/regula/modal/photos/clear.
func (h *RegulaHandler) HandleClearPhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.ClearPhoto(); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleSelectPhoto обрабатывает POST /devices/regula/modal/photos/{id}/select.
func (h *RegulaHandler) HandleSelectPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	if err := h.editor.SelectPhoto(id); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleDeletePhoto обрабатывает DELETE /devices/regula/modal/photos/{id}.
func (h *RegulaHandler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	if err := h.editor.DeletePhoto(actionCtx(r), id); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandlePhotoImage обрабатывает GET /devices/regula/photos/{id}/image —
// байты фото для <img>, через кэш.
func (h *RegulaHandler) HandlePhotoImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	img, err := h.photos.Get(r.Context(), id)
	if err != nil {
		if deviceclient.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Warn("Ошибка получения фото",
			slog.Int64("photo_id", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	ct := img.ContentType
	if ct == "" {
		ct = http.DetectContentType(img.Data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(img.Data)
}

// selection — операции выбора коллекции.
type selection interface {
	SelectAll()
	SelectNone()
	Toggle(id int64) bool
}

// selectTarget применяет выбор {target}: all, none или id записи.
func selectTarget(w http.ResponseWriter, r *http.Request, s selection) {
	switch chi.URLParam(r, "target") {
	case "all":
		s.SelectAll()
	case "none":
		s.SelectNone()
	default:
		id, ok := pathID(r, "target")
		if !ok || !s.Toggle(id) {
			writeActionError(w, r, service.ErrNotFound)
			return
		}
	}
	done(w)
}
