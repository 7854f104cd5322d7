// rfid.go — страница RFID-устройств: таблица с построчным
// редактированием, диалог создания, выбор и пакетное удаление.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/views"
)

// RfidHandler — обработчик страницы RFID.
type RfidHandler struct {
	store     *service.Collection[model.RfidRecord]
	editor    *service.RfidEditor
	bulk      *service.BulkActions[model.RfidRecord]
	layout    Layout
	deviceURL string
	logger    *slog.Logger
}

// NewRfidHandler создаёт обработчик страницы RFID.
// deviceURL — адрес симулируемого устройства для подсказки.
func NewRfidHandler(
	store *service.Collection[model.RfidRecord],
	editor *service.RfidEditor,
	bulk *service.BulkActions[model.RfidRecord],
	layout Layout,
	deviceURL string,
	logger *slog.Logger,
) *RfidHandler {
	return &RfidHandler{
		store:     store,
		editor:    editor,
		bulk:      bulk,
		layout:    layout,
		deviceURL: deviceURL,
		logger:    logger.With(slog.String("component", "ui.rfid")),
	}
}

// Routes регистрирует маршруты страницы.
func (h *RfidHandler) Routes(r chi.Router) {
	r.Get("/", h.HandlePage)
	r.Get("/table", h.HandleTable)
	r.Post("/refresh", h.HandleRefresh)
	r.Post("/select/{target}", h.HandleSelect)
	r.Post("/bulk-delete", h.HandleBulkDelete)

	r.Get("/dialog", h.HandleDialog)
	r.Post("/dialog/open", h.HandleDialogOpen)
	r.Post("/dialog/close", h.HandleDialogClose)
	r.Post("/dialog/field", h.HandleDialogField)
	r.Post("/dialog/submit", h.HandleDialogSubmit)

	r.Post("/{id}/edit", h.HandleEdit)
	r.Post("/{id}/field", h.HandleEditField)
	r.Post("/{id}/save", h.HandleSave)
	r.Post("/{id}/cancel", h.HandleCancel)
}

func (h *RfidHandler) tableData(q string) views.RfidTableData {
	snap := h.store.Snapshot()
	return views.RfidTableData{
		Snapshot: snap,
		Items:    service.FilterRfid(snap.Items, q),
		Editor:   h.editor.Snapshot(),
		BulkBusy: h.bulk.Busy(),
	}
}

// HandlePage обрабатывает GET /devices/rfid.
func (h *RfidHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	_ = h.store.Refresh(actionCtx(r))

	q := r.URL.Query().Get("q")
	render(w, r, views.RfidPage(views.RfidPageData{
		Meta:      h.layout.meta(views.TabRfid),
		DeviceURL: h.deviceURL,
		Search:    q,
		Table:     h.tableData(q),
		Dialog:    h.editor.Snapshot(),
	}), h.logger)
}

// HandleTable обрабатывает GET /devices/rfid/table.
func (h *RfidHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.RfidTable(h.tableData(r.URL.Query().Get("q"))), h.logger)
}

// HandleRefresh обрабатывает POST /devices/rfid/refresh.
func (h *RfidHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleSelect обрабатывает POST /devices/rfid/select/{all|none|id}.
func (h *RfidHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	selectTarget(w, r, h.store)
}

// HandleBulkDelete обрабатывает POST /devices/rfid/bulk-delete.
func (h *RfidHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.bulk.BulkDelete(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleDialog обрабатывает GET /devices/rfid/dialog — фрагмент диалога.
func (h *RfidHandler) HandleDialog(w http.ResponseWriter, r *http.Request) {
	render(w, r, views.RfidDialog(h.editor.Snapshot()), h.logger)
}

// HandleDialogOpen обрабатывает POST /devices/rfid/dialog/open.
func (h *RfidHandler) HandleDialogOpen(w http.ResponseWriter, _ *http.Request) {
	h.editor.OpenDialog()
	done(w)
}

// HandleDialogClose обрабатывает POST /devices/rfid/dialog/close.
func (h *RfidHandler) HandleDialogClose(w http.ResponseWriter, _ *http.Request) {
	h.editor.CloseDialog()
	done(w)
}

// HandleDialogField обрабатывает POST /devices/rfid/dialog/field.
func (h *RfidHandler) HandleDialogField(w http.ResponseWriter, r *http.Request) {
	name, value := fieldUpdate(r)
	if err := h.editor.UpdateNewField(name, value); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleDialogSubmit обрабатывает POST /devices/rfid/dialog/submit.
func (h *RfidHandler) HandleDialogSubmit(w http.ResponseWriter, r *http.Request) {
	if err := applyForm(r, h.editor.UpdateNewField); err != nil {
		writeActionError(w, r, err)
		return
	}
	if err := h.editor.SubmitNew(actionCtx(r)); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleEdit обрабатывает POST /devices/rfid/{id}/edit.
func (h *RfidHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	if err := h.editor.StartEditing(id); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleEditField обрабатывает POST /devices/rfid/{id}/field.
func (h *RfidHandler) HandleEditField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	name, value := fieldUpdate(r)
	if err := h.editor.UpdateEditField(id, name, value); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleSave обрабатывает POST /devices/rfid/{id}/save.
// Тело содержит все поля строки: они применяются до сохранения.
func (h *RfidHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badID(w, r)
		return
	}
	update := func(name, value string) error {
		return h.editor.UpdateEditField(id, name, value)
	}
	if err := applyForm(r, update); err != nil {
		writeActionError(w, r, err)
		return
	}
	if err := h.editor.SaveEditing(actionCtx(r), id); err != nil {
		writeActionError(w, r, err)
		return
	}
	done(w)
}

// HandleCancel обрабатывает POST /devices/rfid/{id}/cancel.
func (h *RfidHandler) HandleCancel(w http.ResponseWriter, _ *http.Request) {
	h.editor.CancelEditing()
	done(w)
}
