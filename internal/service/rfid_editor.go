// rfid_editor.go — создание RFID-устройства (диалог) и редактирование строки таблицы.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// RfidBackend — операции backend, нужные редактору RFID.
type RfidBackend interface {
	CreateRfid(ctx context.Context, draft model.RfidDraft) (*model.RfidRecord, error)
	UpdateRfid(ctx context.Context, id int64, draft model.RfidDraft) (*model.RfidRecord, error)
}

// RfidState — снимок состояния редактора RFID.
type RfidState struct {
	DialogOpen bool
	NewDraft   model.RfidDraft
	Creating   bool

	// EditingID — id редактируемой строки, 0 — редактирования нет.
	EditingID int64
	EditDraft model.RfidDraft
	Saving    bool
	EditErr   string
}

type rfidDialog struct {
	gen        uint64
	open       bool
	draft      model.RfidDraft
	submitting bool
}

type rfidRow struct {
	id     int64
	draft  model.RfidDraft
	saving bool
	errMsg string
}

// RfidEditor — редактор RFID-устройств.
type RfidEditor struct {
	backend  RfidBackend
	store    *Collection[model.RfidRecord]
	notifier Notifier
	events   *Broadcaster
	logger   *slog.Logger

	mu      sync.Mutex
	dialog  rfidDialog
	editing *rfidRow
}

// NewRfidEditor создаёт редактор RFID.
func NewRfidEditor(
	backend RfidBackend,
	store *Collection[model.RfidRecord],
	notifier Notifier,
	events *Broadcaster,
	logger *slog.Logger,
) *RfidEditor {
	return &RfidEditor{
		backend:  backend,
		store:    store,
		notifier: notifier,
		events:   events,
		logger:   logger.With(slog.String("component", "rfid_editor")),
	}
}

// OpenDialog открывает диалог создания с пустым черновиком.
func (e *RfidEditor) OpenDialog() {
	e.mu.Lock()
	e.dialog = rfidDialog{gen: e.dialog.gen + 1, open: true}
	e.mu.Unlock()
	e.events.Publish(SourceRfidDialog)
}

// CloseDialog закрывает диалог, черновик сбрасывается.
func (e *RfidEditor) CloseDialog() {
	e.mu.Lock()
	e.dialog = rfidDialog{gen: e.dialog.gen + 1}
	e.mu.Unlock()
	e.events.Publish(SourceRfidDialog)
}

// UpdateNewField меняет поле черновика нового устройства.
func (e *RfidEditor) UpdateNewField(name, value string) error {
	e.mu.Lock()
	if !e.dialog.open {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	err := applyRfidField(&e.dialog.draft, name, value)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.events.Publish(SourceRfidDialog)
	return nil
}

// SubmitNew создаёт устройство. При успехе диалог закрывается,
// при ошибке остаётся открытым с черновиком.
func (e *RfidEditor) SubmitNew(ctx context.Context) error {
	e.mu.Lock()
	if !e.dialog.open {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if e.dialog.submitting {
		e.mu.Unlock()
		return ErrSubmitInFlight
	}
	e.dialog.submitting = true
	gen := e.dialog.gen
	draft := e.dialog.draft
	e.mu.Unlock()
	e.events.Publish(SourceRfidDialog)

	defer func() {
		e.mu.Lock()
		if e.dialog.gen == gen {
			e.dialog.submitting = false
		}
		e.mu.Unlock()
		e.events.Publish(SourceRfidDialog)
	}()

	ctx, span := tracer.Start(ctx, "RfidEditor.SubmitNew")
	defer span.End()

	rec, err := e.backend.CreateRfid(ctx, draft)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("Ошибка создания RFID-устройства", slog.String("error", err.Error()))
		e.notifier.Error(MsgRfidCreateFailed, "")
		return err
	}

	e.store.ApplyCreated(*rec)

	e.mu.Lock()
	if e.dialog.gen == gen {
		e.dialog = rfidDialog{gen: gen + 1}
	}
	e.mu.Unlock()

	e.logger.Info("RFID-устройство создано", slog.Int64("id", rec.ID))
	e.notifier.Success(MsgRfidCreated)
	return nil
}

// StartEditing переводит строку id в режим редактирования.
// Предыдущее несохранённое редактирование отбрасывается.
func (e *RfidEditor) StartEditing(id int64) error {
	rec, ok := e.store.Find(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	e.editing = &rfidRow{id: id, draft: model.DraftFromRfid(rec)}
	e.mu.Unlock()
	e.events.Publish(SourceRfid)
	return nil
}

// UpdateEditField меняет поле редактируемой строки.
func (e *RfidEditor) UpdateEditField(id int64, name, value string) error {
	e.mu.Lock()
	row := e.editing
	if row == nil || row.id != id {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	err := applyRfidField(&row.draft, name, value)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.events.Publish(SourceRfid)
	return nil
}

// SaveEditing сохраняет все поля редактируемой строки.
// При ошибке строка остаётся в режиме редактирования.
func (e *RfidEditor) SaveEditing(ctx context.Context, id int64) error {
	e.mu.Lock()
	row := e.editing
	if row == nil || row.id != id {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if row.saving {
		e.mu.Unlock()
		return ErrSubmitInFlight
	}
	row.saving = true
	row.errMsg = ""
	draft := row.draft
	e.mu.Unlock()
	e.events.Publish(SourceRfid)

	defer func() {
		e.mu.Lock()
		row.saving = false
		e.mu.Unlock()
		e.events.Publish(SourceRfid)
	}()

	ctx, span := tracer.Start(ctx, "RfidEditor.SaveEditing")
	defer span.End()

	rec, err := e.backend.UpdateRfid(ctx, id, draft)
	if err != nil {
		span.RecordError(err)
		detail := deviceclient.Detail(err)

		e.mu.Lock()
		if e.editing == row {
			row.errMsg = detail
		}
		e.mu.Unlock()

		e.logger.Warn("Ошибка сохранения RFID-устройства",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		e.notifier.Error(MsgRfidUpdateFailed, detail)
		return err
	}

	e.store.ApplyUpdated(*rec)

	e.mu.Lock()
	if e.editing == row {
		e.editing = nil
	}
	e.mu.Unlock()

	e.logger.Info("RFID-устройство обновлено", slog.Int64("id", id))
	e.notifier.Success(MsgRfidUpdated)
	return nil
}

// CancelEditing отменяет редактирование строки без подтверждения.
func (e *RfidEditor) CancelEditing() {
	e.mu.Lock()
	changed := e.editing != nil
	e.editing = nil
	e.mu.Unlock()
	if changed {
		e.events.Publish(SourceRfid)
	}
}

// Snapshot возвращает состояние редактора.
func (e *RfidEditor) Snapshot() RfidState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := RfidState{
		DialogOpen: e.dialog.open,
		NewDraft:   e.dialog.draft,
		Creating:   e.dialog.submitting,
	}
	if e.editing != nil {
		st.EditingID = e.editing.id
		st.EditDraft = e.editing.draft
		st.Saving = e.editing.saving
		st.EditErr = e.editing.errMsg
	}
	return st
}

// applyRfidField записывает значение поля формы в черновик RFID.
func applyRfidField(d *model.RfidDraft, name, value string) error {
	switch name {
	case "name":
		d.Name = value
	case "rfid":
		d.Rfid = value
	case "clip_card":
		d.ClipCard = parseFlag(value)
	case "empty_card_bin":
		d.EmptyCardBin = parseFlag(value)
	case "error_card_bin_full":
		d.ErrorCardBinFull = parseFlag(value)
	case "pre_empty_card_bin":
		d.PreEmptyCardBin = parseFlag(value)
	default:
		return ErrUnknownField
	}
	return nil
}

// parseFlag разбирает значение чекбокса: "on" и true-значения strconv.ParseBool.
func parseFlag(v string) bool {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "on") {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
