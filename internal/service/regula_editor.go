// regula_editor.go — сессия редактирования записи Regula (модальная форма).
//
// Состояния: закрыта → открыта → (успешное сохранение → закрыта) |
// (ошибка сохранения → открыта, ошибка показана) | (отмена → закрыта).
// Одновременно открыта не более одной сессии. У каждой сессии свой id
// и context, который отменяется при закрытии: фоновые операции сессии
// применяют результат только к той же живой сессии.
package service

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// Mode — режим сессии редактирования.
type Mode string

// Режимы сессии.
const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// RegulaBackend — операции backend, нужные сессии Regula.
type RegulaBackend interface {
	CreateRegula(ctx context.Context, draft model.RegulaDraft) (*model.RegulaRecord, error)
	UpdateRegula(ctx context.Context, id int64, draft model.RegulaDraft) (*model.RegulaRecord, error)
	ListPhotos(ctx context.Context) ([]model.Photo, error)
	UploadPhoto(ctx context.Context, up model.PhotoUpload) (*model.Photo, error)
	DeletePhoto(ctx context.Context, id int64) error
}

// regulaSession — одна открытая модальная форма.
type regulaSession struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc

	mode   Mode
	target int64
	draft  model.RegulaDraft

	submitting bool
	errKey     string
	errDetail  string

	photos photoState
}

// RegulaModal — снимок состояния модальной формы для отрисовки.
type RegulaModal struct {
	Open       bool
	SessionID  uint64
	Mode       Mode
	TargetID   int64
	Draft      model.RegulaDraft
	Submitting bool
	// ErrKey — ключ сообщения об ошибке сохранения.
	ErrKey string
	// ErrDetail — текст сервера (409), показывается вместо ErrKey.
	ErrDetail string

	Photos         []model.Photo
	PhotosLoading  bool
	Uploading      bool
	DeletingPhotos map[int64]bool
}

// SelectedPhotoID возвращает id выбранного фото или 0.
func (m RegulaModal) SelectedPhotoID() int64 {
	if m.Draft.PhotoID == nil {
		return 0
	}
	return *m.Draft.PhotoID
}

// RegulaEditor — сессия редактирования Regula.
type RegulaEditor struct {
	backend  RegulaBackend
	store    *Collection[model.RegulaRecord]
	photos   *PhotoCache
	notifier Notifier
	events   *Broadcaster
	logger   *slog.Logger

	// baseCtx — родитель context сессий; отменяется при остановке сервиса.
	baseCtx context.Context

	mu      sync.Mutex
	seq     uint64
	session *regulaSession

	// wg — фоновые загрузки фото.
	wg sync.WaitGroup
}

// NewRegulaEditor создаёт редактор. photos может быть nil.
func NewRegulaEditor(
	baseCtx context.Context,
	backend RegulaBackend,
	store *Collection[model.RegulaRecord],
	photos *PhotoCache,
	notifier Notifier,
	events *Broadcaster,
	logger *slog.Logger,
) *RegulaEditor {
	return &RegulaEditor{
		backend:  backend,
		store:    store,
		photos:   photos,
		notifier: notifier,
		events:   events,
		logger:   logger.With(slog.String("component", "regula_editor")),
		baseCtx:  baseCtx,
	}
}

// OpenCreate открывает сессию создания с шаблоном черновика.
func (e *RegulaEditor) OpenCreate() uint64 {
	return e.open(ModeCreate, 0, model.NewRegulaDraft())
}

// OpenEdit открывает сессию редактирования записи.
func (e *RegulaEditor) OpenEdit(rec model.RegulaRecord) uint64 {
	return e.open(ModeEdit, rec.ID, model.DraftFromRegula(rec))
}

func (e *RegulaEditor) open(mode Mode, target int64, draft model.RegulaDraft) uint64 {
	ctx, cancel := context.WithCancel(e.baseCtx)

	e.mu.Lock()
	e.closeLocked()
	e.seq++
	s := &regulaSession{
		id:     e.seq,
		ctx:    ctx,
		cancel: cancel,
		mode:   mode,
		target: target,
		draft:  draft,
		photos: photoState{loading: true, deleting: make(map[int64]bool)},
	}
	e.session = s
	e.mu.Unlock()

	e.logger.Debug("Сессия редактирования открыта",
		slog.Uint64("session", s.id),
		slog.String("mode", string(mode)),
		slog.Int64("target", target),
	)

	e.wg.Add(1)
	go e.loadPhotos(s)

	e.events.Publish(SourceRegulaModal)
	return s.id
}

// Cancel закрывает сессию без сохранения. Фоновые операции сессии отменяются.
func (e *RegulaEditor) Cancel() {
	e.mu.Lock()
	closed := e.closeLocked()
	e.mu.Unlock()

	if closed {
		e.events.Publish(SourceRegulaModal)
	}
}

// closeLocked закрывает текущую сессию. Вызывается под e.mu.
func (e *RegulaEditor) closeLocked() bool {
	if e.session == nil {
		return false
	}
	e.session.cancel()
	e.session = nil
	return true
}

// UpdateField меняет одно поле черновика.
func (e *RegulaEditor) UpdateField(name, value string) error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	err := applyRegulaField(&s.draft, name, value)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.events.Publish(SourceRegulaModal)
	return nil
}

// applyRegulaField записывает значение поля формы в черновик.
func applyRegulaField(d *model.RegulaDraft, name, value string) error {
	switch name {
	case "name":
		d.Name = value
	case "last_name":
		d.LastName = value
	case "first_name":
		d.FirstName = value
	case "middle_name":
		d.MiddleName = value
	case "birth_date":
		d.BirthDate = value
	case "issue_date":
		d.IssueDate = value
	case "series":
		d.Series = value
	case "number":
		d.Number = value
	case "department_code":
		d.DepartmentCode = value
	case "issued_by":
		d.IssuedBy = value
	case "birth_place":
		d.BirthPlace = value
	case "gender":
		g := model.Gender(value)
		if !g.Valid() {
			return ErrInvalidValue
		}
		d.Gender = g
	case "photo_id":
		d.PhotoID = model.ParsePhotoID(value)
	case "delayed_response":
		d.DelayedResponse = model.ParseDelayedResponse(value)
	default:
		return ErrUnknownField
	}
	return nil
}

// Submit сохраняет черновик: POST при создании, PUT при редактировании.
// При успехе сессия закрывается, коллекция обновляется. При ошибке сессия
// остаётся открытой с нетронутым черновиком; для 409 показывается detail сервера.
func (e *RegulaEditor) Submit(ctx context.Context) error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if s.submitting {
		e.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.submitting = true
	s.errKey, s.errDetail = "", ""
	mode, target := s.mode, s.target
	draft := s.draft.Clone()
	e.mu.Unlock()
	e.events.Publish(SourceRegulaModal)

	defer func() {
		e.mu.Lock()
		if e.session == s {
			s.submitting = false
		}
		e.mu.Unlock()
		e.events.Publish(SourceRegulaModal)
	}()

	ctx, span := tracer.Start(ctx, "RegulaEditor.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(mode)), attribute.Int64("target", target))

	var (
		rec *model.RegulaRecord
		err error
	)
	if mode == ModeCreate {
		rec, err = e.backend.CreateRegula(ctx, draft)
	} else {
		rec, err = e.backend.UpdateRegula(ctx, target, draft)
	}

	okKey, failKey := MsgRegulaCreated, MsgRegulaCreateFailed
	if mode == ModeEdit {
		okKey, failKey = MsgRegulaUpdated, MsgRegulaUpdateFailed
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")

		detail := ""
		if deviceclient.IsConflict(err) {
			detail = deviceclient.Detail(err)
		}

		e.mu.Lock()
		if e.session == s {
			s.errKey, s.errDetail = failKey, detail
		}
		e.mu.Unlock()

		e.logger.Warn("Ошибка сохранения записи Regula",
			slog.String("mode", string(mode)),
			slog.Int64("target", target),
			slog.String("error", err.Error()),
		)
		e.notifier.Error(failKey, detail)
		return err
	}

	// Коллекция согласуется даже если сессию уже закрыли.
	if mode == ModeCreate {
		e.store.ApplyCreated(*rec)
	} else {
		e.store.ApplyUpdated(*rec)
	}

	e.mu.Lock()
	if e.session == s {
		e.closeLocked()
	}
	e.mu.Unlock()

	e.logger.Info("Запись Regula сохранена",
		slog.String("mode", string(mode)),
		slog.Int64("id", rec.ID),
	)
	e.notifier.Success(okKey)
	return nil
}

// Snapshot возвращает состояние модальной формы.
func (e *RegulaEditor) Snapshot() RegulaModal {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return RegulaModal{}
	}

	deleting := make(map[int64]bool, len(s.photos.deleting))
	for id, v := range s.photos.deleting {
		deleting[id] = v
	}
	photos := make([]model.Photo, len(s.photos.items))
	copy(photos, s.photos.items)

	return RegulaModal{
		Open:           true,
		SessionID:      s.id,
		Mode:           s.mode,
		TargetID:       s.target,
		Draft:          s.draft.Clone(),
		Submitting:     s.submitting,
		ErrKey:         s.errKey,
		ErrDetail:      s.errDetail,
		Photos:         photos,
		PhotosLoading:  s.photos.loading,
		Uploading:      s.photos.uploading,
		DeletingPhotos: deleting,
	}
}

// Wait ожидает завершения фоновых загрузок фото.
func (e *RegulaEditor) Wait() {
	e.wg.Wait()
}

// Close закрывает сессию и ждёт фоновые загрузки.
func (e *RegulaEditor) Close() {
	e.Cancel()
	e.Wait()
}
