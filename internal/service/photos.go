// photos.go — фото паспорта в рамках открытой сессии Regula:
// список для выбора, загрузка, удаление.
package service

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// photoState — фото сессии.
type photoState struct {
	loading   bool
	items     []model.Photo
	uploading bool
	deleting  map[int64]bool
}

// PhotoFile — файл, выбранный оператором для загрузки.
type PhotoFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// loadPhotos загружает список фото для сессии s. Ошибка только логируется:
// сетка фото остаётся пустой, форма доступна. Результат для закрытой
// или заменённой сессии отбрасывается.
func (e *RegulaEditor) loadPhotos(s *regulaSession) {
	defer e.wg.Done()

	photos, err := e.backend.ListPhotos(s.ctx)

	e.mu.Lock()
	if e.session != s || s.ctx.Err() != nil {
		e.mu.Unlock()
		e.logger.Debug("Список фото для закрытой сессии отброшен",
			slog.Uint64("session", s.id),
		)
		return
	}
	s.photos.loading = false
	if err != nil {
		s.photos.items = nil
	} else {
		s.photos.items = photos
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("Ошибка загрузки списка фото",
			slog.Uint64("session", s.id),
			slog.String("error", err.Error()),
		)
	}
	e.events.Publish(SourceRegulaModal)
}

// SelectPhoto выбирает фото из загруженного списка. Только локально:
// привязка сохраняется вместе с записью.
func (e *RegulaEditor) SelectPhoto(id int64) error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if !slices.ContainsFunc(s.photos.items, func(p model.Photo) bool { return p.ID == id }) {
		e.mu.Unlock()
		return ErrUnknownPhoto
	}
	v := id
	s.draft.PhotoID = &v
	e.mu.Unlock()

	e.events.Publish(SourceRegulaModal)
	return nil
}

// ClearPhoto снимает выбор фото.
func (e *RegulaEditor) ClearPhoto() error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	s.draft.PhotoID = nil
	e.mu.Unlock()

	e.events.Publish(SourceRegulaModal)
	return nil
}

// UploadPhoto загружает фото и выбирает его в черновике.
// Файл с типом не image/* отклоняется без обращения к backend.
// Одновременно выполняется не более одной загрузки на сессию.
func (e *RegulaEditor) UploadPhoto(ctx context.Context, f PhotoFile) (*model.Photo, error) {
	if len(f.Data) == 0 {
		return nil, ErrEmptyFile
	}
	ct := uploadContentType(f.ContentType, f.Data)
	if !model.IsImageMediaType(ct) {
		return nil, ErrNotImage
	}

	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.photos.uploading {
		e.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	s.photos.uploading = true
	e.mu.Unlock()
	e.events.Publish(SourceRegulaModal)

	defer func() {
		e.mu.Lock()
		s.photos.uploading = false
		e.mu.Unlock()
		e.events.Publish(SourceRegulaModal)
	}()

	ctx, span := tracer.Start(ctx, "RegulaEditor.UploadPhoto")
	defer span.End()

	up := model.PhotoUpload{
		FileName:    generatePhotoName(f.FileName, ct),
		ContentType: ct,
		Data:        f.Data,
	}
	photo, err := e.backend.UploadPhoto(ctx, up)
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("Ошибка загрузки фото",
			slog.String("file_name", up.FileName),
			slog.String("error", err.Error()),
		)
		e.notifier.Error(MsgPhotoUploadFailed, deviceclient.Detail(err))
		return nil, err
	}

	e.mu.Lock()
	if e.session == s && s.ctx.Err() == nil {
		s.photos.items = slices.DeleteFunc(s.photos.items, func(p model.Photo) bool { return p.ID == photo.ID })
		s.photos.items = append([]model.Photo{*photo}, s.photos.items...)
		id := photo.ID
		s.draft.PhotoID = &id
	}
	e.mu.Unlock()

	e.logger.Info("Фото загружено",
		slog.Int64("photo_id", photo.ID),
		slog.String("file_name", up.FileName),
	)
	e.notifier.Success(MsgPhotoUploaded)
	return photo, nil
}

// DeletePhoto удаляет фото на backend. Если фото выбрано в черновике,
// выбор снимается.
func (e *RegulaEditor) DeletePhoto(ctx context.Context, id int64) error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if s.photos.deleting[id] {
		e.mu.Unlock()
		return ErrPhotoDeleteInFlight
	}
	s.photos.deleting[id] = true
	e.mu.Unlock()
	e.events.Publish(SourceRegulaModal)

	defer func() {
		e.mu.Lock()
		delete(s.photos.deleting, id)
		e.mu.Unlock()
		e.events.Publish(SourceRegulaModal)
	}()

	ctx, span := tracer.Start(ctx, "RegulaEditor.DeletePhoto")
	defer span.End()

	if err := e.backend.DeletePhoto(ctx, id); err != nil {
		span.RecordError(err)
		e.logger.Warn("Ошибка удаления фото",
			slog.Int64("photo_id", id),
			slog.String("error", err.Error()),
		)
		e.notifier.Error(MsgPhotoDeleteFailed, deviceclient.Detail(err))
		return err
	}

	e.photos.Evict(id)

	e.mu.Lock()
	if e.session == s {
		s.photos.items = slices.DeleteFunc(s.photos.items, func(p model.Photo) bool { return p.ID == id })
		if s.draft.PhotoID != nil && *s.draft.PhotoID == id {
			s.draft.PhotoID = nil
		}
	}
	e.mu.Unlock()

	e.logger.Info("Фото удалено", slog.Int64("photo_id", id))
	e.notifier.Success(MsgPhotoDeleted)
	return nil
}

// uploadContentType возвращает объявленный тип файла. Если тип не объявлен
// или общий (application/octet-stream), тип определяется по содержимому.
func uploadContentType(declared string, data []byte) string {
	ct := strings.TrimSpace(declared)
	if ct == "" || strings.HasPrefix(strings.ToLower(ct), "application/octet-stream") {
		return http.DetectContentType(data)
	}
	return ct
}

// generatePhotoName возвращает уникальное имя файла photo-<uuid><ext>.
// Расширение берётся из исходного имени, иначе из MIME-типа.
func generatePhotoName(original, contentType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || len(ext) > 6 {
		ext = ""
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "photo-" + uuid.NewString() + ext
}
