// bulk.go — пакетное и одиночное удаление выбранных записей коллекции.
package service

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
)

// BulkConfig — операции backend и ключи сообщений для BulkActions.
type BulkConfig struct {
	// DeleteMany удаляет записи одним запросом.
	DeleteMany func(ctx context.Context, ids []int64) error
	// DeleteOne удаляет одну запись; nil — одиночное удаление не поддерживается.
	DeleteOne func(ctx context.Context, id int64) error

	BulkDeletedKey  string
	BulkFailedKey   string
	DeletedKey      string
	DeleteFailedKey string
}

// BulkActions — удаление записей коллекции.
type BulkActions[T Record] struct {
	store    *Collection[T]
	cfg      BulkConfig
	notifier Notifier
	events   *Broadcaster
	logger   *slog.Logger

	mu       sync.Mutex
	busy     bool
	deleting map[int64]bool
}

// NewBulkActions создаёт контроллер удаления для коллекции store.
func NewBulkActions[T Record](
	store *Collection[T],
	cfg BulkConfig,
	notifier Notifier,
	events *Broadcaster,
	logger *slog.Logger,
) *BulkActions[T] {
	return &BulkActions[T]{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		events:   events,
		logger:   logger.With(slog.String("component", "bulk_actions"), slog.String("collection", store.name)),
		deleting: make(map[int64]bool),
	}
}

// ShowBulkBar — панель пакетных действий видна, пока есть выбор.
func (b *BulkActions[T]) ShowBulkBar() bool {
	return b.store.AnySelected()
}

// Busy — выполняется пакетное удаление.
func (b *BulkActions[T]) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// Deleting — выполняется удаление записи id.
func (b *BulkActions[T]) Deleting(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleting[id]
}

// BulkDelete удаляет все выбранные записи одним запросом.
// При ошибке коллекция и выбор не меняются.
func (b *BulkActions[T]) BulkDelete(ctx context.Context) ([]int64, error) {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return nil, ErrBulkInFlight
	}
	ids := b.store.SelectedIDs()
	if len(ids) == 0 {
		b.mu.Unlock()
		return nil, ErrNothingSelected
	}
	b.busy = true
	b.mu.Unlock()
	b.events.Publish(b.store.source)

	defer func() {
		b.mu.Lock()
		b.busy = false
		b.mu.Unlock()
		b.events.Publish(b.store.source)
	}()

	ctx, span := tracer.Start(ctx, "BulkActions.BulkDelete")
	defer span.End()
	span.SetAttributes(attribute.String("collection", b.store.name), attribute.Int("ids", len(ids)))

	if err := b.cfg.DeleteMany(ctx, ids); err != nil {
		span.RecordError(err)
		b.logger.Warn("Ошибка пакетного удаления",
			slog.Any("ids", ids),
			slog.String("error", err.Error()),
		)
		b.notifier.Error(b.cfg.BulkFailedKey, deviceclient.Detail(err))
		return nil, err
	}

	b.store.ApplyDeleted(ids)
	b.logger.Info("Записи удалены", slog.Any("ids", ids))
	b.notifier.Success(b.cfg.BulkDeletedKey)
	return ids, nil
}

// DeleteOne удаляет одну запись.
func (b *BulkActions[T]) DeleteOne(ctx context.Context, id int64) error {
	if b.cfg.DeleteOne == nil {
		return ErrUnsupported
	}

	b.mu.Lock()
	if b.deleting[id] {
		b.mu.Unlock()
		return ErrBulkInFlight
	}
	b.deleting[id] = true
	b.mu.Unlock()
	b.events.Publish(b.store.source)

	defer func() {
		b.mu.Lock()
		delete(b.deleting, id)
		b.mu.Unlock()
		b.events.Publish(b.store.source)
	}()

	ctx, span := tracer.Start(ctx, "BulkActions.DeleteOne")
	defer span.End()
	span.SetAttributes(attribute.String("collection", b.store.name), attribute.Int64("id", id))

	if err := b.cfg.DeleteOne(ctx, id); err != nil {
		span.RecordError(err)
		b.logger.Warn("Ошибка удаления записи",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		b.notifier.Error(b.cfg.DeleteFailedKey, deviceclient.Detail(err))
		return err
	}

	b.store.ApplyDeleted([]int64{id})
	b.logger.Info("Запись удалена", slog.Int64("id", id))
	b.notifier.Success(b.cfg.DeletedKey)
	return nil
}
