// collection.go — хранилище коллекции записей одного вида устройств.
//
// Collection — единственный владелец списка записей: список меняется
// только через Refresh и Apply*. Записи всегда отсортированы по id
// по убыванию, выбранные id всегда существуют в списке.
package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
)

var tracer = otel.Tracer("service")

// Record — запись коллекции с серверным идентификатором.
type Record interface {
	RecordID() int64
}

// FetchFunc загружает коллекцию целиком.
type FetchFunc[T Record] func(ctx context.Context) ([]T, error)

// Snapshot — неизменяемая копия состояния коллекции для отрисовки.
type Snapshot[T Record] struct {
	// Items — записи, отсортированные по id по убыванию.
	Items []T
	// Loading — выполняется загрузка.
	Loading bool
	// Loaded — была хотя бы одна успешная загрузка.
	Loaded bool
	// Err — ошибка последней загрузки (nil после успешной).
	Err error
	// Selected — выбранные id.
	Selected map[int64]bool
	// Rev — номер ревизии состояния.
	Rev uint64
}

// IsSelected проверяет, выбрана ли запись.
func (s Snapshot[T]) IsSelected(id int64) bool { return s.Selected[id] }

// AnySelected — выбрана хотя бы одна запись.
func (s Snapshot[T]) AnySelected() bool { return len(s.Selected) > 0 }

// AllSelected — выбраны все записи непустой коллекции.
func (s Snapshot[T]) AllSelected() bool {
	return len(s.Items) > 0 && len(s.Selected) == len(s.Items)
}

// Failed — загрузить коллекцию ни разу не удалось.
func (s Snapshot[T]) Failed() bool { return !s.Loaded && s.Err != nil }

// change — изменение записи, применённое во время загрузки.
type change[T Record] struct {
	rec     T
	deleted bool
	// insert — запись создана; обновление отсутствующей записи не вставляет её.
	insert bool
}

// Collection — хранилище записей одного вида с выбором.
type Collection[T Record] struct {
	name     string
	source   Source
	fetch    FetchFunc[T]
	notifier Notifier
	events   *Broadcaster
	logger   *slog.Logger

	mu       sync.Mutex
	items    []T
	selected map[int64]struct{}
	inFlight int
	gen      uint64
	loaded   bool
	lastErr  error
	rev      uint64
	// pending — изменения, применённые пока идёт загрузка. Загруженный
	// список мог быть получен до них, поэтому они накладываются поверх.
	pending map[int64]change[T]
}

// NewCollection создаёт пустую коллекцию. name используется в логах и трассировке.
func NewCollection[T Record](
	name string,
	source Source,
	fetch FetchFunc[T],
	notifier Notifier,
	events *Broadcaster,
	logger *slog.Logger,
) *Collection[T] {
	return &Collection[T]{
		name:     name,
		source:   source,
		fetch:    fetch,
		notifier: notifier,
		events:   events,
		logger:   logger.With(slog.String("component", "collection"), slog.String("collection", name)),
		selected: make(map[int64]struct{}),
		pending:  make(map[int64]change[T]),
	}
}

// Refresh загружает коллекцию целиком и заменяет список.
// При ошибке прежний список сохраняется, ошибка сообщается оператору.
// Результат загрузки, которую обогнала более новая, отбрасывается.
// Apply*, выполненные во время загрузки, сохраняются поверх её результата.
func (c *Collection[T]) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Collection.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("collection", c.name))

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.inFlight++
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)

	defer func() {
		c.mu.Lock()
		c.inFlight--
		if c.inFlight == 0 {
			clear(c.pending)
		}
		c.rev++
		c.mu.Unlock()
		c.events.Publish(c.source)
	}()

	items, err := c.fetch(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("Результат устаревшей загрузки отброшен")
		return nil
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		c.logger.Error("Ошибка загрузки коллекции", slog.String("error", err.Error()))
		c.notifier.Error(MsgLoadFailed, deviceclient.Detail(err))
		return err
	}

	c.items = sortDesc(c.replayLocked(items))
	c.loaded = true
	c.lastErr = nil
	c.intersectLocked()
	n := len(c.items)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("items", n))
	c.logger.Debug("Коллекция загружена", slog.Int("items", n))
	return nil
}

// ApplyCreated добавляет созданную запись (или заменяет запись с тем же id).
func (c *Collection[T]) ApplyCreated(rec T) {
	c.mu.Lock()
	id := rec.RecordID()
	c.trackLocked(id, change[T]{rec: rec, insert: true})
	if i := c.indexLocked(id); i >= 0 {
		c.items[i] = rec
	} else {
		c.items = append(c.items, rec)
	}
	c.items = sortDesc(c.items)
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
}

// ApplyUpdated заменяет запись на месте. Запись с неизвестным id
// игнорируется; возвращает false.
func (c *Collection[T]) ApplyUpdated(rec T) bool {
	c.mu.Lock()
	i := c.indexLocked(rec.RecordID())
	if i < 0 {
		c.mu.Unlock()
		c.logger.Warn("Обновлена запись, отсутствующая в коллекции",
			slog.Int64("id", rec.RecordID()),
		)
		return false
	}
	c.items[i] = rec
	c.trackLocked(rec.RecordID(), change[T]{rec: rec})
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
	return true
}

// ApplyDeleted удаляет записи и снимает с них выбор.
func (c *Collection[T]) ApplyDeleted(ids []int64) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	for id := range drop {
		c.trackLocked(id, change[T]{deleted: true})
	}
	c.items = slices.DeleteFunc(c.items, func(r T) bool {
		_, ok := drop[r.RecordID()]
		return ok
	})
	c.intersectLocked()
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
}

// Find возвращает запись по id.
func (c *Collection[T]) Find(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// SelectAll выбирает все записи.
func (c *Collection[T]) SelectAll() {
	c.mu.Lock()
	for _, r := range c.items {
		c.selected[r.RecordID()] = struct{}{}
	}
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
}

// SelectNone снимает выбор.
func (c *Collection[T]) SelectNone() {
	c.mu.Lock()
	clear(c.selected)
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
}

// Toggle переключает выбор записи. Неизвестный id игнорируется.
func (c *Collection[T]) Toggle(id int64) bool {
	c.mu.Lock()
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	c.rev++
	c.mu.Unlock()
	c.events.Publish(c.source)
	return true
}

// SelectedIDs возвращает выбранные id в порядке списка.
func (c *Collection[T]) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.selected))
	for _, r := range c.items {
		if _, ok := c.selected[r.RecordID()]; ok {
			ids = append(ids, r.RecordID())
		}
	}
	return ids
}

// AnySelected — выбрана хотя бы одна запись.
func (c *Collection[T]) AnySelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selected) > 0
}

// AllSelected — выбраны все записи непустой коллекции.
func (c *Collection[T]) AllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) > 0 && len(c.selected) == len(c.items)
}

// Source возвращает источник изменений коллекции.
func (c *Collection[T]) Source() Source { return c.source }

// Snapshot возвращает копию состояния.
func (c *Collection[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel := make(map[int64]bool, len(c.selected))
	for id := range c.selected {
		sel[id] = true
	}
	return Snapshot[T]{
		Items:    slices.Clone(c.items),
		Loading:  c.inFlight > 0,
		Loaded:   c.loaded,
		Err:      c.lastErr,
		Selected: sel,
		Rev:      c.rev,
	}
}

// trackLocked запоминает изменение, если идёт загрузка.
func (c *Collection[T]) trackLocked(id int64, ch change[T]) {
	if c.inFlight == 0 {
		return
	}
	if prev, ok := c.pending[id]; ok && prev.insert && !ch.deleted {
		ch.insert = true
	}
	c.pending[id] = ch
}

// replayLocked накладывает изменения, сделанные во время загрузки,
// на загруженный список. Исходный срез не меняется.
func (c *Collection[T]) replayLocked(items []T) []T {
	if len(c.pending) == 0 {
		return items
	}
	out := slices.Clone(items)
	for id, ch := range c.pending {
		i := slices.IndexFunc(out, func(r T) bool { return r.RecordID() == id })
		switch {
		case ch.deleted:
			if i >= 0 {
				out = slices.Delete(out, i, i+1)
			}
		case i >= 0:
			out[i] = ch.rec
		case ch.insert:
			out = append(out, ch.rec)
		}
	}
	return out
}

func (c *Collection[T]) indexLocked(id int64) int {
	return slices.IndexFunc(c.items, func(r T) bool { return r.RecordID() == id })
}

// intersectLocked оставляет в выборе только существующие id.
func (c *Collection[T]) intersectLocked() {
	if len(c.selected) == 0 {
		return
	}
	present := make(map[int64]struct{}, len(c.items))
	for _, r := range c.items {
		present[r.RecordID()] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := present[id]; !ok {
			delete(c.selected, id)
		}
	}
}

// sortDesc возвращает копию, отсортированную по id по убыванию.
func sortDesc[T Record](items []T) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(b.RecordID(), a.RecordID())
	})
	return out
}
