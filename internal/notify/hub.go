// Пакет notify — канал уведомлений оператора (toast).
//
// Hub хранит активные уведомления ограниченное время (TTL) и рассылает
// новые уведомления подписчикам (SSE-потокам браузера). Создаётся явно
// в main и передаётся компонентам, которым нужно сообщать о результате
// операций.
package notify

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Severity — важность уведомления. Уведомления бывают только двух видов.
type Severity string

// Допустимые значения Severity.
const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification — одно уведомление.
type Notification struct {
	// ID — идентификатор для закрытия уведомления пользователем.
	ID string
	// Severity — success или error.
	Severity Severity
	// Key — ключ сообщения в каталоге i18n.
	Key string
	// Detail — текст сервера, показывается вместо Key без перевода.
	Detail string
	// CreatedAt — время публикации.
	CreatedAt time.Time

	seq uint64
}

// subscriberBuffer — размер буфера канала одного подписчика.
const subscriberBuffer = 16

// Hub — хранилище активных уведомлений и рассылка подписчикам.
type Hub struct {
	store  *cache.Cache
	seq    atomic.Uint64
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[chan Notification]struct{}
	closed bool

	stopJanitor chan struct{}
	janitorDone chan struct{}
}

// NewHub создаёт Hub. Уведомление исчезает из Active через ttl.
func NewHub(ttl time.Duration, logger *slog.Logger) *Hub {
	h := &Hub{
		// Встроенную очистку go-cache нельзя остановить, чистим сами до Close.
		store:       cache.New(ttl, 0),
		logger:      logger.With(slog.String("component", "notify")),
		subs:        make(map[chan Notification]struct{}),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	h.store.OnEvicted(func(id string, _ interface{}) {
		h.logger.Debug("Уведомление удалено", slog.String("id", id))
	})
	if ttl > 0 {
		go h.janitor(ttl)
	} else {
		close(h.janitorDone)
	}
	return h
}

// janitor удаляет истёкшие уведомления раз в ttl.
func (h *Hub) janitor(ttl time.Duration) {
	defer close(h.janitorDone)
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.store.DeleteExpired()
		case <-h.stopJanitor:
			return
		}
	}
}

// Push публикует уведомление. После Close уведомление только логируется.
func (h *Hub) Push(sev Severity, key, detail string) Notification {
	seq := h.seq.Add(1)
	n := Notification{
		ID:        strconv.FormatUint(seq, 10),
		Severity:  sev,
		Key:       key,
		Detail:    detail,
		CreatedAt: time.Now(),
		seq:       seq,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		h.logger.Warn("Уведомление после остановки",
			slog.String("key", key),
			slog.String("detail", detail),
		)
		return n
	}

	h.store.SetDefault(n.ID, n)
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
			// Медленный подписчик перечитает список через Active.
		}
	}
	return n
}

// Success публикует уведомление об успехе.
func (h *Hub) Success(key string) {
	h.Push(SeveritySuccess, key, "")
}

// Error публикует уведомление об ошибке. Непустой detail показывается как есть.
func (h *Hub) Error(key, detail string) {
	h.Push(SeverityError, key, detail)
}

// Active возвращает неистёкшие уведомления в порядке публикации.
func (h *Hub) Active() []Notification {
	items := h.store.Items()
	out := make([]Notification, 0, len(items))
	for _, it := range items {
		if n, ok := it.Object.(Notification); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Dismiss закрывает уведомление. Возвращает false, если его уже нет.
func (h *Hub) Dismiss(id string) bool {
	if _, ok := h.store.Get(id); !ok {
		return false
	}
	h.store.Delete(id)
	return true
}

// Subscribe возвращает канал новых уведомлений и функцию отписки.
// После Close канал закрывается.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Close закрывает каналы подписчиков, останавливает очистку
// и очищает хранилище.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
	h.mu.Unlock()

	close(h.stopJanitor)
	<-h.janitorDone
	h.store.Flush()
}
