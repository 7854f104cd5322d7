// events.go — рассылка изменений состояния консоли подписчикам (SSE).
package service

import (
	"sync"
	"sync/atomic"
)

// Source — часть состояния, которая изменилась.
type Source string

// Источники изменений.
const (
	SourceRegula      Source = "regula"
	SourceRegulaModal Source = "regula-modal"
	SourceRfid        Source = "rfid"
	SourceRfidDialog  Source = "rfid-dialog"
)

// Change — сигнал «перерисовать часть страницы». Данных не несёт:
// получатель перечитывает snapshot.
type Change struct {
	Source Source
	Rev    uint64
}

// changeBuffer — размер буфера канала одного подписчика.
const changeBuffer = 32

// Broadcaster рассылает Change всем подписчикам. Публикация не блокируется:
// если буфер подписчика заполнен, событие для него теряется.
type Broadcaster struct {
	rev atomic.Uint64

	mu     sync.Mutex
	subs   map[chan Change]struct{}
	closed bool
}

// NewBroadcaster создаёт Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Change]struct{})}
}

// Publish рассылает изменение источника src.
func (b *Broadcaster) Publish(src Source) {
	if b == nil {
		return
	}
	c := Change{Source: src, Rev: b.rev.Add(1)}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribe возвращает канал изменений и функцию отписки.
func (b *Broadcaster) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, changeBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Close закрывает каналы всех подписчиков.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
