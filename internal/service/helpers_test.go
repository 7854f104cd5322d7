package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// notice — уведомление, записанное fakeNotifier.
type notice struct {
	ok     bool
	key    string
	detail string
}

// fakeNotifier запоминает уведомления.
type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Success(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{ok: true, key: key})
}

func (n *fakeNotifier) Error(key, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{key: key, detail: detail})
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

// last возвращает последнее уведомление.
func (n *fakeNotifier) last(t *testing.T) notice {
	t.Helper()
	all := n.all()
	if len(all) == 0 {
		t.Fatal("уведомлений нет")
	}
	return all[len(all)-1]
}

// fakeRegulaBackend — настраиваемый backend Regula.
type fakeRegulaBackend struct {
	list       func(ctx context.Context) ([]model.RegulaRecord, error)
	create     func(ctx context.Context, d model.RegulaDraft) (*model.RegulaRecord, error)
	update     func(ctx context.Context, id int64, d model.RegulaDraft) (*model.RegulaRecord, error)
	listPhotos func(ctx context.Context) ([]model.Photo, error)
	upload     func(ctx context.Context, up model.PhotoUpload) (*model.Photo, error)
	delPhoto   func(ctx context.Context, id int64) error

	mu      sync.Mutex
	uploads []model.PhotoUpload
}

func (f *fakeRegulaBackend) ListRegula(ctx context.Context) ([]model.RegulaRecord, error) {
	return f.list(ctx)
}

func (f *fakeRegulaBackend) CreateRegula(ctx context.Context, d model.RegulaDraft) (*model.RegulaRecord, error) {
	return f.create(ctx, d)
}

func (f *fakeRegulaBackend) UpdateRegula(ctx context.Context, id int64, d model.RegulaDraft) (*model.RegulaRecord, error) {
	return f.update(ctx, id, d)
}

func (f *fakeRegulaBackend) ListPhotos(ctx context.Context) ([]model.Photo, error) {
	if f.listPhotos == nil {
		return []model.Photo{}, nil
	}
	return f.listPhotos(ctx)
}

func (f *fakeRegulaBackend) UploadPhoto(ctx context.Context, up model.PhotoUpload) (*model.Photo, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, up)
	f.mu.Unlock()
	return f.upload(ctx, up)
}

func (f *fakeRegulaBackend) DeletePhoto(ctx context.Context, id int64) error {
	return f.delPhoto(ctx, id)
}

func (f *fakeRegulaBackend) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// regulaRecords создаёт записи с указанными id.
func regulaRecords(ids ...int64) []model.RegulaRecord {
	out := make([]model.RegulaRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.RegulaRecord{ID: id, LastName: "Фамилия", Gender: model.GenderMale})
	}
	return out
}

// staticFetch возвращает FetchFunc с фиксированным результатом.
func staticFetch[T Record](items []T, err error) FetchFunc[T] {
	return func(context.Context) ([]T, error) { return items, err }
}

// newRegulaStore создаёт коллекцию Regula, загруженную из ids.
func newRegulaStore(t *testing.T, n Notifier, ids ...int64) *Collection[model.RegulaRecord] {
	t.Helper()
	c := NewCollection("regula", SourceRegula, staticFetch(regulaRecords(ids...), nil), n, NewBroadcaster(), testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return c
}

// recordIDs извлекает id записей.
func recordIDs[T Record](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, r := range items {
		out = append(out, r.RecordID())
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// waitFor ждёт выполнения условия не дольше секунды.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("не дождались: %s", what)
}

func int64Ptr(v int64) *int64 { return &v }
