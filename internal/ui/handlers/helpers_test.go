package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pngBytes — минимальное содержимое с сигнатурой PNG.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

// memBackend — backend устройств в памяти.
type memBackend struct {
	mu     sync.Mutex
	nextID int64
	regula []model.RegulaRecord
	rfid   []model.RfidRecord
	photos []model.Photo
	images map[int64]*model.PhotoImage

	// failWith — ошибка всех операций записи, если задана.
	failWith error
}

func newMemBackend() *memBackend {
	return &memBackend{nextID: 100, images: make(map[int64]*model.PhotoImage)}
}

func (m *memBackend) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memBackend) ListRegula(context.Context) ([]model.RegulaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.regula), nil
}

func (m *memBackend) CreateRegula(_ context.Context, d model.RegulaDraft) (*model.RegulaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rec := regulaFromDraft(m.id(), d)
	m.regula = append(m.regula, rec)
	return &rec, nil
}

func (m *memBackend) UpdateRegula(_ context.Context, id int64, d model.RegulaDraft) (*model.RegulaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rec := regulaFromDraft(id, d)
	for i := range m.regula {
		if m.regula[i].ID == id {
			m.regula[i] = rec
		}
	}
	return &rec, nil
}

func (m *memBackend) DeleteManyRegula(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.regula = slices.DeleteFunc(m.regula, func(r model.RegulaRecord) bool { return slices.Contains(ids, r.ID) })
	return nil
}

func (m *memBackend) DeleteRegula(ctx context.Context, id int64) error {
	return m.DeleteManyRegula(ctx, []int64{id})
}

func (m *memBackend) ListPhotos(context.Context) ([]model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.photos), nil
}

func (m *memBackend) UploadPhoto(_ context.Context, up model.PhotoUpload) (*model.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p := model.Photo{ID: m.id(), FileName: up.FileName, ContentType: up.ContentType}
	m.photos = append([]model.Photo{p}, m.photos...)
	m.images[p.ID] = &model.PhotoImage{ContentType: up.ContentType, Data: up.Data}
	return &p, nil
}

func (m *memBackend) DeletePhoto(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.photos = slices.DeleteFunc(m.photos, func(p model.Photo) bool { return p.ID == id })
	delete(m.images, id)
	return nil
}

func (m *memBackend) FetchPhoto(_ context.Context, id int64) (*model.PhotoImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, &deviceclient.Error{Kind: deviceclient.KindNotFound, Op: "FetchPhoto", StatusCode: 404}
	}
	return img, nil
}

func (m *memBackend) ListRfid(context.Context) ([]model.RfidRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rfid), nil
}

func (m *memBackend) CreateRfid(_ context.Context, d model.RfidDraft) (*model.RfidRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rec := rfidFromDraft(m.id(), d)
	m.rfid = append(m.rfid, rec)
	return &rec, nil
}

func (m *memBackend) UpdateRfid(_ context.Context, id int64, d model.RfidDraft) (*model.RfidRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rec := rfidFromDraft(id, d)
	for i := range m.rfid {
		if m.rfid[i].ID == id {
			m.rfid[i] = rec
		}
	}
	return &rec, nil
}

func (m *memBackend) DeleteManyRfid(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.rfid = slices.DeleteFunc(m.rfid, func(r model.RfidRecord) bool { return slices.Contains(ids, r.ID) })
	return nil
}

func (m *memBackend) fail(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

func regulaFromDraft(id int64, d model.RegulaDraft) model.RegulaRecord {
	return model.RegulaRecord{
		ID: id, Name: d.Name, LastName: d.LastName, FirstName: d.FirstName, MiddleName: d.MiddleName,
		BirthDate: d.BirthDate, IssueDate: d.IssueDate, Series: d.Series, Number: d.Number,
		DepartmentCode: d.DepartmentCode, IssuedBy: d.IssuedBy, BirthPlace: d.BirthPlace,
		Gender: d.Gender, PhotoID: d.PhotoID, DelayedResponse: d.DelayedResponse,
	}
}

func rfidFromDraft(id int64, d model.RfidDraft) model.RfidRecord {
	return model.RfidRecord{
		ID: id, Name: d.Name, Rfid: d.Rfid, ClipCard: d.ClipCard, EmptyCardBin: d.EmptyCardBin,
		ErrorCardBinFull: d.ErrorCardBinFull, PreEmptyCardBin: d.PreEmptyCardBin,
	}
}

// testEnv — консоль поверх memBackend.
type testEnv struct {
	backend *memBackend
	hub     *notify.Hub
	events  *service.Broadcaster

	regulaStore *service.Collection[model.RegulaRecord]
	rfidStore   *service.Collection[model.RfidRecord]
	regulaEd    *service.RegulaEditor
	rfidEd      *service.RfidEditor

	router http.Handler
}

// maxTestUpload — лимит размера фото в тестах.
const maxTestUpload = 1024

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	b := newMemBackend()
	hub := notify.NewHub(time.Minute, logger)
	events := service.NewBroadcaster()
	t.Cleanup(func() {
		hub.Close()
		events.Close()
	})

	regulaStore := service.NewCollection[model.RegulaRecord]("regula", service.SourceRegula, b.ListRegula, hub, events, logger)
	rfidStore := service.NewCollection[model.RfidRecord]("rfid", service.SourceRfid, b.ListRfid, hub, events, logger)
	photos := service.NewPhotoCache(b, 16, time.Minute, logger)

	regulaEd := service.NewRegulaEditor(context.Background(), b, regulaStore, photos, hub, events, logger)
	t.Cleanup(regulaEd.Close)
	rfidEd := service.NewRfidEditor(b, rfidStore, hub, events, logger)

	regulaBulk := service.NewBulkActions(regulaStore, service.BulkConfig{
		DeleteMany:      b.DeleteManyRegula,
		DeleteOne:       b.DeleteRegula,
		BulkDeletedKey:  service.MsgRegulaBulkDeleted,
		BulkFailedKey:   service.MsgRegulaBulkDelFailed,
		DeletedKey:      service.MsgRegulaDeleted,
		DeleteFailedKey: service.MsgRegulaDeleteFailed,
	}, hub, events, logger)
	rfidBulk := service.NewBulkActions(rfidStore, service.BulkConfig{
		DeleteMany:     b.DeleteManyRfid,
		BulkDeletedKey: service.MsgRfidBulkDeleted,
		BulkFailedKey:  service.MsgRfidBulkDelFailed,
	}, hub, events, logger)

	layout := Layout{Toasts: hub, TTL: time.Minute}
	regula := NewRegulaHandler(regulaStore, regulaEd, regulaBulk, photos, layout,
		RegulaConfig{DeviceURL: "http://backend/regula/{id}", MaxUploadBytes: maxTestUpload}, logger)
	rfid := NewRfidHandler(rfidStore, rfidEd, rfidBulk, layout, "http://backend/api/v1/fake_rfid/{rfid}/", logger)
	toasts := NewToastsHandler(hub, time.Minute, logger)
	sse := NewEventsHandler(events, hub, time.Hour, logger)

	r := chi.NewRouter()
	r.Route("/devices/regula", func(r chi.Router) { regula.Routes(r, nil) })
	r.Route("/devices/rfid", rfid.Routes)
	r.Get("/partials/toasts", toasts.HandleList)
	r.Delete("/partials/toasts/{id}", toasts.HandleDismiss)
	r.Get("/events", sse.HandleEvents)
	r.Post("/set-language", HandleSetLanguage)

	return &testEnv{
		backend:     b,
		hub:         hub,
		events:      events,
		regulaStore: regulaStore,
		rfidStore:   rfidStore,
		regulaEd:    regulaEd,
		rfidEd:      rfidEd,
		router:      r,
	}
}

// seedRegula добавляет записи в backend и загружает коллекцию.
func (e *testEnv) seedRegula(t *testing.T, recs ...model.RegulaRecord) {
	t.Helper()
	e.backend.mu.Lock()
	e.backend.regula = append(e.backend.regula, recs...)
	e.backend.mu.Unlock()
	if err := e.regulaStore.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// seedRfid добавляет устройства в backend и загружает коллекцию.
func (e *testEnv) seedRfid(t *testing.T, recs ...model.RfidRecord) {
	t.Helper()
	e.backend.mu.Lock()
	e.backend.rfid = append(e.backend.rfid, recs...)
	e.backend.mu.Unlock()
	if err := e.rfidStore.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// do выполняет запрос к router консоли.
func (e *testEnv) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// form выполняет POST с телом application/x-www-form-urlencoded.
func (e *testEnv) form(target string, values url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

// upload выполняет multipart-загрузку файла в поле file.
func (e *testEnv) upload(t *testing.T, target, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return e.do(http.MethodPost, target, &buf, mw.FormDataContentType())
}

// errorOf разбирает тело ответа ошибки.
func errorOf(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("ошибка декодирования тела ошибки: %v", err)
	}
	return body.Error.Code, body.Error.Message
}

// expectStatus проверяет код ответа.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("статус = %d, ожидается %d; тело: %s", rec.Code, want, rec.Body.String())
	}
}

func regulaIDs(items []model.RegulaRecord) []int64 {
	out := make([]int64, 0, len(items))
	for _, r := range items {
		out = append(out, r.ID)
	}
	return out
}
