package handlers

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
)

func TestRegulaPage_RendersRecords(t *testing.T) {
	env := newTestEnv(t)
	env.backend.regula = []model.RegulaRecord{
		{ID: 1, LastName: "Иванов", Series: "4510", Number: "123456", Gender: model.GenderMale},
		{ID: 3, LastName: "Петрова", Gender: model.GenderFemale},
	}

	rec := env.do(http.MethodGet, "/devices/regula", nil, "")
	expectStatus(t, rec, http.StatusOK)

	body := rec.Body.String()
	for _, want := range []string{"Иванов", "Петрова", "4510 123456", `data-fragment="regula"`, "http://backend/regula/{id}"} {
		if !strings.Contains(body, want) {
			t.Errorf("страница не содержит %q", want)
		}
	}
	if strings.Index(body, "Петрова") > strings.Index(body, "Иванов") {
		t.Error("записи должны идти по убыванию id")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRegulaTable_Search(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t,
		model.RegulaRecord{ID: 1, LastName: "Иванов"},
		model.RegulaRecord{ID: 2, LastName: "Сидоров"},
	)

	rec := env.do(http.MethodGet, "/devices/regula/table?q="+url.QueryEscape("сидор"), nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, "Сидоров") || strings.Contains(body, "Иванов") {
		t.Errorf("фильтр не применён: %s", body)
	}
}

func TestRegula_CreateFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 1, LastName: "Иванов"})

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/new", nil, ""), http.StatusNoContent)
	env.regulaEd.Wait()

	modal := env.do(http.MethodGet, "/devices/regula/modal", nil, "")
	expectStatus(t, modal, http.StatusOK)
	if !strings.Contains(modal.Body.String(), `data-submit-url="/devices/regula/modal/submit"`) {
		t.Fatal("форма создания не отрисована")
	}

	expectStatus(t, env.form("/devices/regula/modal/field", url.Values{"name": {"series"}, "value": {"4510"}}),
		http.StatusNoContent)

	// Последнее изменение приходит только в теле отправки формы.
	rec := env.form("/devices/regula/modal/submit", url.Values{
		"last_name": {"Смирнов"},
		"series":    {"4510"},
		"gender":    {"female"},
	})
	expectStatus(t, rec, http.StatusNoContent)

	snap := env.regulaStore.Snapshot()
	if len(snap.Items) != 2 || snap.Items[0].LastName != "Смирнов" || snap.Items[0].Series != "4510" {
		t.Fatalf("Items = %+v", snap.Items)
	}
	if snap.Items[0].Gender != model.GenderFemale {
		t.Errorf("Gender = %q", snap.Items[0].Gender)
	}
	if env.regulaEd.Snapshot().Open {
		t.Error("после сохранения форма должна закрыться")
	}
	if strings.TrimSpace(env.do(http.MethodGet, "/devices/regula/modal", nil, "").Body.String()) != "" {
		t.Error("фрагмент закрытой формы должен быть пустым")
	}
}

func TestRegula_EditFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 7, LastName: "Иванов", Gender: model.GenderMale})

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/7/edit", nil, ""), http.StatusNoContent)
	env.regulaEd.Wait()
	if m := env.regulaEd.Snapshot(); m.Mode != service.ModeEdit || m.TargetID != 7 {
		t.Fatalf("modal = %+v", m)
	}

	expectStatus(t, env.form("/devices/regula/modal/submit", url.Values{"last_name": {"Петров"}}), http.StatusNoContent)
	if got := env.regulaStore.Snapshot().Items[0].LastName; got != "Петров" {
		t.Errorf("LastName = %q", got)
	}
}

func TestRegula_EditUnknown(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 1})

	rec := env.do(http.MethodPost, "/devices/regula/42/edit", nil, "")
	expectStatus(t, rec, http.StatusNotFound)
	if env.regulaEd.Snapshot().Open {
		t.Error("форма не должна открываться для неизвестной записи")
	}

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/abc/edit", nil, ""), http.StatusNotFound)
}

func TestRegula_SubmitUnknownField(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	rec := env.form("/devices/regula/modal/submit", url.Values{"shoe_size": {"42"}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	code, msg := errorOf(t, rec)
	if code != "VALIDATION_ERROR" || msg != "error.unknown_field" {
		t.Errorf("code = %q, message = %q", code, msg)
	}
	if !env.regulaEd.Snapshot().Open {
		t.Error("форма должна остаться открытой")
	}
}

func TestRegula_SubmitClosedSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.form("/devices/regula/modal/submit", url.Values{})
	expectStatus(t, rec, http.StatusConflict)
	if _, msg := errorOf(t, rec); msg != "error.session_closed" {
		t.Errorf("message = %q", msg)
	}
}

func TestRegula_SubmitConflictKeepsForm(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()
	env.backend.fail(&deviceclient.Error{
		Kind: deviceclient.KindConflict, Op: "CreateRegula", StatusCode: 409,
		Detail: "Passport with this series and number already exists",
	})

	rec := env.form("/devices/regula/modal/submit", url.Values{"last_name": {"Смирнов"}})
	expectStatus(t, rec, http.StatusBadGateway)

	m := env.regulaEd.Snapshot()
	if !m.Open || m.Draft.LastName != "Смирнов" {
		t.Fatalf("форма должна остаться открытой с черновиком: %+v", m)
	}
	modal := env.do(http.MethodGet, "/devices/regula/modal", nil, "").Body.String()
	if !strings.Contains(modal, "Passport with this series and number already exists") {
		t.Error("текст конфликта не показан в форме")
	}
}

func TestRegula_CancelClosesForm(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/modal/cancel", nil, ""), http.StatusNoContent)
	if env.regulaEd.Snapshot().Open {
		t.Error("форма должна закрыться")
	}
}

func TestRegula_SelectAndBulkDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t,
		model.RegulaRecord{ID: 5}, model.RegulaRecord{ID: 3}, model.RegulaRecord{ID: 1},
	)

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/select/3", nil, ""), http.StatusNoContent)
	expectStatus(t, env.do(http.MethodPost, "/devices/regula/select/1", nil, ""), http.StatusNoContent)

	table := env.do(http.MethodGet, "/devices/regula/table", nil, "").Body.String()
	if !strings.Contains(table, `data-url="/devices/regula/bulk-delete"`) {
		t.Error("панель пакетных действий не показана при выборе")
	}

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/bulk-delete", nil, ""), http.StatusNoContent)

	snap := env.regulaStore.Snapshot()
	if got := regulaIDs(snap.Items); len(got) != 1 || got[0] != 5 {
		t.Errorf("Items = %v, ожидается [5]", got)
	}
	if snap.AnySelected() {
		t.Error("выбор должен очиститься")
	}
	if n := env.hub.Active(); len(n) == 0 || n[len(n)-1].Key != service.MsgRegulaBulkDeleted {
		t.Errorf("уведомления = %+v", n)
	}
}

func TestRegula_SelectAllNone(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 2}, model.RegulaRecord{ID: 1})

	env.do(http.MethodPost, "/devices/regula/select/all", nil, "")
	if !env.regulaStore.AllSelected() {
		t.Error("select/all не выбрал все записи")
	}
	env.do(http.MethodPost, "/devices/regula/select/none", nil, "")
	if env.regulaStore.AnySelected() {
		t.Error("select/none не снял выбор")
	}
	expectStatus(t, env.do(http.MethodPost, "/devices/regula/select/99", nil, ""), http.StatusNotFound)
}

func TestRegula_BulkDeleteNothingSelected(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 1})

	rec := env.do(http.MethodPost, "/devices/regula/bulk-delete", nil, "")
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if _, msg := errorOf(t, rec); msg != "error.nothing_selected" {
		t.Errorf("message = %q", msg)
	}
}

func TestRegula_DeleteOne(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 2}, model.RegulaRecord{ID: 1})

	expectStatus(t, env.do(http.MethodDelete, "/devices/regula/2", nil, ""), http.StatusNoContent)
	if got := regulaIDs(env.regulaStore.Snapshot().Items); len(got) != 1 || got[0] != 1 {
		t.Errorf("Items = %v", got)
	}
}

func TestRegula_DeleteBackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 1})
	env.backend.fail(&deviceclient.Error{Kind: deviceclient.KindServer, Op: "DeleteManyRegula", StatusCode: 500})

	rec := env.do(http.MethodDelete, "/devices/regula/1", nil, "")
	expectStatus(t, rec, http.StatusBadGateway)
	if code, _ := errorOf(t, rec); code != "BACKEND_ERROR" {
		t.Errorf("code = %q", code)
	}
	if len(env.regulaStore.Snapshot().Items) != 1 {
		t.Error("запись не должна исчезнуть при ошибке")
	}
	n := env.hub.Active()
	if len(n) == 0 || n[len(n)-1].Severity != notify.SeverityError {
		t.Errorf("уведомления = %+v", n)
	}
}

func TestRegula_UploadSelectsPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	rec := env.upload(t, "/devices/regula/modal/photos", "face.png", pngBytes)
	expectStatus(t, rec, http.StatusNoContent)

	m := env.regulaEd.Snapshot()
	if len(m.Photos) != 1 || m.SelectedPhotoID() != m.Photos[0].ID {
		t.Fatalf("фото должно быть загружено и выбрано: %+v", m)
	}
	if !strings.HasSuffix(m.Photos[0].FileName, ".png") || m.Photos[0].ContentType != "image/png" {
		t.Errorf("photo = %+v", m.Photos[0])
	}
}

func TestRegula_UploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	rec := env.upload(t, "/devices/regula/modal/photos", "notes.txt", []byte("просто текст"))
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if _, msg := errorOf(t, rec); msg != "error.not_image" {
		t.Errorf("message = %q", msg)
	}
	if len(env.backend.photos) != 0 {
		t.Error("файл не должен отправляться на backend")
	}
}

func TestRegula_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, maxTestUpload)...)
	rec := env.upload(t, "/devices/regula/modal/photos", "big.png", big)
	expectStatus(t, rec, http.StatusRequestEntityTooLarge)
	if code, msg := errorOf(t, rec); code != "PAYLOAD_TOO_LARGE" || msg != "error.too_large" {
		t.Errorf("code = %q, message = %q", code, msg)
	}
}

func TestRegula_UploadMissingFile(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	rec := env.form("/devices/regula/modal/photos", url.Values{"other": {"1"}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestRegula_PhotoSelectClearDelete(t *testing.T) {
	env := newTestEnv(t)
	env.backend.photos = []model.Photo{{ID: 11, FileName: "a.png"}, {ID: 12, FileName: "b.png"}}
	env.do(http.MethodPost, "/devices/regula/new", nil, "")
	env.regulaEd.Wait()

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/modal/photos/12/select", nil, ""), http.StatusNoContent)
	if got := env.regulaEd.Snapshot().SelectedPhotoID(); got != 12 {
		t.Fatalf("выбрано фото %d, ожидается 12", got)
	}

	rec := env.do(http.MethodPost, "/devices/regula/modal/photos/99/select", nil, "")
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/modal/photos/clear", nil, ""), http.StatusNoContent)
	if got := env.regulaEd.Snapshot().SelectedPhotoID(); got != 0 {
		t.Errorf("после clear выбрано фото %d", got)
	}

	env.do(http.MethodPost, "/devices/regula/modal/photos/11/select", nil, "")
	expectStatus(t, env.do(http.MethodDelete, "/devices/regula/modal/photos/11", nil, ""), http.StatusNoContent)
	m := env.regulaEd.Snapshot()
	if m.SelectedPhotoID() != 0 || len(m.Photos) != 1 || m.Photos[0].ID != 12 {
		t.Errorf("после удаления выбранного фото: %+v", m)
	}
}

func TestRegula_PhotoImage(t *testing.T) {
	env := newTestEnv(t)
	env.backend.images[5] = &model.PhotoImage{ContentType: "image/png", Data: pngBytes}

	rec := env.do(http.MethodGet, "/devices/regula/photos/5/image", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Error("тело не совпадает с байтами фото")
	}

	expectStatus(t, env.do(http.MethodGet, "/devices/regula/photos/6/image", nil, ""), http.StatusNotFound)
}

func TestRegula_Refresh(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegula(t, model.RegulaRecord{ID: 1})

	expectStatus(t, env.do(http.MethodPost, "/devices/regula/refresh", nil, ""), http.StatusNoContent)
}
