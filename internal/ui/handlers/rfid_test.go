package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

func TestRfidPage_Renders(t *testing.T) {
	env := newTestEnv(t)
	env.backend.rfid = []model.RfidRecord{{ID: 1, Name: "Турникет", Rfid: "A1B2", ClipCard: true}}

	rec := env.do(http.MethodGet, "/devices/rfid", nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"Турникет", "A1B2", `data-fragment="rfid"`, `data-fragment="rfid-dialog"`} {
		if !strings.Contains(body, want) {
			t.Errorf("страница не содержит %q", want)
		}
	}
}

func TestRfid_CreateFlow(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/dialog/open", nil, ""), http.StatusNoContent)
	dialog := env.do(http.MethodGet, "/devices/rfid/dialog", nil, "").Body.String()
	if !strings.Contains(dialog, `data-submit-url="/devices/rfid/dialog/submit"`) {
		t.Fatal("диалог не отрисован")
	}

	expectStatus(t, env.form("/devices/rfid/dialog/field", url.Values{"name": {"name"}, "value": {"Шлагбаум"}}),
		http.StatusNoContent)

	rec := env.form("/devices/rfid/dialog/submit", url.Values{
		"name":           {"Шлагбаум"},
		"rfid":           {"FF01"},
		"clip_card":      {"on"},
		"empty_card_bin": {""},
	})
	expectStatus(t, rec, http.StatusNoContent)

	items := env.rfidStore.Snapshot().Items
	if len(items) != 1 || items[0].Name != "Шлагбаум" || items[0].Rfid != "FF01" || !items[0].ClipCard || items[0].EmptyCardBin {
		t.Fatalf("Items = %+v", items)
	}
	if env.rfidEd.Snapshot().DialogOpen {
		t.Error("после создания диалог должен закрыться")
	}
}

func TestRfid_CreateFailureKeepsDialog(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/rfid/dialog/open", nil, "")
	env.backend.fail(&deviceclient.Error{Kind: deviceclient.KindTransport, Op: "CreateRfid"})

	rec := env.form("/devices/rfid/dialog/submit", url.Values{"name": {"Ворота"}})
	expectStatus(t, rec, http.StatusBadGateway)

	st := env.rfidEd.Snapshot()
	if !st.DialogOpen || st.NewDraft.Name != "Ворота" {
		t.Errorf("диалог должен остаться открытым с черновиком: %+v", st)
	}
}

func TestRfid_DialogClose(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/devices/rfid/dialog/open", nil, "")

	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/dialog/close", nil, ""), http.StatusNoContent)
	if env.rfidEd.Snapshot().DialogOpen {
		t.Error("диалог должен закрыться")
	}
	expectStatus(t, env.form("/devices/rfid/dialog/field", url.Values{"name": {"rfid"}, "value": {"1"}}),
		http.StatusConflict)
}

func TestRfid_EditRow(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 2, Name: "Старое", Rfid: "0001"}, model.RfidRecord{ID: 1, Name: "Другое"})

	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/2/edit", nil, ""), http.StatusNoContent)

	table := env.do(http.MethodGet, "/devices/rfid/table", nil, "").Body.String()
	if !strings.Contains(table, `data-field-url="/devices/rfid/2/field"`) {
		t.Fatal("строка не в режиме редактирования")
	}

	expectStatus(t, env.form("/devices/rfid/2/field", url.Values{"name": {"error_card_bin_full"}, "value": {"on"}}),
		http.StatusNoContent)

	rec := env.form("/devices/rfid/2/save", url.Values{"name": {"Новое"}, "rfid": {"0001"}})
	expectStatus(t, rec, http.StatusNoContent)

	items := env.rfidStore.Snapshot().Items
	if items[0].ID != 2 || items[0].Name != "Новое" || !items[0].ErrorCardBinFull {
		t.Fatalf("Items[0] = %+v", items[0])
	}
	if env.rfidEd.Snapshot().EditingID != 0 {
		t.Error("после сохранения редактирование должно завершиться")
	}
}

func TestRfid_SaveFailureShowsDetail(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 3, Name: "Касса"})
	env.do(http.MethodPost, "/devices/rfid/3/edit", nil, "")
	env.backend.fail(&deviceclient.Error{
		Kind: deviceclient.KindConflict, Op: "UpdateRfid", StatusCode: 409, Detail: "RFID already registered",
	})

	expectStatus(t, env.form("/devices/rfid/3/save", url.Values{"rfid": {"DUP"}}), http.StatusBadGateway)

	table := env.do(http.MethodGet, "/devices/rfid/table", nil, "").Body.String()
	if !strings.Contains(table, "RFID already registered") {
		t.Error("текст ошибки не показан в строке")
	}
	if st := env.rfidEd.Snapshot(); st.EditingID != 3 || st.EditDraft.Rfid != "DUP" {
		t.Errorf("строка должна остаться в режиме редактирования: %+v", st)
	}
}

func TestRfid_SaveWithoutEditing(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 1})

	expectStatus(t, env.form("/devices/rfid/1/save", url.Values{}), http.StatusConflict)
	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/9/edit", nil, ""), http.StatusNotFound)
}

func TestRfid_CancelEditing(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 1})
	env.do(http.MethodPost, "/devices/rfid/1/edit", nil, "")

	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/1/cancel", nil, ""), http.StatusNoContent)
	if env.rfidEd.Snapshot().EditingID != 0 {
		t.Error("редактирование не отменено")
	}
}

func TestRfid_BulkDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 3}, model.RfidRecord{ID: 2}, model.RfidRecord{ID: 1})

	env.do(http.MethodPost, "/devices/rfid/select/all", nil, "")
	env.do(http.MethodPost, "/devices/rfid/select/2", nil, "")
	expectStatus(t, env.do(http.MethodPost, "/devices/rfid/bulk-delete", nil, ""), http.StatusNoContent)

	items := env.rfidStore.Snapshot().Items
	if len(items) != 1 || items[0].ID != 2 {
		t.Errorf("Items = %+v, ожидается только id 2", items)
	}
}

func TestRfidTable_Search(t *testing.T) {
	env := newTestEnv(t)
	env.seedRfid(t, model.RfidRecord{ID: 1, Name: "Вход", Rfid: "AA"}, model.RfidRecord{ID: 2, Name: "Выход", Rfid: "BB"})

	body := env.do(http.MethodGet, "/devices/rfid/table?q=bb", nil, "").Body.String()
	if !strings.Contains(body, "Выход") || strings.Contains(body, "Вход<") {
		t.Errorf("фильтр не применён: %s", body)
	}
}
