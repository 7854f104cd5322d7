package views

import (
	"github.com/a-h/templ"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
)

// RfidTableData — данные таблицы RFID.
type RfidTableData struct {
	Snapshot service.Snapshot[model.RfidRecord]
	Items    []model.RfidRecord
	Editor   service.RfidState
	BulkBusy bool
}

// RfidPageData — данные страницы RFID.
type RfidPageData struct {
	Meta      PageMeta
	DeviceURL string
	Search    string
	Table     RfidTableData
	Dialog    service.RfidState
}

// rfidFlags — булевы поля устройства в порядке колонок.
var rfidFlags = []string{"clip_card", "empty_card_bin", "error_card_bin_full", "pre_empty_card_bin"}

func rfidFlagValues(d model.RfidDraft) map[string]bool {
	return map[string]bool{
		"clip_card":           d.ClipCard,
		"empty_card_bin":      d.EmptyCardBin,
		"error_card_bin_full": d.ErrorCardBinFull,
		"pre_empty_card_bin":  d.PreEmptyCardBin,
	}
}

// RfidPage — страница RFID-устройств.
func RfidPage(d RfidPageData) templ.Component {
	return Page(d.Meta, component(func(h *html) {
		h.open("section", "class", "toolbar")
		h.elem("h1", i18n.T(h.ctx, "rfid.title"))
		searchBox(h, "rfid-search", d.Search)
		button(h, "POST", "/devices/rfid/refresh", "common.refresh", "", d.Table.Snapshot.Loading, "")
		button(h, "POST", "/devices/rfid/dialog/open", "rfid.add", "btn-primary", false, "")
		h.close("section")
		usageHint(h, d.DeviceURL)

		h.open("div", "data-fragment", string(service.SourceRfid),
			"data-src", "/devices/rfid/table", "data-search-input", "rfid-search")
		h.render(RfidTable(d.Table))
		h.close("div")

		h.open("div", "data-fragment", string(service.SourceRfidDialog), "data-src", "/devices/rfid/dialog")
		h.render(RfidDialog(d.Dialog))
		h.close("div")
	}))
}

// RfidTable — фрагмент таблицы RFID с построчным редактированием.
func RfidTable(d RfidTableData) templ.Component {
	return component(func(h *html) {
		snap := d.Snapshot
		if !loadState(h, snap.Loading, snap.Failed(), "/devices/rfid/refresh") {
			return
		}
		if snap.AnySelected() {
			bulkBar(h, len(snap.Selected), "/devices/rfid/bulk-delete", d.BulkBusy)
		}
		if len(d.Items) == 0 {
			h.elem("p", i18n.T(h.ctx, "table.empty"), "class", "empty")
			return
		}

		h.open("table", "class", "grid")
		h.raw("<thead><tr><th>")
		selectURL := "/devices/rfid/select/all"
		if snap.AllSelected() {
			selectURL = "/devices/rfid/select/none"
		}
		checkbox(h, selectURL, snap.AllSelected(), d.BulkBusy)
		h.raw("</th>")
		h.elem("th", i18n.T(h.ctx, "col.id"))
		h.elem("th", i18n.T(h.ctx, "field.name"))
		h.elem("th", i18n.T(h.ctx, "field.rfid"))
		for _, f := range rfidFlags {
			h.elem("th", i18n.T(h.ctx, "field."+f))
		}
		h.elem("th", i18n.T(h.ctx, "col.updated_at"))
		h.elem("th", i18n.T(h.ctx, "col.actions"))
		h.raw("</tr></thead><tbody>")

		for _, r := range d.Items {
			if d.Editor.EditingID == r.ID {
				rfidEditRow(h, r, d.Editor, snap.IsSelected(r.ID), d.BulkBusy)
				continue
			}
			id := itoa(r.ID)
			h.open("tr", "data-id", id)
			h.raw("<td>")
			checkbox(h, "/devices/rfid/select/"+id, snap.IsSelected(r.ID), d.BulkBusy)
			h.raw("</td>")
			h.elem("td", id)
			h.elem("td", r.Name)
			h.elem("td", r.Rfid)
			flags := rfidFlagValues(model.DraftFromRfid(r))
			for _, f := range rfidFlags {
				h.raw("<td>")
				yesNo(h, flags[f])
				h.raw("</td>")
			}
			h.elem("td", timestamp(r.UpdatedAt), "class", "updated")
			h.open("td", "class", "actions")
			button(h, "POST", "/devices/rfid/"+id+"/edit", "common.edit", "btn-small", false, "")
			h.close("td")
			h.close("tr")
		}
		h.raw("</tbody>")
		h.close("table")
	})
}

// rfidEditRow — строка в режиме редактирования.
func rfidEditRow(h *html, r model.RfidRecord, st service.RfidState, selected, bulkBusy bool) {
	id := itoa(r.ID)
	fieldURL := "/devices/rfid/" + id + "/field"

	h.open("tr", "class", "editing", "data-id", id, "data-field-url", fieldURL)
	h.raw("<td>")
	checkbox(h, "/devices/rfid/select/"+id, selected, bulkBusy)
	h.raw("</td>")
	h.elem("td", id)
	for _, f := range []struct{ name, value string }{{"name", st.EditDraft.Name}, {"rfid", st.EditDraft.Rfid}} {
		h.raw("<td><input")
		h.attr("type", "text")
		h.attr("id", "rfid-"+id+"-"+f.name)
		h.attr("name", f.name)
		h.attr("value", f.value)
		h.flag("disabled", st.Saving)
		h.raw("></td>")
	}
	flags := rfidFlagValues(st.EditDraft)
	for _, f := range rfidFlags {
		h.raw("<td><input")
		h.attr("type", "checkbox")
		h.attr("name", f)
		h.flag("checked", flags[f])
		h.flag("disabled", st.Saving)
		h.raw("></td>")
	}
	h.elem("td", timestamp(r.UpdatedAt), "class", "updated")
	h.open("td", "class", "actions")
	h.raw("<button")
	h.attr("type", "button")
	h.attr("class", "btn btn-small btn-primary")
	h.attr("data-method", "POST")
	h.attr("data-url", "/devices/rfid/"+id+"/save")
	h.attr("data-include-fields", "")
	h.flag("disabled", st.Saving)
	h.raw(">")
	h.t("common.save")
	h.close("button")
	button(h, "POST", "/devices/rfid/"+id+"/cancel", "common.cancel", "btn-small", st.Saving, "")
	if st.EditErr != "" {
		h.elem("div", st.EditErr, "class", "form-error", "role", "alert")
	}
	h.close("td")
	h.close("tr")
}

// RfidDialog — фрагмент диалога создания RFID-устройства.
func RfidDialog(st service.RfidState) templ.Component {
	return component(func(h *html) {
		if !st.DialogOpen {
			return
		}
		h.open("div", "class", "modal-backdrop")
		h.open("div", "class", "modal", "role", "dialog")
		h.elem("h2", i18n.T(h.ctx, "rfid.dialog.title"))
		h.elem("div", "", "class", "inline-error")

		h.open("form", "class", "form", "data-field-url", "/devices/rfid/dialog/field",
			"data-submit-url", "/devices/rfid/dialog/submit")
		for _, f := range []struct{ name, value string }{{"name", st.NewDraft.Name}, {"rfid", st.NewDraft.Rfid}} {
			h.open("label", "class", "field")
			h.elem("span", i18n.T(h.ctx, "field."+f.name))
			h.raw("<input")
			h.attr("type", "text")
			h.attr("id", "rfid-new-"+f.name)
			h.attr("name", f.name)
			h.attr("value", f.value)
			h.flag("required", true)
			h.flag("disabled", st.Creating)
			h.raw(">")
			h.close("label")
		}
		flags := rfidFlagValues(st.NewDraft)
		for _, f := range rfidFlags {
			h.open("label", "class", "field field-check")
			h.raw("<input")
			h.attr("type", "checkbox")
			h.attr("id", "rfid-new-"+f)
			h.attr("name", f)
			h.flag("checked", flags[f])
			h.flag("disabled", st.Creating)
			h.raw(">")
			h.elem("span", i18n.T(h.ctx, "field."+f))
			h.close("label")
		}

		h.open("div", "class", "form-actions")
		button(h, "POST", "/devices/rfid/dialog/close", "common.cancel", "", false, "")
		h.raw("<button")
		h.attr("type", "submit")
		h.attr("class", "btn btn-primary")
		h.flag("disabled", st.Creating)
		h.raw(">")
		if st.Creating {
			h.t("common.saving")
		} else {
			h.t("common.create")
		}
		h.close("button")
		h.close("div")
		h.close("form")
		h.close("div")
		h.close("div")
	})
}
