package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
)

// RegulaTableData — данные таблицы Regula.
type RegulaTableData struct {
	Snapshot service.Snapshot[model.RegulaRecord]
	// Items — записи после фильтра поиска.
	Items    []model.RegulaRecord
	BulkBusy bool
	// Deleting — записи, для которых выполняется одиночное удаление.
	Deleting map[int64]bool
}

// RegulaPageData — данные страницы Regula.
type RegulaPageData struct {
	Meta PageMeta
	// DeviceURL — шаблон адреса устройства на backend.
	DeviceURL string
	Search    string
	Table     RegulaTableData
	Modal     service.RegulaModal
}

// RegulaPage — страница устройств Regula.
func RegulaPage(d RegulaPageData) templ.Component {
	return Page(d.Meta, component(func(h *html) {
		h.open("section", "class", "toolbar")
		h.elem("h1", i18n.T(h.ctx, "regula.title"))
		searchBox(h, "regula-search", d.Search)
		button(h, "POST", "/devices/regula/refresh", "common.refresh", "", d.Table.Snapshot.Loading, "")
		button(h, "POST", "/devices/regula/new", "regula.add", "btn-primary", false, "")
		h.close("section")
		usageHint(h, d.DeviceURL)

		h.open("div", "data-fragment", string(service.SourceRegula),
			"data-src", "/devices/regula/table", "data-search-input", "regula-search")
		h.render(RegulaTable(d.Table))
		h.close("div")

		h.open("div", "data-fragment", string(service.SourceRegulaModal), "data-src", "/devices/regula/modal")
		h.render(RegulaModal(d.Modal))
		h.close("div")
	}))
}

// RegulaTable — фрагмент таблицы Regula.
func RegulaTable(d RegulaTableData) templ.Component {
	return component(func(h *html) {
		snap := d.Snapshot
		if !loadState(h, snap.Loading, snap.Failed(), "/devices/regula/refresh") {
			return
		}
		if snap.AnySelected() {
			bulkBar(h, len(snap.Selected), "/devices/regula/bulk-delete", d.BulkBusy)
		}
		if len(d.Items) == 0 {
			h.elem("p", i18n.T(h.ctx, "table.empty"), "class", "empty")
			return
		}

		h.open("table", "class", "grid")
		h.raw("<thead><tr><th>")
		selectURL := "/devices/regula/select/all"
		if snap.AllSelected() {
			selectURL = "/devices/regula/select/none"
		}
		checkbox(h, selectURL, snap.AllSelected(), d.BulkBusy)
		h.raw("</th>")
		for _, key := range []string{"col.id", "field.name", "col.full_name", "col.passport",
			"field.birth_date", "field.gender", "col.photo", "field.delayed_response", "col.actions"} {
			h.elem("th", i18n.T(h.ctx, key))
		}
		h.raw("</tr></thead><tbody>")

		for _, r := range d.Items {
			id := itoa(r.ID)
			rowClass := ""
			if snap.IsSelected(r.ID) {
				rowClass = "selected"
			}
			h.open("tr", "class", rowClass, "data-id", id)
			h.raw("<td>")
			checkbox(h, "/devices/regula/select/"+id, snap.IsSelected(r.ID), d.BulkBusy)
			h.raw("</td>")
			h.elem("td", id)
			h.elem("td", r.Name)
			h.elem("td", r.FullName())
			h.elem("td", r.Passport())
			h.elem("td", model.CalendarDate(r.BirthDate))
			h.elem("td", i18n.T(h.ctx, "gender."+string(r.Gender)))
			h.raw("<td>")
			yesNo(h, r.PhotoID != nil)
			h.raw("</td>")
			h.elem("td", delayText(r.DelayedResponse))
			h.open("td", "class", "actions")
			button(h, "POST", "/devices/regula/"+id+"/edit", "common.edit", "btn-small", false, "")
			button(h, "DELETE", "/devices/regula/"+id, "common.delete", "btn-small btn-danger",
				d.Deleting[r.ID], "regula.confirm_delete")
			h.close("td")
			h.close("tr")
		}
		h.raw("</tbody>")
		h.close("table")
	})
}

// regulaTextFields — текстовые поля формы в порядке отображения.
var regulaTextFields = []struct {
	name  string
	input string
}{
	{"name", "text"},
	{"last_name", "text"},
	{"first_name", "text"},
	{"middle_name", "text"},
	{"birth_date", "date"},
	{"issue_date", "date"},
	{"series", "text"},
	{"number", "text"},
	{"department_code", "text"},
	{"issued_by", "text"},
	{"birth_place", "text"},
}

// RegulaModal — фрагмент модальной формы записи Regula.
// Закрытая сессия даёт пустой фрагмент.
func RegulaModal(m service.RegulaModal) templ.Component {
	return component(func(h *html) {
		if !m.Open {
			return
		}
		titleKey := "regula.modal.create"
		if m.Mode == service.ModeEdit {
			titleKey = "regula.modal.edit"
		}

		h.open("div", "class", "modal-backdrop")
		h.open("div", "class", "modal", "role", "dialog", "data-session", strconv.FormatUint(m.SessionID, 10))
		h.open("h2")
		h.t(titleKey)
		if m.Mode == service.ModeEdit {
			h.text(" #" + itoa(m.TargetID))
		}
		h.close("h2")

		if m.ErrKey != "" {
			msg := m.ErrDetail
			if msg == "" {
				msg = i18n.T(h.ctx, m.ErrKey)
			}
			h.elem("div", msg, "class", "form-error", "role", "alert")
		}
		h.elem("div", "", "class", "inline-error")

		h.open("form", "class", "form", "data-field-url", "/devices/regula/modal/field",
			"data-submit-url", "/devices/regula/modal/submit")
		d := m.Draft
		values := map[string]string{
			"name": d.Name, "last_name": d.LastName, "first_name": d.FirstName,
			"middle_name": d.MiddleName, "birth_date": d.BirthDate, "issue_date": d.IssueDate,
			"series": d.Series, "number": d.Number, "department_code": d.DepartmentCode,
			"issued_by": d.IssuedBy, "birth_place": d.BirthPlace,
		}
		for _, f := range regulaTextFields {
			h.open("label", "class", "field")
			h.elem("span", i18n.T(h.ctx, "field."+f.name))
			h.raw("<input")
			h.attr("type", f.input)
			h.attr("id", "regula-"+f.name)
			h.attr("name", f.name)
			h.attr("value", values[f.name])
			h.flag("required", f.name != "middle_name")
			h.flag("disabled", m.Submitting)
			h.raw(">")
			h.close("label")
		}

		h.open("label", "class", "field")
		h.elem("span", i18n.T(h.ctx, "field.gender"))
		h.raw("<select")
		h.attr("id", "regula-gender")
		h.attr("name", "gender")
		h.flag("disabled", m.Submitting)
		h.raw(">")
		for _, g := range []model.Gender{model.GenderMale, model.GenderFemale} {
			h.raw("<option")
			h.attr("value", string(g))
			h.flag("selected", d.Gender == g)
			h.raw(">")
			h.t("gender." + string(g))
			h.close("option")
		}
		h.raw("</select>")
		h.close("label")

		h.open("label", "class", "field")
		h.elem("span", i18n.T(h.ctx, "field.delayed_response"))
		h.raw("<input")
		h.attr("type", "number")
		h.attr("min", "0")
		h.attr("id", "regula-delayed_response")
		h.attr("name", "delayed_response")
		h.attr("value", delayText(d.DelayedResponse))
		h.flag("disabled", m.Submitting)
		h.raw(">")
		h.close("label")

		photoGrid(h, m)

		h.open("div", "class", "form-actions")
		button(h, "POST", "/devices/regula/modal/cancel", "common.cancel", "", false, "")
		h.raw("<button")
		h.attr("type", "submit")
		h.attr("class", "btn btn-primary")
		h.flag("disabled", m.Submitting || m.Uploading)
		h.raw(">")
		if m.Submitting {
			h.t("common.saving")
		} else {
			h.t("common.save")
		}
		h.close("button")
		h.close("div")

		h.close("form")
		h.close("div")
		h.close("div")
	})
}

// photoGrid — выбор, загрузка и удаление фото в открытой форме.
func photoGrid(h *html, m service.RegulaModal) {
	selected := m.SelectedPhotoID()

	h.open("fieldset", "class", "photos")
	h.elem("legend", i18n.T(h.ctx, "photo.title"))

	h.open("div", "class", "photo-actions")
	h.raw("<input")
	h.attr("type", "file")
	h.attr("accept", "image/*")
	h.attr("data-upload-url", "/devices/regula/modal/photos")
	h.flag("disabled", m.Uploading)
	h.raw(">")
	if m.Uploading {
		h.elem("span", i18n.T(h.ctx, "photo.uploading"), "class", "loading")
	}
	button(h, "POST", "/devices/regula/modal/photos/clear", "photo.none", "btn-small", selected == 0, "")
	h.close("div")

	switch {
	case m.PhotosLoading:
		h.elem("div", i18n.T(h.ctx, "common.loading"), "class", "loading")
	case len(m.Photos) == 0:
		h.elem("p", i18n.T(h.ctx, "photo.empty"), "class", "empty")
	default:
		h.open("div", "class", "photo-grid")
		for _, p := range m.Photos {
			id := itoa(p.ID)
			class := "photo"
			if p.ID == selected {
				class += " selected"
			}
			h.open("div", "class", class, "data-photo-id", id)
			h.raw("<img")
			h.attr("src", p.Source("/devices/regula/photos/"+id+"/image"))
			h.attr("alt", p.FileName)
			h.attr("loading", "lazy")
			h.raw(">")
			h.elem("span", p.FileName, "class", "photo-name")
			button(h, "POST", "/devices/regula/modal/photos/"+id+"/select", "photo.select", "btn-small",
				p.ID == selected, "")
			button(h, "DELETE", "/devices/regula/modal/photos/"+id, "common.delete", "btn-small btn-danger",
				m.DeletingPhotos[p.ID], "photo.confirm_delete")
			h.close("div")
		}
		h.close("div")
	}
	h.close("fieldset")
}

func delayText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
