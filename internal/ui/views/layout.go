package views

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
)

// Вкладки консоли.
const (
	TabRegula = "regula"
	TabRfid   = "rfid"
)

// PageMeta — общие параметры страницы.
type PageMeta struct {
	// Tab — активная вкладка.
	Tab string
	// Toasts — активные уведомления на момент отрисовки.
	Toasts []notify.Notification
	// ToastTTL — время показа уведомления.
	ToastTTL time.Duration
}

// Page — каркас страницы: вкладки, переключатель языка, область уведомлений.
func Page(meta PageMeta, body templ.Component) templ.Component {
	return component(func(h *html) {
		lang := i18n.LangFromContext(h.ctx)

		h.raw("<!DOCTYPE html>")
		h.open("html", "lang", lang)
		h.raw("<head>")
		h.raw(`<meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.elem("title", i18n.T(h.ctx, "app.title"))
		h.raw(`<link rel="stylesheet" href="/static/css/app.css">`)
		h.raw(`<script src="/static/js/app.js" defer></script>`)
		h.raw("</head>")

		h.raw("<body>")
		h.open("header", "class", "topbar")
		h.elem("span", i18n.T(h.ctx, "app.title"), "class", "brand")
		h.open("nav", "class", "tabs")
		tab(h, "/devices/regula", "nav.regula", meta.Tab == TabRegula)
		tab(h, "/devices/rfid", "nav.rfid", meta.Tab == TabRfid)
		h.close("nav")
		languageSwitch(h, lang)
		h.close("header")

		h.open("main", "class", "content")
		h.render(body)
		h.close("main")

		h.open("div", "id", "toasts", "class", "toasts", "data-fragment", "toasts", "data-src", "/partials/toasts")
		h.render(Toasts(meta.Toasts, meta.ToastTTL))
		h.close("div")
		h.raw("</body></html>")
	})
}

func tab(h *html, href, key string, active bool) {
	class := "tab"
	if active {
		class += " active"
	}
	h.open("a", "href", href, "class", class)
	h.t(key)
	h.close("a")
}

func languageSwitch(h *html, current string) {
	h.open("form", "method", "post", "action", "/set-language", "class", "lang-switch")
	h.open("select", "name", "lang", "onchange", "this.form.submit()")
	for _, l := range []struct{ code, label string }{{"en", "English"}, {"ru", "Русский"}} {
		h.raw("<option")
		h.attr("value", l.code)
		h.flag("selected", l.code == current)
		h.raw(">")
		h.text(l.label)
		h.close("option")
	}
	h.close("select")
	h.raw("<noscript>")
	h.open("button", "type", "submit")
	h.t("common.apply")
	h.close("button")
	h.raw("</noscript>")
	h.close("form")
}

// Toasts — содержимое области уведомлений. data-expires — момент
// скрытия (unix ms), по нему скрипт перезапрашивает фрагмент.
func Toasts(items []notify.Notification, ttl time.Duration) templ.Component {
	return component(func(h *html) {
		for _, n := range items {
			expires := n.CreatedAt.Add(ttl).UnixMilli()
			h.open("div",
				"class", "toast toast-"+string(n.Severity),
				"role", "status",
				"data-expires", strconv.FormatInt(expires, 10),
			)
			msg := n.Detail
			if msg == "" {
				msg = i18n.T(h.ctx, n.Key)
			}
			h.elem("span", msg, "class", "toast-text")
			h.open("button", "type", "button", "class", "toast-close",
				"data-method", "DELETE", "data-url", "/partials/toasts/"+n.ID,
				"aria-label", i18n.T(h.ctx, "common.close"))
			h.raw("&times;")
			h.close("button")
			h.close("div")
		}
	})
}

// button — кнопка действия: скрипт отправляет method url.
// confirmKey — ключ текста подтверждения (пусто — без подтверждения).
func button(h *html, method, url, labelKey, class string, disabled bool, confirmKey string) {
	h.raw("<button")
	h.attr("type", "button")
	h.attr("class", "btn "+class)
	h.attr("data-method", method)
	h.attr("data-url", url)
	if confirmKey != "" {
		h.attr("data-confirm", i18n.T(h.ctx, confirmKey))
	}
	h.flag("disabled", disabled)
	h.raw(">")
	h.t(labelKey)
	h.close("button")
}

// searchBox — поле поиска, по вводу перезапрашивается фрагмент таблицы.
func searchBox(h *html, id, value string) {
	h.raw("<input")
	h.attr("type", "search")
	h.attr("id", id)
	h.attr("class", "search")
	h.attr("name", "q")
	h.attr("value", value)
	h.attr("placeholder", i18n.T(h.ctx, "common.search"))
	h.attr("data-search", "")
	h.raw(">")
}

// usageHint — подсказка с адресом симулируемого устройства и кнопкой копирования.
func usageHint(h *html, url string) {
	h.open("p", "class", "hint")
	h.t("hint.device_url")
	h.raw(" ")
	h.elem("code", url)
	h.raw(" <button")
	h.attr("type", "button")
	h.attr("class", "btn btn-small btn-copy")
	h.attr("data-copy", url)
	h.attr("data-copied", i18n.T(h.ctx, "hint.copied"))
	h.attr("data-copy-failed", i18n.T(h.ctx, "hint.copy_failed"))
	h.attr("title", i18n.T(h.ctx, "hint.copy"))
	h.raw(">")
	h.t("hint.copy")
	h.close("button")
	h.close("p")
}

// timestampLayouts — форматы отметок времени backend (без зоны — UTC).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// timestamp приводит отметку времени backend к виду "2006-01-02 15:04:05" UTC.
// Неразборчивое значение показывается как есть.
func timestamp(s string) string {
	if s == "" {
		return "—"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.DateTime)
		}
	}
	return s
}

// loadState пишет индикатор загрузки и ошибку первой загрузки.
// Возвращает false, если таблицу рисовать не нужно.
func loadState(h *html, loading, failed bool, refreshURL string) bool {
	if loading {
		h.elem("div", i18n.T(h.ctx, "common.loading"), "class", "loading")
	}
	if failed {
		h.open("div", "class", "load-error")
		h.t("table.load_error")
		h.raw(" ")
		button(h, "POST", refreshURL, "common.retry", "btn-small", loading, "")
		h.close("div")
		return false
	}
	return true
}

// bulkBar — панель пакетных действий при непустом выборе.
func bulkBar(h *html, selected int, deleteURL string, busy bool) {
	h.open("div", "class", "bulk-bar")
	h.text(i18n.Tf(h.ctx, "bulk.selected", selected))
	h.raw(" ")
	button(h, "POST", deleteURL, "bulk.delete", "btn-danger", busy, "bulk.confirm")
	h.close("div")
}

// checkbox пишет чекбокс выбора, отправляющий POST url при изменении.
func checkbox(h *html, url string, checked, disabled bool) {
	h.raw("<input")
	h.attr("type", "checkbox")
	h.attr("data-method", "POST")
	h.attr("data-url", url)
	h.flag("checked", checked)
	h.flag("disabled", disabled)
	h.raw(">")
}

func yesNo(h *html, v bool) {
	if v {
		h.t("common.yes")
		return
	}
	h.t("common.no")
}
