// Пакет views — HTML-компоненты консоли (templ.Component).
//
// Каждый компонент — чистая функция от snapshot состояния: страница
// и её фрагменты перерисовываются целиком, когда браузер получает
// событие об изменении соответствующего источника.
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
)

// html — построитель разметки поверх io.Writer. Первая ошибка записи
// сохраняется, последующие записи пропускаются.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text пишет экранированный текст.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// t пишет перевод ключа на языке запроса.
func (h *html) t(key string) {
	h.text(i18n.T(h.ctx, key))
}

// attr пишет атрибут ` name="value"`.
func (h *html) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// flag пишет булев атрибут, если on.
func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" " + name)
	}
}

// open пишет открывающий тег с атрибутами попарно: name, value, name, value…
func (h *html) open(tag string, attrs ...string) {
	h.raw("<" + tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		h.attr(attrs[i], attrs[i+1])
	}
	h.raw(">")
}

func (h *html) close(tag string) {
	h.raw("</" + tag + ">")
}

// elem пишет элемент с экранированным текстом.
func (h *html) elem(tag, text string, attrs ...string) {
	h.open(tag, attrs...)
	h.text(text)
	h.close(tag)
}

// render встраивает дочерний компонент.
func (h *html) render(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// component оборачивает функцию отрисовки в templ.Component.
func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
