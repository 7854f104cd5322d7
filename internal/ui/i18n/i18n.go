// Пакет i18n — интернационализация Device Console.
// T(ctx, key) и Tf(ctx, key, args...) возвращают перевод на языке запроса.
// Поддерживаемые языки: English (en), Русский (ru).
// Язык определяется middleware: cookie "lang" → Accept-Language → DefaultLang.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и источник fallback-переводов.
const DefaultLang = "en"

// Languages — коды поддерживаемых языков в порядке тегов SupportedLanguages.
var Languages = []string{"en", "ru"}

// SupportedLanguages — теги поддерживаемых языков для matcher.
var SupportedLanguages = []language.Tag{
	language.English,
	language.Russian,
}

var matcher = language.NewMatcher(SupportedLanguages)

type contextKey string

const contextKeyLang contextKey = "i18n_lang"

// Bundle — каталоги переводов: lang → key → перевод.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает плоский JSON-каталог {"key": "перевод"} для языка lang.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate возвращает перевод ключа. Если в каталоге lang ключа нет,
// берётся перевод DefaultLang, иначе возвращается сам ключ.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[DefaultLang][key]; ok {
		return msg
	}
	return key
}

// Translatef — Translate с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// Missing возвращает ключи каталога DefaultLang, которых нет в каталоге lang.
func (b *Bundle) Missing(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []string
	for key := range b.catalogs[DefaultLang] {
		if _, ok := b.catalogs[lang][key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// --- Глобальный Bundle ---

var (
	globalBundle *Bundle
	globalOnce   sync.Once
)

// Init создаёт глобальный Bundle. Повторные вызовы возвращают тот же Bundle.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		globalBundle = NewBundle(logger)
	})
	return globalBundle
}

// GetBundle возвращает глобальный Bundle (nil до Init).
func GetBundle() *Bundle {
	return globalBundle
}

// IsSupported проверяет код языка.
func IsSupported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// LangFromContext извлекает язык из контекста.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T возвращает перевод ключа на языке из контекста.
func T(ctx context.Context, key string) string {
	if globalBundle == nil {
		return key
	}
	return globalBundle.Translate(LangFromContext(ctx), key)
}

// Tf возвращает перевод ключа с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	if globalBundle == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return globalBundle.Translatef(LangFromContext(ctx), key, args...)
}

// formatFunc — fmt.Sprintf через переменную: формат-строки приходят
// из каталогов во время выполнения, printf-анализатор go vet их не проверит.
//
//nolint:govet
var formatFunc = fmt.Sprintf

// MatchLanguage выбирает язык по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	_, i, conf := matcher.Match(parseTags(acceptLanguage)...)
	if conf == language.No {
		return DefaultLang
	}
	return Languages[i]
}

func parseTags(acceptLanguage string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return nil
	}
	return tags
}
