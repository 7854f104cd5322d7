// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"fmt"
	"log/slog"
	"path"
)

// LoadFromEmbedFS загружает каталоги locales/<lang>.json для всех Languages.
// Ключи, которых нет в переводе, только логируются: Translate вернёт
// для них текст DefaultLang.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, lang := range Languages {
		p := path.Join("locales", lang+".json")
		data, err := LocaleFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", p, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	for _, lang := range Languages {
		if missing := bundle.Missing(lang); len(missing) > 0 {
			logger.Warn("i18n: в каталоге нет переводов",
				slog.String("lang", lang),
				slog.Any("keys", missing),
			)
		}
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(Languages)))
	return nil
}
