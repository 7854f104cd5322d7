package model

import "strings"

// Photo — фото паспорта, независимый ресурс backend.
// Запись Regula ссылается на фото через photo_id.
type Photo struct {
	ID          int64  `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	CreatedAt   string `json:"created_at,omitempty"`
	// URL — адрес байтов фото, если backend его сообщает.
	URL string `json:"url,omitempty"`
	// ImageData — base64-содержимое, приходит в ответе на загрузку.
	ImageData string `json:"image_data,omitempty"`
}

// Source возвращает значение для <img src>: inline data URI, если есть
// ImageData, иначе URL от backend, иначе fallbackURL.
func (p Photo) Source(fallbackURL string) string {
	if p.ImageData != "" {
		ct := p.ContentType
		if ct == "" {
			ct = "image/jpeg"
		}
		return "data:" + ct + ";base64," + p.ImageData
	}
	if p.URL != "" {
		return p.URL
	}
	return fallbackURL
}

// PhotoUpload — подготовленный к отправке файл фото.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// PhotoImage — байты фото и их MIME-тип.
type PhotoImage struct {
	ContentType string
	Data        []byte
}

// IsImageMediaType проверяет, что MIME-тип относится к изображениям (image/*).
func IsImageMediaType(contentType string) bool {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return strings.HasPrefix(mt, "image/") && len(mt) > len("image/")
}
