package service

import (
	"strings"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// FilterRegula отбирает записи, у которых строка
// «фамилия имя отчество серияномер» содержит term без учёта регистра.
// Пустой term возвращает items без изменений.
func FilterRegula(items []model.RegulaRecord, term string) []model.RegulaRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]model.RegulaRecord, 0, len(items))
	for _, r := range items {
		hay := strings.ToLower(r.LastName + " " + r.FirstName + " " + r.MiddleName + " " + r.Series + r.Number)
		if strings.Contains(hay, term) {
			out = append(out, r)
		}
	}
	return out
}

// FilterRfid отбирает устройства по названию или метке.
func FilterRfid(items []model.RfidRecord, term string) []model.RfidRecord {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]model.RfidRecord, 0, len(items))
	for _, r := range items {
		if strings.Contains(strings.ToLower(r.Name), term) || strings.Contains(strings.ToLower(r.Rfid), term) {
			out = append(out, r)
		}
	}
	return out
}
