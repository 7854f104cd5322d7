package deviceclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listShape — форма, в которой backend вернул коллекцию.
type listShape int

const (
	shapeNull listShape = iota
	shapeArray
	shapeEnvelope
	shapeSingle
)

// listPayload — ответ списочного эндпоинта. Backend отдаёт коллекцию
// голым массивом, конвертом {items,total,skip,limit} или одиночным
// объектом. Наружу пакета выходит только []T.
type listPayload[T any] struct {
	shape listShape
	items []T
	total int
}

// envelope — постраничный конверт списка.
type envelope[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// UnmarshalJSON определяет форму ответа по первому значимому байту
// и наличию поля items.
func (p *listPayload[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.shape = shapeNull
		p.items = nil
		return nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		p.shape = shapeArray
		p.items = items
		p.total = len(items)
		return nil

	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if _, ok := probe["items"]; ok {
			var env envelope[T]
			if err := json.Unmarshal(data, &env); err != nil {
				return err
			}
			p.shape = shapeEnvelope
			p.items = env.Items
			p.total = env.Total
			return nil
		}
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		p.shape = shapeSingle
		p.items = []T{one}
		p.total = 1
		return nil

	default:
		return fmt.Errorf("ожидается массив или объект, получено %q", truncate(string(data), 32))
	}
}

// Items возвращает элементы в порядке ответа; для null — пустой срез.
func (p listPayload[T]) Items() []T {
	if p.items == nil {
		return []T{}
	}
	return p.items
}

// decodeList разбирает тело списочного ответа.
func decodeList[T any](body []byte) ([]T, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []T{}, nil
	}
	var p listPayload[T]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return p.Items(), nil
}
