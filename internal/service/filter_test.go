package service

import (
	"testing"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

func TestFilterRegula(t *testing.T) {
	items := []model.RegulaRecord{
		{ID: 3, LastName: "Иванов", FirstName: "Пётр", Series: "4510", Number: "123456"},
		{ID: 2, LastName: "Петрова", FirstName: "Анна", Series: "4001", Number: "000111"},
		{ID: 1, LastName: "Smith", FirstName: "John"},
	}

	tests := []struct {
		term string
		want []int64
	}{
		{"", []int64{3, 2, 1}},
		{"   ", []int64{3, 2, 1}},
		{"ИВАНОВ", []int64{3}},
		{"пётр", []int64{3}},
		{"петр", []int64{2}},
		{"4510123456", []int64{3}},
		{"0001", []int64{2}},
		{"smith john", []int64{1}},
		{"нет такого", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := recordIDs(FilterRegula(items, tt.term)); !equalIDs(got, tt.want) {
				t.Errorf("FilterRegula(%q) = %v, ожидается %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestFilterRfid(t *testing.T) {
	items := []model.RfidRecord{
		{ID: 2, Name: "Турникет", Rfid: "AB12"},
		{ID: 1, Name: "Касса", Rfid: "cd34"},
	}
	if got := recordIDs(FilterRfid(items, "ab")); !equalIDs(got, []int64{2}) {
		t.Errorf("по метке = %v", got)
	}
	if got := recordIDs(FilterRfid(items, "касс")); !equalIDs(got, []int64{1}) {
		t.Errorf("по названию = %v", got)
	}
	if got := FilterRfid(items, ""); len(got) != 2 {
		t.Errorf("пустой запрос = %v", got)
	}
}
