// Пакет model — доменные модели Device Console: записи устройств Regula и RFID,
// фото паспортов и черновики форм редактирования.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Gender — пол владельца паспорта.
type Gender string

// Допустимые значения Gender.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid проверяет, что значение входит в перечисление.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// calendarDateLayout — формат даты в полях birth_date / issue_date.
const calendarDateLayout = "2006-01-02"

// RegulaRecord — запись симулируемого устройства Regula (паспортные данные).
type RegulaRecord struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	LastName        string `json:"last_name"`
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	BirthDate       string `json:"birth_date"`
	IssueDate       string `json:"issue_date"`
	Series          string `json:"series"`
	Number          string `json:"number"`
	DepartmentCode  string `json:"department_code"`
	IssuedBy        string `json:"issued_by"`
	BirthPlace      string `json:"birth_place"`
	Gender          Gender `json:"gender"`
	PhotoID         *int64 `json:"photo_id"`
	DelayedResponse *int   `json:"delayed_response"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	// Photo — вложенное фото, которое backend может вернуть вместе с записью.
	Photo *Photo `json:"photo,omitempty"`
}

// RecordID реализует service.Record.
func (r RegulaRecord) RecordID() int64 { return r.ID }

// FullName — «Фамилия Имя Отчество» для таблицы.
func (r RegulaRecord) FullName() string {
	return strings.TrimSpace(strings.Join([]string{r.LastName, r.FirstName, r.MiddleName}, " "))
}

// Passport — «серия номер» для таблицы.
func (r RegulaRecord) Passport() string {
	return strings.TrimSpace(r.Series + " " + r.Number)
}

// Normalize приводит значения с двойной семантикой к единому виду:
// photo_id == 0 означает отсутствие фото и становится nil.
func (r *RegulaRecord) Normalize() {
	r.PhotoID = NormalizePhotoID(r.PhotoID)
	if r.Photo != nil && r.Photo.ID == 0 {
		r.Photo = nil
	}
}

// RegulaDraft — черновик формы Regula. Отправляется на backend целиком
// при создании и при обновлении.
type RegulaDraft struct {
	Name            string `json:"name"`
	LastName        string `json:"last_name"`
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	BirthDate       string `json:"birth_date"`
	IssueDate       string `json:"issue_date"`
	Series          string `json:"series"`
	Number          string `json:"number"`
	DepartmentCode  string `json:"department_code"`
	IssuedBy        string `json:"issued_by"`
	BirthPlace      string `json:"birth_place"`
	Gender          Gender `json:"gender"`
	PhotoID         *int64 `json:"photo_id"`
	DelayedResponse *int   `json:"delayed_response"`
}

// NewRegulaDraft возвращает шаблон черновика для режима создания.
func NewRegulaDraft() RegulaDraft {
	return RegulaDraft{Gender: GenderMale}
}

// DraftFromRegula копирует все поля записи в черновик. Даты с компонентой
// времени сокращаются до календарной даты, которую принимает input[type=date].
func DraftFromRegula(r RegulaRecord) RegulaDraft {
	d := RegulaDraft{
		Name:            r.Name,
		LastName:        r.LastName,
		FirstName:       r.FirstName,
		MiddleName:      r.MiddleName,
		BirthDate:       CalendarDate(r.BirthDate),
		IssueDate:       CalendarDate(r.IssueDate),
		Series:          r.Series,
		Number:          r.Number,
		DepartmentCode:  r.DepartmentCode,
		IssuedBy:        r.IssuedBy,
		BirthPlace:      r.BirthPlace,
		Gender:          r.Gender,
		PhotoID:         NormalizePhotoID(r.PhotoID),
		DelayedResponse: copyInt(r.DelayedResponse),
	}
	if !d.Gender.Valid() {
		d.Gender = GenderMale
	}
	return d
}

// Clone возвращает копию черновика без общих указателей.
func (d RegulaDraft) Clone() RegulaDraft {
	c := d
	c.PhotoID = copyInt64(d.PhotoID)
	c.DelayedResponse = copyInt(d.DelayedResponse)
	return c
}

// Normalize применяет правило photo_id: 0 → nil.
func (d *RegulaDraft) Normalize() {
	d.PhotoID = NormalizePhotoID(d.PhotoID)
}

// CalendarDate отбрасывает компоненту времени у строки даты
// ("2024-01-15T00:00:00Z" → "2024-01-15"). Строка, которая не начинается
// с корректной ISO-даты, превращается в пустую — поле формы остаётся пустым.
func CalendarDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	if _, err := time.Parse(calendarDateLayout, s); err != nil {
		return ""
	}
	return s
}

// ParseDelayedResponse разбирает значение поля delayed_response.
// Пустое, нечисловое и отрицательное значение дают nil.
func ParseDelayedResponse(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// ParsePhotoID разбирает идентификатор фото из значения формы.
// Пустое, нечисловое и нулевое значение дают nil.
func ParsePhotoID(raw string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	return NormalizePhotoID(&n)
}

// NormalizePhotoID сводит «нет фото» к единому значению nil.
func NormalizePhotoID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
