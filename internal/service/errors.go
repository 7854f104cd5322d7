// errors.go — ошибки сервисного слоя (состояние консоли устройств).
package service

import "errors"

var (
	// ErrNotFound — запись не найдена в загруженной коллекции.
	ErrNotFound = errors.New("запись не найдена")
	// ErrSessionClosed — операция над закрытой сессией редактирования.
	ErrSessionClosed = errors.New("сессия редактирования закрыта")
	// ErrSubmitInFlight — сохранение уже выполняется.
	ErrSubmitInFlight = errors.New("сохранение уже выполняется")
	// ErrUploadInFlight — загрузка фото уже выполняется.
	ErrUploadInFlight = errors.New("загрузка фото уже выполняется")
	// ErrPhotoDeleteInFlight — удаление этого фото уже выполняется.
	ErrPhotoDeleteInFlight = errors.New("удаление фото уже выполняется")
	// ErrBulkInFlight — пакетное удаление уже выполняется.
	ErrBulkInFlight = errors.New("удаление уже выполняется")
	// ErrNothingSelected — не выбрано ни одной записи.
	ErrNothingSelected = errors.New("не выбрано ни одной записи")
	// ErrNotImage — файл не является изображением.
	ErrNotImage = errors.New("файл не является изображением")
	// ErrEmptyFile — пустой файл.
	ErrEmptyFile = errors.New("пустой файл")
	// ErrUnknownField — неизвестное поле формы.
	ErrUnknownField = errors.New("неизвестное поле формы")
	// ErrUnknownPhoto — фото нет в загруженном списке.
	ErrUnknownPhoto = errors.New("фото не найдено в списке")
	// ErrUnsupported — операция не поддерживается для этого вида устройств.
	ErrUnsupported = errors.New("операция не поддерживается")
	// ErrInvalidValue — недопустимое значение поля.
	ErrInvalidValue = errors.New("недопустимое значение поля")
)
