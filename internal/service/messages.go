// messages.go — ключи сообщений уведомлений (каталог internal/ui/i18n/locales).
package service

// Notifier — канал уведомлений оператора. Реализуется notify.Hub.
type Notifier interface {
	// Success публикует уведомление об успехе.
	Success(key string)
	// Error публикует уведомление об ошибке; непустой detail показывается как есть.
	Error(key, detail string)
}

// Ключи уведомлений.
const (
	MsgLoadFailed = "toast.load_failed"

	MsgRegulaCreated       = "toast.regula.created"
	MsgRegulaUpdated       = "toast.regula.updated"
	MsgRegulaCreateFailed  = "toast.regula.create_failed"
	MsgRegulaUpdateFailed  = "toast.regula.update_failed"
	MsgRegulaDeleted       = "toast.regula.deleted"
	MsgRegulaDeleteFailed  = "toast.regula.delete_failed"
	MsgRegulaBulkDeleted   = "toast.regula.bulk_deleted"
	MsgRegulaBulkDelFailed = "toast.regula.bulk_delete_failed"

	MsgPhotoUploaded     = "toast.photo.uploaded"
	MsgPhotoUploadFailed = "toast.photo.upload_failed"
	MsgPhotoDeleted      = "toast.photo.deleted"
	MsgPhotoDeleteFailed = "toast.photo.delete_failed"

	MsgRfidCreated       = "toast.rfid.created"
	MsgRfidCreateFailed  = "toast.rfid.create_failed"
	MsgRfidUpdated       = "toast.rfid.updated"
	MsgRfidUpdateFailed  = "toast.rfid.update_failed"
	MsgRfidBulkDeleted   = "toast.rfid.bulk_deleted"
	MsgRfidBulkDelFailed = "toast.rfid.bulk_delete_failed"
)
