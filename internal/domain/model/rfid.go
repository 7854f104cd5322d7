package model

// RfidRecord — запись симулируемого RFID-устройства.
type RfidRecord struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Rfid             string `json:"rfid"`
	ClipCard         bool   `json:"clip_card"`
	EmptyCardBin     bool   `json:"empty_card_bin"`
	ErrorCardBinFull bool   `json:"error_card_bin_full"`
	PreEmptyCardBin  bool   `json:"pre_empty_card_bin"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// RecordID реализует service.Record.
func (r RfidRecord) RecordID() int64 { return r.ID }

// RfidDraft — поля RFID-устройства, доступные для записи
// (CreateRfidDeviceDto backend). Используется и при создании, и при обновлении.
type RfidDraft struct {
	Name             string `json:"name"`
	Rfid             string `json:"rfid"`
	ClipCard         bool   `json:"clip_card"`
	EmptyCardBin     bool   `json:"empty_card_bin"`
	ErrorCardBinFull bool   `json:"error_card_bin_full"`
	PreEmptyCardBin  bool   `json:"pre_empty_card_bin"`
}

// DraftFromRfid копирует записываемые поля устройства в черновик.
func DraftFromRfid(r RfidRecord) RfidDraft {
	return RfidDraft{
		Name:             r.Name,
		Rfid:             r.Rfid,
		ClipCard:         r.ClipCard,
		EmptyCardBin:     r.EmptyCardBin,
		ErrorCardBinFull: r.ErrorCardBinFull,
		PreEmptyCardBin:  r.PreEmptyCardBin,
	}
}
