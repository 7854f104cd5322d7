package deviceclient

import (
	"context"
	"net/http"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

type rfidIDsRequest struct {
	RfidIDs []int64 `json:"rfid_ids"`
}

// rfidCollection — путь коллекции RFID; backend ожидает завершающий slash.
func (c *Client) rfidCollection() string {
	return c.opts.RfidPath + "/"
}

// ListRfid возвращает все RFID-устройства.
func (c *Client) ListRfid(ctx context.Context) ([]model.RfidRecord, error) {
	const op = "ListRfid"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: c.rfidCollection()})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[model.RfidRecord](resp.body)
	if err != nil {
		return nil, c.decodeError(op, resp.body, err)
	}
	return items, nil
}

// CreateRfid создаёт RFID-устройство.
func (c *Client) CreateRfid(ctx context.Context, draft model.RfidDraft) (*model.RfidRecord, error) {
	rq, err := jsonRequest("CreateRfid", http.MethodPost, c.rfidCollection(), draft)
	if err != nil {
		return nil, err
	}
	var rec model.RfidRecord
	if err := c.doJSON(ctx, rq, &rec); err != nil {
		return nil, err
	}
	if rec.ID <= 0 {
		return nil, c.decodeError(rq.op, nil, errMissingID)
	}
	return &rec, nil
}

// UpdateRfid заменяет все записываемые поля RFID-устройства.
func (c *Client) UpdateRfid(ctx context.Context, id int64, draft model.RfidDraft) (*model.RfidRecord, error) {
	rq, err := jsonRequest("UpdateRfid", http.MethodPut, idPath(c.opts.RfidPath, id), draft)
	if err != nil {
		return nil, err
	}
	var rec model.RfidRecord
	if err := c.doJSON(ctx, rq, &rec); err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		rec = model.RfidRecord{
			ID:               id,
			Name:             draft.Name,
			Rfid:             draft.Rfid,
			ClipCard:         draft.ClipCard,
			EmptyCardBin:     draft.EmptyCardBin,
			ErrorCardBinFull: draft.ErrorCardBinFull,
			PreEmptyCardBin:  draft.PreEmptyCardBin,
		}
	}
	return &rec, nil
}

// DeleteManyRfid удаляет RFID-устройства одним запросом.
func (c *Client) DeleteManyRfid(ctx context.Context, ids []int64) error {
	rq, err := jsonRequest("DeleteManyRfid", http.MethodPost, c.opts.RfidPath+"/delete-many",
		rfidIDsRequest{RfidIDs: ids})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, rq)
	return err
}
