package deviceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// passportIDsRequest — тело пакетного удаления Regula.
type passportIDsRequest struct {
	PassportIDs []int64 `json:"passport_ids"`
}

// photoUploadRequest — JSON-тело загрузки фото (base64).
type photoUploadRequest struct {
	ImageData   string `json:"image_data"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// ListRegula возвращает все записи Regula в порядке ответа backend.
func (c *Client) ListRegula(ctx context.Context) ([]model.RegulaRecord, error) {
	const op = "ListRegula"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: c.opts.RegulaPath})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[model.RegulaRecord](resp.body)
	if err != nil {
		return nil, c.decodeError(op, resp.body, err)
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

// CreateRegula создаёт запись Regula из черновика.
func (c *Client) CreateRegula(ctx context.Context, draft model.RegulaDraft) (*model.RegulaRecord, error) {
	draft.Normalize()
	rq, err := jsonRequest("CreateRegula", http.MethodPost, c.opts.RegulaPath, draft)
	if err != nil {
		return nil, err
	}
	var rec model.RegulaRecord
	if err := c.doJSON(ctx, rq, &rec); err != nil {
		return nil, err
	}
	// Без id созданную запись нельзя ни выбрать, ни удалить.
	if rec.ID <= 0 {
		return nil, c.decodeError(rq.op, nil, errMissingID)
	}
	rec.Normalize()
	return &rec, nil
}

// UpdateRegula заменяет запись Regula целиком.
func (c *Client) UpdateRegula(ctx context.Context, id int64, draft model.RegulaDraft) (*model.RegulaRecord, error) {
	draft.Normalize()
	rq, err := jsonRequest("UpdateRegula", http.MethodPut, idPath(c.opts.RegulaPath, id), draft)
	if err != nil {
		return nil, err
	}
	var rec model.RegulaRecord
	if err := c.doJSON(ctx, rq, &rec); err != nil {
		return nil, err
	}
	// Backend может вернуть пустой ответ — тогда собираем запись из черновика.
	if rec.ID == 0 {
		rec = recordFromDraft(id, draft)
	}
	rec.Normalize()
	return &rec, nil
}

// DeleteRegula удаляет одну запись Regula.
func (c *Client) DeleteRegula(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{op: "DeleteRegula", method: http.MethodDelete, path: idPath(c.opts.RegulaPath, id)})
	return err
}

// DeleteManyRegula удаляет записи Regula одним запросом.
func (c *Client) DeleteManyRegula(ctx context.Context, ids []int64) error {
	rq, err := jsonRequest("DeleteManyRegula", http.MethodPost, c.opts.RegulaPath+"/delete-many",
		passportIDsRequest{PassportIDs: ids})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, rq)
	return err
}

// ListPhotos возвращает все фото, доступные для привязки.
func (c *Client) ListPhotos(ctx context.Context) ([]model.Photo, error) {
	const op = "ListPhotos"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: c.opts.RegulaPath + "/photos"})
	if err != nil {
		return nil, err
	}
	photos, err := decodeList[model.Photo](resp.body)
	if err != nil {
		return nil, c.decodeError(op, resp.body, err)
	}
	return photos, nil
}

// UploadPhoto загружает фото. Формат тела зависит от Options.MultipartUpload.
func (c *Client) UploadPhoto(ctx context.Context, up model.PhotoUpload) (*model.Photo, error) {
	const op = "UploadPhoto"
	path := c.opts.RegulaPath + "/photo"

	var (
		rq  request
		err error
	)
	if c.opts.MultipartUpload {
		rq, err = multipartRequest(op, path, up)
	} else {
		rq, err = jsonRequest(op, http.MethodPost, path, photoUploadRequest{
			ImageData:   base64.StdEncoding.EncodeToString(up.Data),
			FileName:    up.FileName,
			ContentType: up.ContentType,
		})
	}
	if err != nil {
		return nil, err
	}

	var photo model.Photo
	if err := c.doJSON(ctx, rq, &photo); err != nil {
		return nil, err
	}
	if photo.ID <= 0 {
		return nil, c.decodeError(op, nil, fmt.Errorf("фото: %w", errMissingID))
	}
	if photo.FileName == "" {
		photo.FileName = up.FileName
	}
	if photo.ContentType == "" {
		photo.ContentType = up.ContentType
	}
	return &photo, nil
}

// DeletePhoto удаляет фото.
func (c *Client) DeletePhoto(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{op: "DeletePhoto", method: http.MethodDelete, path: idPath(c.opts.RegulaPath+"/photo", id)})
	return err
}

// FetchPhoto возвращает байты фото.
func (c *Client) FetchPhoto(ctx context.Context, id int64) (*model.PhotoImage, error) {
	resp, err := c.do(ctx, request{op: "FetchPhoto", method: http.MethodGet, path: idPath(c.opts.RegulaPath+"/photo", id)})
	if err != nil {
		return nil, err
	}
	ct := resp.contentType
	if ct == "" || !model.IsImageMediaType(ct) {
		ct = http.DetectContentType(resp.body)
	}
	return &model.PhotoImage{ContentType: ct, Data: resp.body}, nil
}

// multipartRequest собирает multipart/form-data с полем file.
func multipartRequest(op, path string, up model.PhotoUpload) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(up.FileName)))
	h.Set("Content-Type", up.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return request{}, fmt.Errorf("%s: создание multipart-части: %w", op, err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return request{}, fmt.Errorf("%s: запись multipart-части: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("%s: завершение multipart: %w", op, err)
	}

	return request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func recordFromDraft(id int64, d model.RegulaDraft) model.RegulaRecord {
	return model.RegulaRecord{
		ID:              id,
		Name:            d.Name,
		LastName:        d.LastName,
		FirstName:       d.FirstName,
		MiddleName:      d.MiddleName,
		BirthDate:       d.BirthDate,
		IssueDate:       d.IssueDate,
		Series:          d.Series,
		Number:          d.Number,
		DepartmentCode:  d.DepartmentCode,
		IssuedBy:        d.IssuedBy,
		BirthPlace:      d.BirthPlace,
		Gender:          d.Gender,
		PhotoID:         d.PhotoID,
		DelayedResponse: d.DelayedResponse,
	}
}
