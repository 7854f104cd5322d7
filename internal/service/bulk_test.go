package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// newRegulaBulk создаёт BulkActions с указанными операциями удаления.
func newRegulaBulk(
	store *Collection[model.RegulaRecord],
	n Notifier,
	deleteMany func(ctx context.Context, ids []int64) error,
	deleteOne func(ctx context.Context, id int64) error,
) *BulkActions[model.RegulaRecord] {
	return NewBulkActions(store, BulkConfig{
		DeleteMany:      deleteMany,
		DeleteOne:       deleteOne,
		BulkDeletedKey:  MsgRegulaBulkDeleted,
		BulkFailedKey:   MsgRegulaBulkDelFailed,
		DeletedKey:      MsgRegulaDeleted,
		DeleteFailedKey: MsgRegulaDeleteFailed,
	}, n, NewBroadcaster(), testLogger())
}

func TestBulkDelete_SelectedSubset(t *testing.T) {
	n := &fakeNotifier{}
	store := newRegulaStore(t, n, 5, 3, 1)
	store.Toggle(3)
	store.Toggle(1)

	var sent []int64
	bulk := newRegulaBulk(store, n, func(_ context.Context, ids []int64) error {
		sent = ids
		return nil
	}, nil)

	if !bulk.ShowBulkBar() {
		t.Fatal("панель пакетных действий должна быть видна при выборе")
	}

	deleted, err := bulk.BulkDelete(context.Background())
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if !equalIDs(sent, []int64{3, 1}) || !equalIDs(deleted, []int64{3, 1}) {
		t.Errorf("отправлено %v, удалено %v, ожидается [3 1]", sent, deleted)
	}
	if got := recordIDs(store.Snapshot().Items); !equalIDs(got, []int64{5}) {
		t.Errorf("Items = %v, ожидается [5]", got)
	}
	if store.AnySelected() || bulk.ShowBulkBar() {
		t.Error("после удаления выбор должен быть пуст")
	}
	if got := n.last(t); !got.ok || got.key != MsgRegulaBulkDeleted {
		t.Errorf("уведомление = %+v", got)
	}
}

// TestBulkDelete_SelectAllMinusDeleted — выбрать всё и удалить: коллекция пуста.
func TestBulkDelete_SelectAllMinusDeleted(t *testing.T) {
	store := newRegulaStore(t, &fakeNotifier{}, 5, 3, 1)
	store.SelectAll()

	bulk := newRegulaBulk(store, &fakeNotifier{}, func(context.Context, []int64) error { return nil },
		func(context.Context, int64) error { return nil })

	if err := bulk.DeleteOne(context.Background(), 3); err != nil {
		t.Fatalf("DeleteOne: %v", err)
	}
	if got := store.SelectedIDs(); !equalIDs(got, []int64{5, 1}) {
		t.Errorf("выбор = %v, ожидается [5 1]", got)
	}
	if got := recordIDs(store.Snapshot().Items); !equalIDs(got, []int64{5, 1}) {
		t.Errorf("Items = %v, ожидается [5 1]", got)
	}
}

func TestBulkDelete_FailureChangesNothing(t *testing.T) {
	n := &fakeNotifier{}
	store := newRegulaStore(t, n, 5, 3, 1)
	store.SelectAll()

	bulk := newRegulaBulk(store, n, func(context.Context, []int64) error {
		return &deviceclient.Error{Kind: deviceclient.KindServer, Op: "DeleteManyRegula", StatusCode: 500, Detail: "boom"}
	}, nil)

	if _, err := bulk.BulkDelete(context.Background()); err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if got := recordIDs(store.Snapshot().Items); !equalIDs(got, []int64{5, 3, 1}) {
		t.Errorf("Items = %v, коллекция не должна меняться", got)
	}
	if got := store.SelectedIDs(); !equalIDs(got, []int64{5, 3, 1}) {
		t.Errorf("выбор = %v, не должен меняться", got)
	}
	got := n.last(t)
	if got.ok || got.key != MsgRegulaBulkDelFailed || got.detail != "" {
		t.Errorf("уведомление = %+v, текст 5xx не показывается", got)
	}
	if bulk.Busy() {
		t.Error("Busy должен сброситься после ошибки")
	}
}

func TestBulkDelete_NothingSelected(t *testing.T) {
	called := false
	bulk := newRegulaBulk(newRegulaStore(t, &fakeNotifier{}, 1), &fakeNotifier{},
		func(context.Context, []int64) error { called = true; return nil }, nil)

	if _, err := bulk.BulkDelete(context.Background()); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("err = %v, ожидается ErrNothingSelected", err)
	}
	if called {
		t.Error("backend не должен вызываться без выбора")
	}
}

func TestBulkDelete_InFlight(t *testing.T) {
	store := newRegulaStore(t, &fakeNotifier{}, 2, 1)
	store.SelectAll()

	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	bulk := newRegulaBulk(store, &fakeNotifier{}, func(context.Context, []int64) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return nil
	}, nil)

	done := make(chan error)
	go func() {
		_, err := bulk.BulkDelete(context.Background())
		done <- err
	}()
	waitFor(t, "начало удаления", bulk.Busy)

	if _, err := bulk.BulkDelete(context.Background()); !errors.Is(err, ErrBulkInFlight) {
		t.Errorf("err = %v, ожидается ErrBulkInFlight", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("backend вызван %d раз, ожидается 1", calls)
	}
}

func TestDeleteOne_NotFoundShowsDetail(t *testing.T) {
	n := &fakeNotifier{}
	store := newRegulaStore(t, n, 2, 1)
	bulk := newRegulaBulk(store, n, nil, func(context.Context, int64) error {
		return &deviceclient.Error{Kind: deviceclient.KindNotFound, Op: "DeleteRegula", StatusCode: 404, Detail: "Passport not found"}
	})

	if err := bulk.DeleteOne(context.Background(), 2); !deviceclient.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
	if got := n.last(t); got.detail != "Passport not found" || got.key != MsgRegulaDeleteFailed {
		t.Errorf("уведомление = %+v", got)
	}
	if got := recordIDs(store.Snapshot().Items); !equalIDs(got, []int64{2, 1}) {
		t.Errorf("Items = %v", got)
	}
}

func TestDeleteOne_Unsupported(t *testing.T) {
	bulk := newRegulaBulk(newRegulaStore(t, &fakeNotifier{}, 1), &fakeNotifier{}, nil, nil)
	if err := bulk.DeleteOne(context.Background(), 1); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, ожидается ErrUnsupported", err)
	}
}
