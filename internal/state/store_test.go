package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mwilkes/basket/internal/client"
	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
)

// fakeAPI is a scriptable server double. Unset funcs fail the test if called.
type fakeAPI struct {
	t *testing.T

	lists          func(ctx context.Context) (*client.Collections, error)
	getList        func(ctx context.Context, id int64) (*client.ListDetail, error)
	createList     func(ctx context.Context, name, description string) (*model.List, error)
	updateList     func(ctx context.Context, id int64, name, description string) (*model.List, error)
	deleteList     func(ctx context.Context, id int64) error
	archiveList    func(ctx context.Context, id int64) (*model.List, error)
	completeList   func(ctx context.Context, id int64) (*model.List, error)
	createItem     func(ctx context.Context, listID int64, fields client.ItemFields) (*model.Item, error)
	updateItem     func(ctx context.Context, listID, itemID int64, fields client.ItemFields) (*model.Item, error)
	deleteItem     func(ctx context.Context, listID, itemID int64) error
	togglePurchase func(ctx context.Context, listID, itemID int64) (*model.Item, error)
}

func (f *fakeAPI) Lists(ctx context.Context) (*client.Collections, error) {
	if f.lists == nil {
		f.t.Fatal("unexpected Lists call")
	}
	return f.lists(ctx)
}

func (f *fakeAPI) GetList(ctx context.Context, id int64) (*client.ListDetail, error) {
	if f.getList == nil {
		f.t.Fatal("unexpected GetList call")
	}
	return f.getList(ctx, id)
}

func (f *fakeAPI) CreateList(ctx context.Context, name, description string) (*model.List, error) {
	if f.createList == nil {
		f.t.Fatal("unexpected CreateList call")
	}
	return f.createList(ctx, name, description)
}

func (f *fakeAPI) UpdateList(ctx context.Context, id int64, name, description string) (*model.List, error) {
	if f.updateList == nil {
		f.t.Fatal("unexpected UpdateList call")
	}
	return f.updateList(ctx, id, name, description)
}

func (f *fakeAPI) DeleteList(ctx context.Context, id int64) error {
	if f.deleteList == nil {
		f.t.Fatal("unexpected DeleteList call")
	}
	return f.deleteList(ctx, id)
}

func (f *fakeAPI) ArchiveList(ctx context.Context, id int64) (*model.List, error) {
	if f.archiveList == nil {
		f.t.Fatal("unexpected ArchiveList call")
	}
	return f.archiveList(ctx, id)
}

func (f *fakeAPI) CompleteList(ctx context.Context, id int64) (*model.List, error) {
	if f.completeList == nil {
		f.t.Fatal("unexpected CompleteList call")
	}
	return f.completeList(ctx, id)
}

func (f *fakeAPI) CreateItem(ctx context.Context, listID int64, fields client.ItemFields) (*model.Item, error) {
	if f.createItem == nil {
		f.t.Fatal("unexpected CreateItem call")
	}
	return f.createItem(ctx, listID, fields)
}

func (f *fakeAPI) UpdateItem(ctx context.Context, listID, itemID int64, fields client.ItemFields) (*model.Item, error) {
	if f.updateItem == nil {
		f.t.Fatal("unexpected UpdateItem call")
	}
	return f.updateItem(ctx, listID, itemID, fields)
}

func (f *fakeAPI) DeleteItem(ctx context.Context, listID, itemID int64) error {
	if f.deleteItem == nil {
		f.t.Fatal("unexpected DeleteItem call")
	}
	return f.deleteItem(ctx, listID, itemID)
}

func (f *fakeAPI) ToggleItemPurchased(ctx context.Context, listID, itemID int64) (*model.Item, error) {
	if f.togglePurchase == nil {
		f.t.Fatal("unexpected ToggleItemPurchased call")
	}
	return f.togglePurchase(ctx, listID, itemID)
}

type memSnapshots map[string][]byte

func (m memSnapshots) Put(key string, value []byte) error { m[key] = value; return nil }
func (m memSnapshots) Get(key string) ([]byte, error)     { return m[key], nil }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const testUserID = int64(1)

func newTestStore(api *fakeAPI, snaps Snapshots) *Store {
	return NewStore(api, snaps, testUserID, testLogger())
}

func selectList(s *Store, list model.List, items []model.Item) {
	s.SetCurrentList(&list)
	for _, item := range items {
		s.Apply(feed.ItemEvent{Op: feed.OpInsert, ID: item.ID, ListID: item.ListID, Item: &item})
	}
}

func TestRemoteWinsByArrivalOrder(t *testing.T) {
	list := model.List{ID: 7, OwnerID: testUserID, Name: "Groceries"}
	item := model.Item{ID: 3, ListID: 7, Name: "Milk"}

	api := &fakeAPI{t: t}
	api.togglePurchase = func(ctx context.Context, listID, itemID int64) (*model.Item, error) {
		purchased := item
		purchased.IsPurchased = true
		return &purchased, nil
	}

	s := newTestStore(api, nil)
	selectList(s, list, []model.Item{item})

	if err := s.TogglePurchased(context.Background(), 7, 3); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !s.Items()[0].IsPurchased {
		t.Fatal("expected purchased after local toggle")
	}
	if s.Current().PurchasedCount != 1 {
		t.Fatalf("purchased_count = %d, want 1", s.Current().PurchasedCount)
	}

	// A remote update for the same row arrives with is_purchased=false.
	// Last delivered wins, and the count is re-derived from the items.
	reverted := item
	reverted.IsPurchased = false
	s.Apply(feed.ItemEvent{Op: feed.OpUpdate, ID: 3, ListID: 7, Item: &reverted})

	if s.Items()[0].IsPurchased {
		t.Error("remote update should win by arrival order")
	}
	if got := s.Current().PurchasedCount; got != 0 {
		t.Errorf("purchased_count = %d, want 0 (recomputed from items)", got)
	}
}

func TestCompleteListMovesAtomically(t *testing.T) {
	list := model.List{ID: 7, OwnerID: testUserID, Name: "Groceries"}
	archived := list
	archived.IsArchived = true

	api := &fakeAPI{t: t}
	api.completeList = func(ctx context.Context, id int64) (*model.List, error) {
		return &archived, nil
	}

	s := newTestStore(api, nil)
	s.Apply(feed.ListEvent{Op: feed.OpInsert, ID: list.ID, List: &list})

	if err := s.CompleteList(context.Background(), 7); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(s.Active()) != 0 {
		t.Error("list should leave the active collection")
	}
	got := s.Archived()
	if len(got) != 1 || got[0].ID != 7 {
		t.Fatal("list should land in the archived collection")
	}
	if !got[0].IsArchived {
		t.Error("archived flag should be set")
	}
}

func TestCreateListFailureLeavesListAbsent(t *testing.T) {
	api := &fakeAPI{t: t}
	api.createList = func(ctx context.Context, name, description string) (*model.List, error) {
		return nil, errors.New("server unavailable")
	}

	s := newTestStore(api, nil)
	_, err := s.CreateList(context.Background(), "Groceries", "")
	if err == nil {
		t.Fatal("expected error")
	}

	if len(s.Active()) != 0 {
		t.Error("failed create should leave no placeholder behind")
	}
	if s.LastError() == nil {
		t.Error("failure should be recorded")
	}

	muts := s.Mutations()
	if len(muts) != 1 || muts[0].Status != MutationFailed {
		t.Fatalf("mutations = %+v, want one failed record", muts)
	}
}

func TestCreateListReplacesPlaceholder(t *testing.T) {
	created := model.List{ID: 42, OwnerID: testUserID, Name: "Groceries"}
	api := &fakeAPI{t: t}
	api.createList = func(ctx context.Context, name, description string) (*model.List, error) {
		return &created, nil
	}

	s := newTestStore(api, nil)
	got, err := s.CreateList(context.Background(), "Groceries", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("id = %d, want server-assigned 42", got.ID)
	}

	active := s.Active()
	if len(active) != 1 || active[0].ID != 42 {
		t.Fatalf("active = %+v, want the committed row only", active)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	list := model.List{ID: 7, OwnerID: testUserID, Name: "Groceries"}
	item := model.Item{ID: 3, ListID: 7, Name: "Milk", IsPurchased: true}

	s := newTestStore(&fakeAPI{t: t}, nil)
	s.SetCurrentList(&list)

	ev := feed.ItemEvent{Op: feed.OpInsert, ID: 3, ListID: 7, Item: &item}
	s.Apply(ev)
	s.Apply(ev)

	if len(s.Items()) != 1 {
		t.Fatalf("items = %d, want 1 after duplicate delivery", len(s.Items()))
	}
	if s.Current().PurchasedCount != 1 || s.Current().ItemCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", s.Current().PurchasedCount, s.Current().ItemCount)
	}

	del := feed.ItemEvent{Op: feed.OpDelete, ID: 3, ListID: 7}
	s.Apply(del)
	s.Apply(del)
	if len(s.Items()) != 0 {
		t.Error("duplicate delete should be a no-op")
	}
}

func TestListDeleteEventClearsSelection(t *testing.T) {
	list := model.List{ID: 7, OwnerID: testUserID, Name: "Groceries"}
	s := newTestStore(&fakeAPI{t: t}, nil)
	selectList(s, list, []model.Item{{ID: 3, ListID: 7, Name: "Milk"}})
	s.Apply(feed.ListEvent{Op: feed.OpInsert, ID: 7, List: &list})

	s.Apply(feed.ListEvent{Op: feed.OpDelete, ID: 7})

	if s.Current() != nil {
		t.Error("deleting the selected list should clear the selection")
	}
	if len(s.Items()) != 0 {
		t.Error("items of a deleted list should be dropped")
	}
	if len(s.Active()) != 0 {
		t.Error("list should leave all collections")
	}
}

func TestSharedRoutingByOwner(t *testing.T) {
	s := newTestStore(&fakeAPI{t: t}, nil)

	mine := model.List{ID: 1, OwnerID: testUserID, Name: "Mine"}
	theirs := model.List{ID: 2, OwnerID: 99, Name: "Theirs", IsCollaborative: true}

	s.Apply(feed.ListEvent{Op: feed.OpInsert, ID: 1, List: &mine})
	s.Apply(feed.ListEvent{Op: feed.OpInsert, ID: 2, List: &theirs})

	if len(s.Active()) != 1 || s.Active()[0].ID != 1 {
		t.Error("owned list should land in active")
	}
	if len(s.Shared()) != 1 || s.Shared()[0].ID != 2 {
		t.Error("someone else's list should land in shared")
	}
}

func TestRefreshFallsBackToSnapshot(t *testing.T) {
	snaps := memSnapshots{}
	snap := snapshot{
		Active: []model.List{{ID: 7, OwnerID: testUserID, Name: "Cached"}},
	}
	data, _ := json.Marshal(snap)
	snaps["snapshot:1"] = data

	api := &fakeAPI{t: t}
	api.lists = func(ctx context.Context) (*client.Collections, error) {
		return nil, errors.New("connection refused")
	}

	s := newTestStore(api, snaps)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh with cache: %v", err)
	}
	if !s.Degraded() {
		t.Error("degraded flag should be set when serving the snapshot")
	}
	active := s.Active()
	if len(active) != 1 || active[0].Name != "Cached" {
		t.Fatalf("active = %+v, want the cached row", active)
	}
}

func TestRefreshErrorWithoutSnapshot(t *testing.T) {
	api := &fakeAPI{t: t}
	api.lists = func(ctx context.Context) (*client.Collections, error) {
		return nil, errors.New("connection refused")
	}

	s := newTestStore(api, memSnapshots{})
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("refresh should fail when both the server and the cache are empty")
	}
}

func TestRefreshWritesSnapshot(t *testing.T) {
	snaps := memSnapshots{}
	api := &fakeAPI{t: t}
	api.lists = func(ctx context.Context) (*client.Collections, error) {
		return &client.Collections{
			Active: []model.List{{ID: 7, OwnerID: testUserID, Name: "Fresh"}},
		}, nil
	}

	s := newTestStore(api, snaps)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s.Degraded() {
		t.Error("successful refresh should clear the degraded flag")
	}
	if snaps["snapshot:1"] == nil {
		t.Fatal("refresh should persist a snapshot")
	}

	var snap snapshot
	if err := json.Unmarshal(snaps["snapshot:1"], &snap); err != nil {
		t.Fatalf("snapshot shape: %v", err)
	}
	if len(snap.Active) != 1 || snap.Active[0].Name != "Fresh" {
		t.Errorf("snapshot = %+v, want the fresh collections", snap)
	}
}

func TestMutationLogIsBounded(t *testing.T) {
	api := &fakeAPI{t: t}
	api.updateList = func(ctx context.Context, id int64, name, description string) (*model.List, error) {
		return &model.List{ID: id, OwnerID: testUserID, Name: name}, nil
	}
	s := newTestStore(api, memSnapshots{})

	for i := 0; i < 3*maxMutationRecords; i++ {
		if err := s.UpdateList(context.Background(), 1, "Groceries", ""); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	// A failure landing after heavy churn must still be reported.
	api.updateList = func(ctx context.Context, id int64, name, description string) (*model.List, error) {
		return nil, errors.New("server said no")
	}
	s.UpdateList(context.Background(), 1, "Groceries", "")

	s.mu.Lock()
	n := len(s.records)
	s.mu.Unlock()
	if n > maxMutationRecords {
		t.Errorf("record log holds %d entries, cap is %d", n, maxMutationRecords)
	}
	if s.LastError() == nil {
		t.Error("recent failure should survive pruning")
	}
}
