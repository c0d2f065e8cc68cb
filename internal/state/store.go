// Package state holds the client-side collaborative state: the list
// collections, the selected list and its items. All local mutations and all
// remote change-feed events funnel through the same row-keyed reducers, so
// the store converges to the server's state regardless of which side touched
// a row last.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mwilkes/basket/internal/client"
	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
)

// API is the server surface the store mutates through.
type API interface {
	Lists(ctx context.Context) (*client.Collections, error)
	GetList(ctx context.Context, id int64) (*client.ListDetail, error)
	CreateList(ctx context.Context, name, description string) (*model.List, error)
	UpdateList(ctx context.Context, id int64, name, description string) (*model.List, error)
	DeleteList(ctx context.Context, id int64) error
	ArchiveList(ctx context.Context, id int64) (*model.List, error)
	CompleteList(ctx context.Context, id int64) (*model.List, error)
	CreateItem(ctx context.Context, listID int64, fields client.ItemFields) (*model.Item, error)
	UpdateItem(ctx context.Context, listID, itemID int64, fields client.ItemFields) (*model.Item, error)
	DeleteItem(ctx context.Context, listID, itemID int64) error
	ToggleItemPurchased(ctx context.Context, listID, itemID int64) (*model.Item, error)
}

// Snapshots is the durable fallback read the store uses when the server is
// unreachable.
type Snapshots interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
}

type MutationStatus string

const (
	MutationPending   MutationStatus = "pending"
	MutationCommitted MutationStatus = "committed"
	MutationFailed    MutationStatus = "failed"
)

// Mutation is the two-phase record of one optimistic write. Failed mutations
// are never rolled back automatically; the user retries explicitly.
type Mutation struct {
	ID     int64
	Op     string
	Status MutationStatus
	Err    error
}

// Store is the single mutable shared resource on the client. A plain mutex
// serializes reducers; "whichever action lands last wins" is the accepted
// concurrency model.
type Store struct {
	mu     sync.Mutex
	api    API
	snaps  Snapshots
	logger *slog.Logger
	userID int64

	active   []model.List
	archived []model.List
	shared   []model.List
	current  *model.List
	items    []model.Item

	degraded bool
	seq      int64
	tempSeq  int64
	records  []*Mutation
}

func NewStore(api API, snaps Snapshots, userID int64, logger *slog.Logger) *Store {
	return &Store{api: api, snaps: snaps, userID: userID, logger: logger}
}

// begin opens a pending mutation record. Caller holds the lock.
func (s *Store) begin(op string) *Mutation {
	s.seq++
	m := &Mutation{ID: s.seq, Op: op, Status: MutationPending}
	s.records = append(s.records, m)
	return m
}

func (s *Store) finish(m *Mutation, err error) {
	if err != nil {
		m.Status = MutationFailed
		m.Err = err
		s.logger.Warn("mutation failed", "op", m.Op, "error", err)
	} else {
		m.Status = MutationCommitted
	}
	s.pruneRecords()
}

const maxMutationRecords = 128

// pruneRecords drops the oldest settled records once the log exceeds the
// cap. Pending records stay; their goroutines still hold the pointers.
func (s *Store) pruneRecords() {
	excess := len(s.records) - maxMutationRecords
	if excess <= 0 {
		return
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if excess > 0 && r.Status != MutationPending {
			excess--
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
}

// tempID returns a placeholder id for an optimistic row the server has not
// named yet. Negative, so it can never collide with a real rowid.
func (s *Store) tempID() int64 {
	s.tempSeq--
	return s.tempSeq
}

// Accessors. Slices are copied out so callers cannot mutate store state.

func (s *Store) Active() []model.List   { s.mu.Lock(); defer s.mu.Unlock(); return copyLists(s.active) }
func (s *Store) Archived() []model.List { s.mu.Lock(); defer s.mu.Unlock(); return copyLists(s.archived) }
func (s *Store) Shared() []model.List   { s.mu.Lock(); defer s.mu.Unlock(); return copyLists(s.shared) }

func (s *Store) Current() *model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Degraded reports whether the last refresh served cached data because the
// server was unreachable.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// LastError returns the most recent failed mutation's error, if any.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Status == MutationFailed {
			return s.records[i].Err
		}
	}
	return nil
}

// Mutations returns a copy of the mutation log.
func (s *Store) Mutations() []Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mutation, len(s.records))
	for i, m := range s.records {
		out[i] = *m
	}
	return out
}

func copyLists(in []model.List) []model.List {
	out := make([]model.List, len(in))
	copy(out, in)
	return out
}

// SetCurrentList selects a list (or deselects with nil). Pure selection: no
// fetch happens here, the caller loads items via LoadCurrent or Refresh.
func (s *Store) SetCurrentList(list *model.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list == nil {
		s.current = nil
		s.items = nil
		return
	}
	if s.current == nil || s.current.ID != list.ID {
		s.items = nil
	}
	cp := *list
	s.current = &cp
}

// LoadCurrent fetches the selected list and its items from the server.
func (s *Store) LoadCurrent(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	id := s.current.ID
	s.mu.Unlock()

	detail, err := s.api.GetList(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return nil
	}
	s.current = detail.List
	s.items = detail.Items
	s.upsertListRow(*detail.List)
	return nil
}

// CreateList optimistically unshifts a placeholder into the active
// collection. On failure the placeholder is removed — the user never saw it
// committed, so there is nothing to roll back to.
func (s *Store) CreateList(ctx context.Context, name, description string) (*model.List, error) {
	s.mu.Lock()
	placeholder := model.List{ID: s.tempID(), OwnerID: s.userID, Name: name, Description: description}
	s.active = append([]model.List{placeholder}, s.active...)
	m := s.begin("create_list")
	s.mu.Unlock()

	created, err := s.api.CreateList(ctx, name, description)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.removeListEverywhere(placeholder.ID)
		s.finish(m, err)
		return nil, err
	}
	for i := range s.active {
		if s.active[i].ID == placeholder.ID {
			s.active[i] = *created
			s.finish(m, nil)
			return created, nil
		}
	}
	// Placeholder already displaced (e.g. by a refresh); upsert the real row.
	s.upsertListRow(*created)
	s.finish(m, nil)
	return created, nil
}

func (s *Store) UpdateList(ctx context.Context, id int64, name, description string) error {
	s.mu.Lock()
	s.applyListFields(id, name, description)
	m := s.begin("update_list")
	s.mu.Unlock()

	updated, err := s.api.UpdateList(ctx, id, name, description)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.finish(m, err)
		return err
	}
	s.upsertListRow(*updated)
	s.finish(m, nil)
	return nil
}

func (s *Store) DeleteList(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.removeListEverywhere(id)
	m := s.begin("delete_list")
	s.mu.Unlock()

	err := s.api.DeleteList(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(m, err)
	return err
}

func (s *Store) ArchiveList(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.moveToArchived(id)
	m := s.begin("archive_list")
	s.mu.Unlock()

	updated, err := s.api.ArchiveList(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.finish(m, err)
		return err
	}
	s.upsertListRow(*updated)
	s.finish(m, nil)
	return nil
}

// CompleteList marks every item purchased and moves the list from active to
// archived in one locked step — observers never see the list in neither
// collection.
func (s *Store) CompleteList(ctx context.Context, id int64) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		for i := range s.items {
			s.items[i].IsPurchased = true
		}
		s.recountCurrent()
	}
	s.moveToArchived(id)
	m := s.begin("complete_list")
	s.mu.Unlock()

	updated, err := s.api.CompleteList(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.finish(m, err)
		return err
	}
	s.upsertListRow(*updated)
	s.finish(m, nil)
	return nil
}

func (s *Store) AddItem(ctx context.Context, listID int64, fields client.ItemFields) error {
	s.mu.Lock()
	var tempID int64
	if s.current != nil && s.current.ID == listID {
		tempID = s.tempID()
		s.items = append(s.items, model.Item{
			ID:       tempID,
			ListID:   listID,
			Name:     fields.Name,
			Quantity: fields.Quantity,
			Unit:     fields.Unit,
			Category: fields.Category,
			Priority: fields.Priority,
		})
		s.recountCurrent()
	}
	m := s.begin("add_item")
	s.mu.Unlock()

	created, err := s.api.CreateItem(ctx, listID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if tempID != 0 {
			s.removeItem(tempID)
			s.recountCurrent()
		}
		s.finish(m, err)
		return err
	}
	if tempID != 0 {
		s.removeItem(tempID)
	}
	if s.current != nil && s.current.ID == listID {
		s.upsertItemRow(*created)
		s.recountCurrent()
	}
	s.finish(m, nil)
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, listID, itemID int64, fields client.ItemFields) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == listID {
		for i := range s.items {
			if s.items[i].ID == itemID {
				s.items[i].Name = fields.Name
				s.items[i].Quantity = fields.Quantity
				s.items[i].Unit = fields.Unit
				s.items[i].Category = fields.Category
				s.items[i].Notes = fields.Notes
				s.items[i].Priority = fields.Priority
				break
			}
		}
	}
	m := s.begin("update_item")
	s.mu.Unlock()

	updated, err := s.api.UpdateItem(ctx, listID, itemID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.finish(m, err)
		return err
	}
	if s.current != nil && s.current.ID == listID {
		s.upsertItemRow(*updated)
		s.recountCurrent()
	}
	s.finish(m, nil)
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, listID, itemID int64) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == listID {
		s.removeItem(itemID)
		s.recountCurrent()
	}
	m := s.begin("delete_item")
	s.mu.Unlock()

	err := s.api.DeleteItem(ctx, listID, itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(m, err)
	return err
}

func (s *Store) TogglePurchased(ctx context.Context, listID, itemID int64) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == listID {
		for i := range s.items {
			if s.items[i].ID == itemID {
				s.items[i].IsPurchased = !s.items[i].IsPurchased
				break
			}
		}
		s.recountCurrent()
	}
	m := s.begin("toggle_purchased")
	s.mu.Unlock()

	updated, err := s.api.ToggleItemPurchased(ctx, listID, itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.finish(m, err)
		return err
	}
	if s.current != nil && s.current.ID == listID {
		s.upsertItemRow(*updated)
		s.recountCurrent()
	}
	s.finish(m, nil)
	return nil
}

// snapshot is the cached shape written after each successful refresh.
type snapshot struct {
	Active   []model.List `json:"active"`
	Archived []model.List `json:"archived"`
	Shared   []model.List `json:"shared"`
	Current  *model.List  `json:"current"`
	Items    []model.Item `json:"items"`
}

func (s *Store) snapshotKey() string {
	return fmt.Sprintf("snapshot:%d", s.userID)
}

// Refresh re-fetches everything from the server. On transport failure it
// falls back to the last cached snapshot for reads and sets the degraded
// flag; the error is returned only when the cache is empty too.
func (s *Store) Refresh(ctx context.Context) error {
	cols, err := s.api.Lists(ctx)
	if err != nil {
		return s.loadFromCache(err)
	}

	var detail *client.ListDetail
	if cur := s.Current(); cur != nil && cur.ID > 0 {
		detail, err = s.api.GetList(ctx, cur.ID)
		if err != nil {
			detail = nil
		}
	}

	s.mu.Lock()
	s.active = cols.Active
	s.archived = cols.Archived
	s.shared = cols.Shared
	if detail != nil && s.current != nil && detail.List.ID == s.current.ID {
		s.current = detail.List
		s.items = detail.Items
	}
	s.degraded = false
	snap := snapshot{
		Active:   s.active,
		Archived: s.archived,
		Shared:   s.shared,
		Current:  s.current,
		Items:    s.items,
	}
	key := s.snapshotKey()
	s.mu.Unlock()

	if s.snaps != nil {
		data, err := json.Marshal(snap)
		if err == nil {
			if err := s.snaps.Put(key, data); err != nil {
				s.logger.Warn("snapshot write failed", "error", err)
			}
		}
	}
	return nil
}

func (s *Store) loadFromCache(cause error) error {
	if s.snaps == nil {
		return cause
	}
	data, err := s.snaps.Get(s.snapshotKey())
	if err != nil || data == nil {
		return cause
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cause
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = snap.Active
	s.archived = snap.Archived
	s.shared = snap.Shared
	s.current = snap.Current
	s.items = snap.Items
	s.degraded = true
	s.logger.Warn("serving cached snapshot", "error", cause)
	return nil
}

// Apply dispatches a remote change-feed event through the reducers. Events
// are idempotent: re-applying an upsert or delete for the same row is a
// no-op.
func (s *Store) Apply(ev feed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case feed.ListEvent:
		if e.Op == feed.OpDelete {
			s.removeListEverywhere(e.ID)
			return
		}
		s.upsertListRow(*e.List)
	case feed.ItemEvent:
		if s.current == nil || s.current.ID != e.ListID {
			return
		}
		if e.Op == feed.OpDelete {
			s.removeItem(e.ID)
		} else {
			s.upsertItemRow(*e.Item)
		}
		s.recountCurrent()
	}
}

// Reducers below assume the lock is held.

// upsertListRow routes the row into the collection it belongs to and removes
// it from the others. Shared means owned by someone else.
func (s *Store) upsertListRow(l model.List) {
	s.active = removeList(s.active, l.ID)
	s.archived = removeList(s.archived, l.ID)
	s.shared = removeList(s.shared, l.ID)

	switch {
	case l.OwnerID != s.userID:
		s.shared = append([]model.List{l}, s.shared...)
	case l.IsArchived:
		s.archived = append([]model.List{l}, s.archived...)
	default:
		s.active = append([]model.List{l}, s.active...)
	}

	if s.current != nil && s.current.ID == l.ID {
		cp := l
		s.current = &cp
	}
}

func (s *Store) applyListFields(id int64, name, description string) {
	apply := func(lists []model.List) {
		for i := range lists {
			if lists[i].ID == id {
				lists[i].Name = name
				lists[i].Description = description
			}
		}
	}
	apply(s.active)
	apply(s.archived)
	apply(s.shared)
	if s.current != nil && s.current.ID == id {
		s.current.Name = name
		s.current.Description = description
	}
}

func (s *Store) removeListEverywhere(id int64) {
	s.active = removeList(s.active, id)
	s.archived = removeList(s.archived, id)
	s.shared = removeList(s.shared, id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.items = nil
	}
}

func (s *Store) moveToArchived(id int64) {
	for i := range s.active {
		if s.active[i].ID == id {
			l := s.active[i]
			l.IsArchived = true
			s.active = removeList(s.active, id)
			s.archived = append([]model.List{l}, s.archived...)
			if s.current != nil && s.current.ID == id {
				s.current.IsArchived = true
			}
			return
		}
	}
}

func (s *Store) upsertItemRow(item model.Item) {
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

func (s *Store) removeItem(id int64) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// recountCurrent re-derives the current list's counts from the item slice.
// The counts are a summary of the items and are never adjusted independently.
func (s *Store) recountCurrent() {
	if s.current == nil {
		return
	}
	purchased := 0
	for i := range s.items {
		if s.items[i].IsPurchased {
			purchased++
		}
	}
	s.current.ItemCount = len(s.items)
	s.current.PurchasedCount = purchased

	mirror := func(lists []model.List) {
		for i := range lists {
			if lists[i].ID == s.current.ID {
				lists[i].ItemCount = s.current.ItemCount
				lists[i].PurchasedCount = s.current.PurchasedCount
			}
		}
	}
	mirror(s.active)
	mirror(s.archived)
	mirror(s.shared)
}

func removeList(lists []model.List, id int64) []model.List {
	for i := range lists {
		if lists[i].ID == id {
			return append(lists[:i:i], lists[i+1:]...)
		}
	}
	return lists
}
