// Package feed defines the row-level change events pushed to clients over the
// WebSocket channel. The event space is closed: {insert, update, delete} over
// {list, item}. Anything else fails to decode, so adding an entity type is a
// deliberate, compile-visible change rather than a stringly-typed one.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/mwilkes/basket/internal/model"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func validOp(op Op) bool {
	return op == OpInsert || op == OpUpdate || op == OpDelete
}

// Event is the closed set of change-feed events. Only ListEvent and ItemEvent
// implement it.
type Event interface {
	isEvent()
}

// ListEvent carries a list-row change. List is nil for deletes; ID is always
// set.
type ListEvent struct {
	Op   Op
	ID   int64
	List *model.List
}

// ItemEvent carries an item-row change. Item is nil for deletes; ID and
// ListID are always set.
type ItemEvent struct {
	Op     Op
	ID     int64
	ListID int64
	Item   *model.Item
}

func (ListEvent) isEvent() {}
func (ItemEvent) isEvent() {}

// wire is the JSON envelope. Row is omitted for deletes.
type wire struct {
	Entity string          `json:"entity"`
	Op     Op              `json:"op"`
	ID     int64           `json:"id"`
	ListID int64           `json:"list_id,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
}

func Encode(ev Event) ([]byte, error) {
	var w wire
	switch e := ev.(type) {
	case ListEvent:
		w = wire{Entity: "list", Op: e.Op, ID: e.ID}
		if e.List != nil {
			row, err := json.Marshal(e.List)
			if err != nil {
				return nil, fmt.Errorf("feed: marshal list row: %w", err)
			}
			w.Row = row
		}
	case ItemEvent:
		w = wire{Entity: "item", Op: e.Op, ID: e.ID, ListID: e.ListID}
		if e.Item != nil {
			row, err := json.Marshal(e.Item)
			if err != nil {
				return nil, fmt.Errorf("feed: marshal item row: %w", err)
			}
			w.Row = row
		}
	default:
		return nil, fmt.Errorf("feed: unknown event type %T", ev)
	}
	return json.Marshal(w)
}

// Decode parses a wire envelope back into an Event. Unknown entities or ops
// are rejected, as are upserts without a row payload.
func Decode(data []byte) (Event, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("feed: decode envelope: %w", err)
	}
	if !validOp(w.Op) {
		return nil, fmt.Errorf("feed: unknown op %q", w.Op)
	}

	switch w.Entity {
	case "list":
		ev := ListEvent{Op: w.Op, ID: w.ID}
		if w.Op != OpDelete {
			if w.Row == nil {
				return nil, fmt.Errorf("feed: list %s without row", w.Op)
			}
			var l model.List
			if err := json.Unmarshal(w.Row, &l); err != nil {
				return nil, fmt.Errorf("feed: decode list row: %w", err)
			}
			ev.List = &l
			ev.ID = l.ID
		}
		return ev, nil
	case "item":
		ev := ItemEvent{Op: w.Op, ID: w.ID, ListID: w.ListID}
		if w.Op != OpDelete {
			if w.Row == nil {
				return nil, fmt.Errorf("feed: item %s without row", w.Op)
			}
			var it model.Item
			if err := json.Unmarshal(w.Row, &it); err != nil {
				return nil, fmt.Errorf("feed: decode item row: %w", err)
			}
			ev.Item = &it
			ev.ID = it.ID
			ev.ListID = it.ListID
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("feed: unknown entity %q", w.Entity)
	}
}
