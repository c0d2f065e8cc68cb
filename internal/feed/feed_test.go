package feed

import (
	"testing"

	"github.com/mwilkes/basket/internal/model"
)

func TestListEventRoundTrip(t *testing.T) {
	list := &model.List{ID: 7, OwnerID: 1, Name: "Groceries", IsCollaborative: true}

	data, err := Encode(ListEvent{Op: OpUpdate, ID: list.ID, List: list})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	le, ok := ev.(ListEvent)
	if !ok {
		t.Fatalf("decoded %T, want ListEvent", ev)
	}
	if le.Op != OpUpdate || le.ID != 7 {
		t.Errorf("op/id = %q/%d, want update/7", le.Op, le.ID)
	}
	if le.List == nil || le.List.Name != "Groceries" {
		t.Error("row payload not preserved")
	}
}

func TestItemDeleteCarriesNoRow(t *testing.T) {
	data, err := Encode(ItemEvent{Op: OpDelete, ID: 3, ListID: 7})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ie, ok := ev.(ItemEvent)
	if !ok {
		t.Fatalf("decoded %T, want ItemEvent", ev)
	}
	if ie.Item != nil {
		t.Error("delete should carry no row")
	}
	if ie.ID != 3 || ie.ListID != 7 {
		t.Errorf("id/list_id = %d/%d, want 3/7", ie.ID, ie.ListID)
	}
}

func TestDecodeRejectsUnknownShapes(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown entity", `{"entity":"note","op":"insert","id":1,"row":{}}`},
		{"unknown op", `{"entity":"list","op":"upsert","id":1,"row":{}}`},
		{"insert without row", `{"entity":"item","op":"insert","id":1,"list_id":2}`},
		{"update without row", `{"entity":"list","op":"update","id":1}`},
		{"not json", `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.data)); err == nil {
				t.Fatalf("expected decode error for %s", tc.data)
			}
		})
	}
}
