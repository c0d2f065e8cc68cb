package store

import "testing"

func TestItemCountsRecomputedOnEveryWrite(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	ls := NewListStore(db)
	is := NewItemStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")

	milk, err := is.Create(list.ID, ItemParams{Name: "Milk", Quantity: 1, Unit: "l"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	eggs, _ := is.Create(list.ID, ItemParams{Name: "Eggs", Quantity: 12})

	list, _ = ls.GetByID(list.ID)
	if list.ItemCount != 2 || list.PurchasedCount != 0 {
		t.Errorf("counts = %d/%d, want 2/0", list.ItemCount, list.PurchasedCount)
	}

	toggled, err := is.TogglePurchased(milk.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.IsPurchased {
		t.Error("expected purchased after toggle")
	}
	if toggled.PurchasedAt == nil {
		t.Error("expected purchased_at to be set")
	}

	list, _ = ls.GetByID(list.ID)
	if list.PurchasedCount != 1 {
		t.Errorf("purchased_count = %d, want 1", list.PurchasedCount)
	}

	// Toggling back clears the timestamp and the count.
	toggled, _ = is.TogglePurchased(milk.ID)
	if toggled.IsPurchased || toggled.PurchasedAt != nil {
		t.Error("expected unpurchased with nil purchased_at after second toggle")
	}
	list, _ = ls.GetByID(list.ID)
	if list.PurchasedCount != 0 {
		t.Errorf("purchased_count = %d, want 0", list.PurchasedCount)
	}

	if err := is.Delete(eggs.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	list, _ = ls.GetByID(list.ID)
	if list.ItemCount != 1 {
		t.Errorf("item_count = %d, want 1", list.ItemCount)
	}
}

func TestPurchaseAll(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	ls := NewListStore(db)
	is := NewItemStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")
	is.Create(list.ID, ItemParams{Name: "Milk", Quantity: 1})
	is.Create(list.ID, ItemParams{Name: "Eggs", Quantity: 12})
	is.Create(list.ID, ItemParams{Name: "Bread", Quantity: 1})

	if err := is.PurchaseAll(list.ID); err != nil {
		t.Fatalf("purchase all: %v", err)
	}

	items, _ := is.ListByList(list.ID)
	for _, item := range items {
		if !item.IsPurchased {
			t.Errorf("item %q not purchased", item.Name)
		}
	}

	list, _ = ls.GetByID(list.ID)
	if list.PurchasedCount != 3 || list.ItemCount != 3 {
		t.Errorf("counts = %d/%d, want 3/3", list.PurchasedCount, list.ItemCount)
	}
}

func TestItemUpdateFields(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	ls := NewListStore(db)
	is := NewItemStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")
	price := 3.49
	item, err := is.Create(list.ID, ItemParams{
		Name: "Milk", Quantity: 1, Unit: "l", Category: "Dairy",
		Notes: "whole", Price: &price, Priority: "medium",
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Price == nil || *item.Price != 3.49 {
		t.Errorf("price = %v, want 3.49", item.Price)
	}

	updated, err := is.Update(item.ID, ItemParams{
		Name: "Oat Milk", Quantity: 2, Unit: "l", Category: "Dairy",
		NotesPrivate: true, Notes: "for me", Priority: "high",
	})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Name != "Oat Milk" || updated.Quantity != 2 {
		t.Errorf("got %q/%g, want Oat Milk/2", updated.Name, updated.Quantity)
	}
	if updated.Price != nil {
		t.Error("price should clear when omitted from the update")
	}
	if !updated.NotesPrivate {
		t.Error("notes_private should be set")
	}

	missing, err := is.Update(99999, ItemParams{Name: "Ghost"})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Error("updating a missing item should return nil")
	}
}
