package store

import (
	"database/sql"
	"testing"

	"github.com/mwilkes/basket/internal/database"
	"github.com/mwilkes/basket/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	user, err := NewUserStore(db).Create(email, "Test User", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestListCreateAddsOwnerRow(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	ls := NewListStore(db)
	cs := NewCollaboratorStore(db)

	list, err := ls.Create(owner.ID, "Groceries", "weekly run")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if list.OwnerID != owner.ID {
		t.Errorf("owner_id = %d, want %d", list.OwnerID, owner.ID)
	}
	if list.IsCollaborative {
		t.Error("new list should not be collaborative")
	}

	collab, err := cs.Get(list.ID, owner.ID)
	if err != nil {
		t.Fatalf("get owner collaborator: %v", err)
	}
	if collab == nil {
		t.Fatal("expected owner collaborator row")
	}
	if collab.Role != model.RoleOwner {
		t.Errorf("role = %q, want %q", collab.Role, model.RoleOwner)
	}
}

func TestListOnlyOneOwnerRow(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	ls := NewListStore(db)

	list, err := ls.Create(owner.ID, "Groceries", "")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	// A second owner row for the same list must be rejected by the partial
	// unique index.
	_, err = db.Exec(
		`INSERT INTO collaborators (list_id, user_id, role) VALUES (?, ?, ?)`,
		list.ID, other.ID, model.RoleOwner,
	)
	if err == nil {
		t.Fatal("expected second owner row to violate the unique index")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestCollaborativeFlagFollowsMembership(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	editor := createTestUser(t, db, "editor@example.com")
	ls := NewListStore(db)
	cs := NewCollaboratorStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")

	if _, err := cs.Add(list.ID, editor.ID, model.RoleEditor); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}
	list, _ = ls.GetByID(list.ID)
	if !list.IsCollaborative {
		t.Error("flag should be true after adding a non-owner collaborator")
	}

	if err := cs.Remove(list.ID, editor.ID); err != nil {
		t.Fatalf("remove collaborator: %v", err)
	}
	list, _ = ls.GetByID(list.ID)
	if list.IsCollaborative {
		t.Error("flag should flip back to false when the last non-owner leaves")
	}
}

func TestCollaboratorAddIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	editor := createTestUser(t, db, "editor@example.com")
	ls := NewListStore(db)
	cs := NewCollaboratorStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")

	first, err := cs.Add(list.ID, editor.ID, model.RoleEditor)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first == nil {
		t.Fatal("first add should return the row")
	}

	second, err := cs.Add(list.ID, editor.ID, model.RoleViewer)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second != nil {
		t.Error("repeated add should be a no-op")
	}

	collab, _ := cs.Get(list.ID, editor.ID)
	if collab.Role != model.RoleEditor {
		t.Errorf("role = %q, want original %q", collab.Role, model.RoleEditor)
	}
}

func TestListSharedWithExcludesOwned(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	viewer := createTestUser(t, db, "viewer@example.com")
	ls := NewListStore(db)
	cs := NewCollaboratorStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")
	if _, err := cs.Add(list.ID, viewer.ID, model.RoleViewer); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	ownerShared, err := ls.ListSharedWith(owner.ID)
	if err != nil {
		t.Fatalf("list shared: %v", err)
	}
	if len(ownerShared) != 0 {
		t.Errorf("owner shared count = %d, want 0", len(ownerShared))
	}

	viewerShared, err := ls.ListSharedWith(viewer.ID)
	if err != nil {
		t.Fatalf("list shared: %v", err)
	}
	if len(viewerShared) != 1 {
		t.Fatalf("viewer shared count = %d, want 1", len(viewerShared))
	}
	if viewerShared[0].ID != list.ID {
		t.Errorf("shared list id = %d, want %d", viewerShared[0].ID, list.ID)
	}
}

func TestListDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	ls := NewListStore(db)
	is := NewItemStore(db)

	list, _ := ls.Create(owner.ID, "Groceries", "")
	if _, err := is.Create(list.ID, ItemParams{Name: "Milk", Quantity: 1}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := ls.Delete(list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	var items, collabs int
	db.QueryRow(`SELECT COUNT(*) FROM items WHERE list_id = ?`, list.ID).Scan(&items)
	db.QueryRow(`SELECT COUNT(*) FROM collaborators WHERE list_id = ?`, list.ID).Scan(&collabs)
	if items != 0 || collabs != 0 {
		t.Errorf("after delete: items = %d, collaborators = %d, want 0/0", items, collabs)
	}
}

func TestSummaryForUser(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	friend := createTestUser(t, db, "friend@example.com")
	ls := NewListStore(db)
	is := NewItemStore(db)
	cs := NewCollaboratorStore(db)

	active, _ := ls.Create(owner.ID, "Active", "")
	archived, _ := ls.Create(owner.ID, "Done", "")
	ls.SetArchived(archived.ID, true)

	is.Create(active.ID, ItemParams{Name: "Milk", Quantity: 1})
	item, _ := is.Create(active.ID, ItemParams{Name: "Eggs", Quantity: 1})
	is.TogglePurchased(item.ID)

	theirs, _ := ls.Create(friend.ID, "Theirs", "")
	cs.Add(theirs.ID, owner.ID, model.RoleViewer)

	sum, err := ls.SummaryForUser(owner.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ActiveLists != 1 {
		t.Errorf("active = %d, want 1", sum.ActiveLists)
	}
	if sum.ArchivedLists != 1 {
		t.Errorf("archived = %d, want 1", sum.ArchivedLists)
	}
	if sum.SharedLists != 1 {
		t.Errorf("shared = %d, want 1", sum.SharedLists)
	}
	if sum.OpenItems != 1 {
		t.Errorf("open items = %d, want 1", sum.OpenItems)
	}
}
