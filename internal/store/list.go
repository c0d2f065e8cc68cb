package store

import (
	"database/sql"
	"fmt"

	"github.com/mwilkes/basket/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	var archived, collaborative int
	err := scanner.Scan(
		&l.ID, &l.OwnerID, &l.Name, &l.Description, &archived, &collaborative,
		&l.ItemCount, &l.PurchasedCount, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.IsArchived = archived != 0
	l.IsCollaborative = collaborative != 0
	return &l, nil
}

const listCols = `id, owner_id, name, description, is_archived, is_collaborative, item_count, purchased_count, created_at, updated_at`

// Create inserts a list and its owner collaborator row in one transaction.
// Every list has exactly one owner row for its whole lifetime.
func (s *ListStore) Create(ownerID int64, name, description string) (*model.List, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO lists (owner_id, name, description) VALUES (?, ?, ?)`,
		ownerID, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO collaborators (list_id, user_id, role) VALUES (?, ?, ?)`,
		id, ownerID, model.RoleOwner,
	); err != nil {
		return nil, fmt.Errorf("insert owner collaborator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) GetByID(id int64) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	return l, nil
}

func (s *ListStore) Update(id int64, name, description string) (*model.List, error) {
	_, err := s.db.Exec(
		`UPDATE lists SET name = ?, description = ?, updated_at = datetime('now') WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListStore) SetArchived(id int64, archived bool) (*model.List, error) {
	_, err := s.db.Exec(
		`UPDATE lists SET is_archived = ?, updated_at = datetime('now') WHERE id = ?`,
		boolToInt(archived), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set archived: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the list. Items, collaborators, invitations, and share links
// go with it via ON DELETE CASCADE.
func (s *ListStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// ListOwned returns the lists owned by the user, filtered by archived state.
func (s *ListStore) ListOwned(ownerID int64, archived bool) ([]model.List, error) {
	rows, err := s.db.Query(
		`SELECT `+listCols+` FROM lists WHERE owner_id = ? AND is_archived = ? ORDER BY updated_at DESC`,
		ownerID, boolToInt(archived),
	)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	return collectLists(rows)
}

// ListSharedWith returns lists where the user is a non-owner collaborator.
func (s *ListStore) ListSharedWith(userID int64) ([]model.List, error) {
	rows, err := s.db.Query(
		`SELECT l.id, l.owner_id, l.name, l.description, l.is_archived, l.is_collaborative,
		        l.item_count, l.purchased_count, l.created_at, l.updated_at
		 FROM lists l
		 JOIN collaborators c ON c.list_id = l.id
		 WHERE c.user_id = ? AND c.role != ?
		 ORDER BY l.updated_at DESC`,
		userID, model.RoleOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("list shared: %w", err)
	}
	return collectLists(rows)
}

// Summary is the dashboard read model: collection sizes plus open items
// across the user's active lists.
type Summary struct {
	ActiveLists   int `json:"active_lists"`
	ArchivedLists int `json:"archived_lists"`
	SharedLists   int `json:"shared_lists"`
	OpenItems     int `json:"open_items"`
}

func (s *ListStore) SummaryForUser(userID int64) (*Summary, error) {
	var sum Summary
	err := s.db.QueryRow(
		`SELECT
		   (SELECT COUNT(*) FROM lists WHERE owner_id = ? AND is_archived = 0),
		   (SELECT COUNT(*) FROM lists WHERE owner_id = ? AND is_archived = 1),
		   (SELECT COUNT(*) FROM collaborators WHERE user_id = ? AND role != ?),
		   (SELECT COUNT(*) FROM items i JOIN lists l ON l.id = i.list_id
		    WHERE l.owner_id = ? AND l.is_archived = 0 AND i.is_purchased = 0)`,
		userID, userID, userID, model.RoleOwner, userID,
	).Scan(&sum.ActiveLists, &sum.ArchivedLists, &sum.SharedLists, &sum.OpenItems)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &sum, nil
}

func collectLists(rows *sql.Rows) ([]model.List, error) {
	defer rows.Close()

	var lists []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
