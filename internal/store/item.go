package store

import (
	"database/sql"
	"fmt"

	"github.com/mwilkes/basket/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// ItemParams carries the writable item fields for create and update.
type ItemParams struct {
	Name         string
	Quantity     float64
	Unit         string
	Category     string
	Notes        string
	NotesPrivate bool
	Store        string
	Brand        string
	Price        *float64
	PricePerUnit bool
	Priority     string
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var notesPrivate, pricePerUnit, purchased int
	var price sql.NullFloat64
	var purchasedAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
		&item.Category, &item.Notes, &notesPrivate, &item.Store, &item.Brand,
		&price, &pricePerUnit, &purchased, &item.Priority, &purchasedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.NotesPrivate = notesPrivate != 0
	item.PricePerUnit = pricePerUnit != 0
	item.IsPurchased = purchased != 0
	if price.Valid {
		item.Price = &price.Float64
	}
	if purchasedAt.Valid {
		item.PurchasedAt = &purchasedAt.Time
	}
	return &item, nil
}

const itemCols = `id, list_id, name, quantity, unit, category, notes, notes_private, store, brand, price, price_per_unit, is_purchased, priority, purchased_at, created_at, updated_at`

func (s *ItemStore) GetByID(id int64) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) ListByList(listID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE list_id = ? ORDER BY is_purchased ASC, category ASC, created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Create inserts an item and refreshes the parent list's denormalized counts
// in the same transaction.
func (s *ItemStore) Create(listID int64, p ItemParams) (*model.Item, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO items (list_id, name, quantity, unit, category, notes, notes_private, store, brand, price, price_per_unit, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listID, p.Name, p.Quantity, p.Unit, p.Category, p.Notes, boolToInt(p.NotesPrivate),
		p.Store, p.Brand, nullFloat(p.Price), boolToInt(p.PricePerUnit), p.Priority,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := recountList(tx, listID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Update(id int64, p ItemParams) (*model.Item, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	_, err = s.db.Exec(
		`UPDATE items SET name = ?, quantity = ?, unit = ?, category = ?, notes = ?, notes_private = ?,
		        store = ?, brand = ?, price = ?, price_per_unit = ?, priority = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		p.Name, p.Quantity, p.Unit, p.Category, p.Notes, boolToInt(p.NotesPrivate),
		p.Store, p.Brand, nullFloat(p.Price), boolToInt(p.PricePerUnit), p.Priority, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the item and refreshes the parent list's counts in the same
// transaction.
func (s *ItemStore) Delete(id int64) error {
	existing, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := recountList(tx, existing.ListID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TogglePurchased flips the purchased flag and refreshes the parent list's
// counts in the same transaction. Returns nil if the item does not exist.
func (s *ItemStore) TogglePurchased(id int64) (*model.Item, error) {
	item, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if item.IsPurchased {
		_, err = tx.Exec(
			`UPDATE items SET is_purchased = 0, purchased_at = NULL, updated_at = datetime('now') WHERE id = ?`,
			id,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE items SET is_purchased = 1, purchased_at = datetime('now'), updated_at = datetime('now') WHERE id = ?`,
			id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle purchased: %w", err)
	}

	if err := recountList(tx, item.ListID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// PurchaseAll marks every open item on the list purchased and refreshes the
// counts in the same transaction.
func (s *ItemStore) PurchaseAll(listID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE items SET is_purchased = 1, purchased_at = datetime('now'), updated_at = datetime('now')
		 WHERE list_id = ? AND is_purchased = 0`,
		listID,
	); err != nil {
		return fmt.Errorf("purchase all: %w", err)
	}

	if err := recountList(tx, listID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// recountList re-derives item_count and purchased_count from the items table.
// The counts are never incremented in place.
func recountList(tx *sql.Tx, listID int64) error {
	_, err := tx.Exec(
		`UPDATE lists SET
		   item_count = (SELECT COUNT(*) FROM items WHERE list_id = ?),
		   purchased_count = (SELECT COUNT(*) FROM items WHERE list_id = ? AND is_purchased = 1),
		   updated_at = datetime('now')
		 WHERE id = ?`,
		listID, listID, listID,
	)
	if err != nil {
		return fmt.Errorf("recount list: %w", err)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
