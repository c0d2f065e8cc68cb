package store

import (
	"database/sql"
	"fmt"

	"github.com/mwilkes/basket/internal/model"
)

type CollaboratorStore struct {
	db *sql.DB
}

func NewCollaboratorStore(db *sql.DB) *CollaboratorStore {
	return &CollaboratorStore{db: db}
}

func scanCollaborator(scanner interface{ Scan(...any) error }) (*model.Collaborator, error) {
	var c model.Collaborator
	err := scanner.Scan(&c.ID, &c.ListID, &c.UserID, &c.Role, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const collaboratorCols = `id, list_id, user_id, role, created_at`

func (s *CollaboratorStore) Get(listID, userID int64) (*model.Collaborator, error) {
	row := s.db.QueryRow(
		`SELECT `+collaboratorCols+` FROM collaborators WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	)
	c, err := scanCollaborator(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collaborator: %w", err)
	}
	return c, nil
}

func (s *CollaboratorStore) ListByList(listID int64) ([]model.CollaboratorWithUser, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.list_id, c.user_id, c.role, c.created_at, u.email, u.name
		 FROM collaborators c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.list_id = ?
		 ORDER BY c.created_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	var collabs []model.CollaboratorWithUser
	for rows.Next() {
		var c model.CollaboratorWithUser
		if err := rows.Scan(&c.ID, &c.ListID, &c.UserID, &c.Role, &c.CreatedAt, &c.Email, &c.Name); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		collabs = append(collabs, c)
	}
	return collabs, rows.Err()
}

// ListUserIDs returns the user ids of every collaborator on the list,
// owner included. Used to scope change-feed delivery.
func (s *CollaboratorStore) ListUserIDs(listID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM collaborators WHERE list_id = ?`, listID)
	if err != nil {
		return nil, fmt.Errorf("list collaborator ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collaborator id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add inserts a non-owner collaborator and recomputes the list's
// collaborative flag in the same transaction. Returns (nil, nil) when the
// user already collaborates on the list.
func (s *CollaboratorStore) Add(listID, userID int64, role string) (*model.Collaborator, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT OR IGNORE INTO collaborators (list_id, user_id, role) VALUES (?, ?, ?)`,
		listID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert collaborator: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if err := recomputeCollaborative(tx, listID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.Get(listID, userID)
}

func (s *CollaboratorStore) UpdateRole(listID, userID int64, role string) (*model.Collaborator, error) {
	_, err := s.db.Exec(
		`UPDATE collaborators SET role = ? WHERE list_id = ? AND user_id = ?`,
		role, listID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update collaborator role: %w", err)
	}
	return s.Get(listID, userID)
}

// Remove deletes a collaborator row and recomputes the list's collaborative
// flag in the same transaction. The flag flips to false when the last
// non-owner collaborator goes.
func (s *CollaboratorStore) Remove(listID, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM collaborators WHERE list_id = ? AND user_id = ?`,
		listID, userID,
	); err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}

	if err := recomputeCollaborative(tx, listID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// recomputeCollaborative re-derives is_collaborative from the collaborator
// rows instead of toggling it in place. Cross-row invariants are recomputed
// defensively, never assumed.
func recomputeCollaborative(tx *sql.Tx, listID int64) error {
	_, err := tx.Exec(
		`UPDATE lists SET
		   is_collaborative = EXISTS (
		     SELECT 1 FROM collaborators WHERE list_id = ? AND role != ?
		   ),
		   updated_at = datetime('now')
		 WHERE id = ?`,
		listID, model.RoleOwner, listID,
	)
	if err != nil {
		return fmt.Errorf("recompute collaborative: %w", err)
	}
	return nil
}
