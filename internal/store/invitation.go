package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwilkes/basket/internal/model"
)

// invitationTTL is the fixed expiration window for new invitations.
const invitationTTL = 14 * 24 * time.Hour

// ErrDuplicatePending is returned when a pending, unexpired invitation
// already exists for the (list, email) pair. The partial unique index on the
// invitations table is authoritative; concurrent creates race to it and the
// loser gets this error.
var ErrDuplicatePending = errors.New("pending invitation already exists")

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

func scanInvitation(scanner interface{ Scan(...any) error }) (*model.Invitation, error) {
	var inv model.Invitation
	err := scanner.Scan(
		&inv.ID, &inv.ListID, &inv.InviterID, &inv.Email, &inv.Role,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const invitationCols = `id, list_id, inviter_id, email, role, status, expires_at, created_at`

// Create inserts a pending invitation with the fixed expiration window.
// A stale pending row for the same pair is flipped to expired first (lazy
// expiration — there is no background sweep), so only a live pending row
// blocks the insert.
func (s *InvitationStore) Create(listID, inviterID int64, email, role string) (*model.Invitation, error) {
	_, err := s.db.Exec(
		`UPDATE invitations SET status = ?
		 WHERE list_id = ? AND email = ? AND status = ? AND expires_at <= datetime('now')`,
		model.InvitationExpired, listID, email, model.InvitationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("expire stale invitations: %w", err)
	}

	expiresAt := time.Now().UTC().Add(invitationTTL)
	result, err := s.db.Exec(
		`INSERT INTO invitations (list_id, inviter_id, email, role, expires_at) VALUES (?, ?, ?, ?, ?)`,
		listID, inviterID, email, role, expiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InvitationStore) GetByID(id int64) (*model.Invitation, error) {
	row := s.db.QueryRow(`SELECT `+invitationCols+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListPendingForEmail returns the live pending invitations addressed to the
// email, skipping rows past their expiration.
func (s *InvitationStore) ListPendingForEmail(email string) ([]model.Invitation, error) {
	rows, err := s.db.Query(
		`SELECT `+invitationCols+` FROM invitations
		 WHERE email = ? AND status = ? AND expires_at > datetime('now')
		 ORDER BY created_at DESC`,
		email, model.InvitationPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invs []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, *inv)
	}
	return invs, rows.Err()
}

func (s *InvitationStore) MarkAccepted(id int64) error {
	_, err := s.db.Exec(
		`UPDATE invitations SET status = ? WHERE id = ?`,
		model.InvitationAccepted, id,
	)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
