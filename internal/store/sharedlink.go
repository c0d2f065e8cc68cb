package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mwilkes/basket/internal/model"
)

type SharedLinkStore struct {
	db *sql.DB
}

func NewSharedLinkStore(db *sql.DB) *SharedLinkStore {
	return &SharedLinkStore{db: db}
}

func scanSharedLink(scanner interface{ Scan(...any) error }) (*model.SharedLink, error) {
	var link model.SharedLink
	var active int
	var expiresAt sql.NullTime

	err := scanner.Scan(&link.ID, &link.ListID, &link.Token, &active, &expiresAt, &link.CreatedAt)
	if err != nil {
		return nil, err
	}

	link.IsActive = active != 0
	if expiresAt.Valid {
		link.ExpiresAt = &expiresAt.Time
	}
	return &link, nil
}

const sharedLinkCols = `id, list_id, token, is_active, expires_at, created_at`

// generateToken returns 32 bytes from crypto/rand, hex-encoded. Tokens are
// never derived from the list id or the clock.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues a new share link for the list. A nil expiresAt means the link
// never expires.
func (s *SharedLinkStore) Create(listID int64, expiresAt *time.Time) (*model.SharedLink, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO shared_links (list_id, token, expires_at) VALUES (?, ?, ?)`,
		listID, token, exp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shared link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sharedLinkCols+` FROM shared_links WHERE id = ?`, id)
	return scanSharedLink(row)
}

// GetActiveByToken returns the active link matching the token, or nil if no
// active row matches. Deactivated links are indistinguishable from unknown
// tokens here; expiry is the caller's check so it can answer EXPIRED rather
// than NOT_FOUND.
func (s *SharedLinkStore) GetActiveByToken(token string) (*model.SharedLink, error) {
	row := s.db.QueryRow(
		`SELECT `+sharedLinkCols+` FROM shared_links WHERE token = ? AND is_active = 1`,
		token,
	)
	link, err := scanSharedLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shared link: %w", err)
	}
	return link, nil
}

// DeactivateForList turns off every active link for the list, immediately and
// regardless of expiration. Returns the number of links deactivated.
func (s *SharedLinkStore) DeactivateForList(listID int64) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE shared_links SET is_active = 0 WHERE list_id = ? AND is_active = 1`,
		listID,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate shared links: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
