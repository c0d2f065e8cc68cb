package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/store"
)

// Share-link expiration bounds, in seconds. Out-of-range requests fail
// validation instead of being clamped.
const (
	minShareExpiry     = 3600
	maxShareExpiry     = 365 * 24 * 3600
	defaultShareExpiry = 30 * 24 * 3600
)

type ShareHandler struct {
	lists   *store.ListStore
	items   *store.ItemStore
	links   *store.SharedLinkStore
	baseURL string
	logger  *slog.Logger
}

func NewShareHandler(lists *store.ListStore, items *store.ItemStore, links *store.SharedLinkStore, baseURL string, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{lists: lists, items: items, links: links, baseURL: baseURL, logger: logger}
}

// requireOwner checks ownership against the list row directly, not the
// collaborator table.
func (h *ShareHandler) requireOwner(r *http.Request, userID int64) (*model.List, error) {
	listID, err := parseListID(r)
	if err != nil {
		return nil, err
	}
	list, err := h.lists.GetByID(listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, apperror.New(apperror.CodeListNotFound, "list not found")
	}
	if list.OwnerID != userID {
		return nil, apperror.New(apperror.CodePermissionDenied, "only the owner can manage share links")
	}
	return list, nil
}

type shareRequest struct {
	ExpiresIn *int64 `json:"expires_in"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	list, err := h.requireOwner(r, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// An empty body means "use the default expiration".
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	expiresIn := int64(defaultShareExpiry)
	if req.ExpiresIn != nil {
		expiresIn = *req.ExpiresIn
	}
	if expiresIn < minShareExpiry || expiresIn > maxShareExpiry {
		writeError(w, h.logger, apperror.New(apperror.CodeInvalidExpiration,
			fmt.Sprintf("expires_in must be between %d and %d seconds", minShareExpiry, maxShareExpiry)))
		return
	}

	expiresAt := time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
	link, err := h.links.Create(list.ID, &expiresAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"share_url":  h.baseURL + "/shared-lists/" + link.Token,
		"expires_at": link.ExpiresAt,
		"list_name":  list.Name,
		"token":      link.Token,
	})
}

// Revoke deactivates every active link for the list, immediately and
// regardless of expiration.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	list, err := h.requireOwner(r, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	count, err := h.links.DeactivateForList(list.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": count})
}

// View is the public, unauthenticated read of a shared list. A deactivated
// token answers 404 even when its expiration has also passed; only a live,
// past-expiry link answers 410.
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, h.logger, apperror.New(apperror.CodeTokenNotFound, "share link not found"))
		return
	}

	link, err := h.links.GetActiveByToken(token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if link == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeTokenNotFound, "share link not found"))
		return
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		writeError(w, h.logger, apperror.New(apperror.CodeTokenExpired, "share link has expired"))
		return
	}

	list, err := h.lists.GetByID(link.ListID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeTokenNotFound, "share link not found"))
		return
	}

	items, err := h.items.ListByList(list.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view := model.SharedListView{
		Name:        list.Name,
		Description: list.Description,
		Items:       make([]model.SharedItem, 0, len(items)),
	}
	for _, item := range items {
		shared := model.SharedItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Category:    item.Category,
			IsPurchased: item.IsPurchased,
			Priority:    item.Priority,
		}
		if !item.NotesPrivate {
			shared.Notes = item.Notes
		}
		view.Items = append(view.Items, shared)
	}
	writeJSON(w, http.StatusOK, view)
}
