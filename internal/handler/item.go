package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/category"
	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/permission"
	"github.com/mwilkes/basket/internal/store"
)

type ItemHandler struct {
	items  *store.ItemStore
	perms  *permission.Service
	pub    *Publisher
	logger *slog.Logger
}

func NewItemHandler(is *store.ItemStore, perms *permission.Service, pub *Publisher, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: is, perms: perms, pub: pub, logger: logger}
}

type itemRequest struct {
	Name         string   `json:"name"`
	Quantity     float64  `json:"quantity"`
	Unit         string   `json:"unit"`
	Category     string   `json:"category"`
	Notes        string   `json:"notes"`
	NotesPrivate bool     `json:"notes_private"`
	Store        string   `json:"store"`
	Brand        string   `json:"brand"`
	Price        *float64 `json:"price"`
	PricePerUnit bool     `json:"price_per_unit"`
	Priority     string   `json:"priority"`
}

func (r *itemRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperror.New(apperror.CodeParametersRequired, "name is required")
	}
	if r.Quantity < 0 {
		return apperror.New(apperror.CodeParametersRequired, "quantity must not be negative")
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if !model.ValidUnit(r.Unit) {
		return apperror.New(apperror.CodeParametersRequired, "unknown unit")
	}
	if !model.ValidCategory(r.Category) {
		return apperror.New(apperror.CodeParametersRequired, "unknown category")
	}
	if !model.ValidPriority(r.Priority) {
		return apperror.New(apperror.CodeParametersRequired, "unknown priority")
	}
	if r.Price != nil && *r.Price < 0 {
		return apperror.New(apperror.CodeParametersRequired, "price must not be negative")
	}
	if r.Category == "" {
		r.Category = category.Guess(r.Name)
	}
	return nil
}

func (r *itemRequest) params() store.ItemParams {
	return store.ItemParams{
		Name:         r.Name,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		Category:     r.Category,
		Notes:        r.Notes,
		NotesPrivate: r.NotesPrivate,
		Store:        r.Store,
		Brand:        r.Brand,
		Price:        r.Price,
		PricePerUnit: r.PricePerUnit,
		Priority:     r.Priority,
	}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionEditItems); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.items.Create(listID, req.params())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.itemChanged(feed.OpInsert, item)
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionView); err != nil {
		writeError(w, h.logger, err)
		return
	}

	items, err := h.items.ListByList(listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// getListItem loads the item and checks it belongs to the list in the path.
func (h *ItemHandler) getListItem(r *http.Request, listID int64) (*model.Item, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, apperror.New(apperror.CodeItemNotFound, "invalid item id")
	}
	item, err := h.items.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.ListID != listID {
		return nil, apperror.New(apperror.CodeItemNotFound, "item not found")
	}
	return item, nil
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionEditItems); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.getListItem(r, listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}
	if req.Category == "" {
		req.Category = existing.Category
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.items.Update(existing.ID, req.params())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.itemChanged(feed.OpUpdate, item)
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionEditItems); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.getListItem(r, listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.items.Delete(item.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.itemDeleted(item.ID, listID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) TogglePurchased(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionEditItems); err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.getListItem(r, listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.items.TogglePurchased(existing.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if item == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeItemNotFound, "item not found"))
		return
	}

	h.pub.itemChanged(feed.OpUpdate, item)
	writeJSON(w, http.StatusOK, item)
}
