package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/permission"
	"github.com/mwilkes/basket/internal/store"
)

type ListHandler struct {
	lists  *store.ListStore
	items  *store.ItemStore
	perms  *permission.Service
	pub    *Publisher
	logger *slog.Logger
}

func NewListHandler(ls *store.ListStore, is *store.ItemStore, perms *permission.Service, pub *Publisher, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: ls, items: is, perms: perms, pub: pub, logger: logger}
}

type listRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "name is required"))
		return
	}

	list, err := h.lists.Create(ac.UserID, req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// collectionsResponse is the full set of list collections the session sees.
type collectionsResponse struct {
	Active   []model.List `json:"active"`
	Archived []model.List `json:"archived"`
	Shared   []model.List `json:"shared"`
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	active, err := h.lists.ListOwned(ac.UserID, false)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	archived, err := h.lists.ListOwned(ac.UserID, true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	shared, err := h.lists.ListSharedWith(ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := collectionsResponse{Active: active, Archived: archived, Shared: shared}
	if resp.Active == nil {
		resp.Active = []model.List{}
	}
	if resp.Archived == nil {
		resp.Archived = []model.List{}
	}
	if resp.Shared == nil {
		resp.Shared = []model.List{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.perms.Require(listID, ac.UserID, permission.ActionView)
	if err != nil {
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

	writeJSON(w, http.StatusOK, map[string]any{"list": list, "items": items})
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	existing, err := h.perms.Require(listID, ac.UserID, permission.ActionEditItems)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}

	list, err := h.lists.Update(listID, req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.listChanged(feed.OpUpdate, list)
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.perms.Require(listID, ac.UserID, permission.ActionComplete)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Collaborator rows cascade away with the list; capture the feed
	// audience first.
	recipients := h.pub.recipients(listID)

	if err := h.lists.Delete(listID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if list.IsCollaborative {
		h.pub.listDeleted(listID, recipients)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *ListHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *ListHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionComplete); err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.lists.SetArchived(listID, archived)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.listChanged(feed.OpUpdate, list)
	writeJSON(w, http.StatusOK, list)
}

// Complete marks every open item purchased and archives the list. The two
// writes happen back to back server-side; clients apply the resulting feed
// events through the same reducers as any other update.
func (h *ListHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionComplete); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.items.PurchaseAll(listID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.lists.SetArchived(listID, true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.pub.listChanged(feed.OpUpdate, list)
	writeJSON(w, http.StatusOK, list)
}

func (h *ListHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	sum, err := h.lists.SummaryForUser(ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
