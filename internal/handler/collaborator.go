package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/email"
	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/permission"
	"github.com/mwilkes/basket/internal/store"
)

type CollaboratorHandler struct {
	lists       *store.ListStore
	users       *store.UserStore
	collabs     *store.CollaboratorStore
	invitations *store.InvitationStore
	perms       *permission.Service
	mailer      *email.Client
	pub         *Publisher
	logger      *slog.Logger
}

func NewCollaboratorHandler(
	lists *store.ListStore,
	users *store.UserStore,
	collabs *store.CollaboratorStore,
	invitations *store.InvitationStore,
	perms *permission.Service,
	mailer *email.Client,
	pub *Publisher,
	logger *slog.Logger,
) *CollaboratorHandler {
	return &CollaboratorHandler{
		lists:       lists,
		users:       users,
		collabs:     collabs,
		invitations: invitations,
		perms:       perms,
		mailer:      mailer,
		pub:         pub,
		logger:      logger,
	}
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Invite creates a pending invitation for the email. The partial unique index
// on pending invitations is what actually guards against duplicates; the
// checks here just give nicer answers for the common cases.
func (h *CollaboratorHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.perms.Require(listID, ac.UserID, permission.ActionManageCollaborators)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, h.logger, apperror.New(apperror.CodeEmailRequired, "a valid email is required"))
		return
	}
	if !model.ValidInviteRole(req.Role) {
		writeError(w, h.logger, apperror.New(apperror.CodeInvalidRole, "role must be editor or viewer"))
		return
	}
	if strings.EqualFold(req.Email, ac.Email) {
		writeError(w, h.logger, apperror.New(apperror.CodeCannotInviteSelf, "you cannot invite yourself"))
		return
	}

	// If the email already resolves to a collaborator, say so instead of
	// creating an invitation that can never be accepted.
	invitee, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if invitee != nil {
		existing, err := h.collabs.Get(listID, invitee.ID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if existing != nil {
			writeError(w, h.logger, apperror.New(apperror.CodeAlreadyCollaborator, "this user already collaborates on the list"))
			return
		}
	}

	inv, err := h.invitations.Create(listID, ac.UserID, req.Email, req.Role)
	if err == store.ErrDuplicatePending {
		writeError(w, h.logger, apperror.New(apperror.CodeInvitationExists, "a pending invitation already exists for this email"))
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.mailer.Configured() {
		inviter, err := h.users.GetByID(ac.UserID)
		inviterName := ac.Email
		if err == nil && inviter != nil && inviter.Name != "" {
			inviterName = inviter.Name
		}
		go func() {
			if err := h.mailer.SendInvitation(req.Email, inviterName, list.Name, req.Role); err != nil {
				h.logger.Warn("invitation email failed", "invitation_id", inv.ID, "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation_id": inv.ID,
		"expires_at":    inv.ExpiresAt,
	})
}

func (h *CollaboratorHandler) List(w http.ResponseWriter, r *http.Request) {
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

	collabs, err := h.collabs.ListByList(listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if collabs == nil {
		collabs = []model.CollaboratorWithUser{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collaborators": collabs})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *CollaboratorHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeCollaboratorNotFound, "invalid user id"))
		return
	}

	// The caller must at least be on the list before anything else is
	// answered about it.
	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionView); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	target, err := h.collabs.Get(listID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if target == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeCollaboratorNotFound, "collaborator not found"))
		return
	}

	// Owner immutability outranks the generic permission answer: anyone who
	// tries to touch the owner row hears the specific code.
	if target.Role == model.RoleOwner {
		writeError(w, h.logger, apperror.New(apperror.CodeCannotChangeOwner, "the owner's role cannot be changed"))
		return
	}
	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionManageCollaborators); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !permission.CanAssignRole(target.Role, req.Role) {
		writeError(w, h.logger, apperror.New(apperror.CodeInvalidRole, "role must be editor or viewer"))
		return
	}

	updated, err := h.collabs.UpdateRole(listID, userID, req.Role)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": updated.Role})
}

func (h *CollaboratorHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeCollaboratorNotFound, "invalid user id"))
		return
	}

	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionView); err != nil {
		writeError(w, h.logger, err)
		return
	}

	target, err := h.collabs.Get(listID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if target == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeCollaboratorNotFound, "collaborator not found"))
		return
	}
	if target.Role == model.RoleOwner {
		writeError(w, h.logger, apperror.New(apperror.CodeCannotRemoveOwner, "the owner cannot be removed"))
		return
	}
	if _, err := h.perms.Require(listID, ac.UserID, permission.ActionManageCollaborators); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The removal may flip the collaborative flag off; capture the audience
	// that should still hear about it.
	recipients := h.pub.recipients(listID)

	if err := h.collabs.Remove(listID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.lists.GetByID(listID)
	if err == nil && list != nil {
		h.pub.listChangedTo(recipients, list)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Leave removes the caller's own collaborator row. Spelled out separately from
// Remove because the guards differ: any non-owner collaborator may leave, and
// an outsider gets a 404 rather than a permission error.
func (h *CollaboratorHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listID, err := parseListID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	list, err := h.lists.GetByID(listID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeListNotFound, "list not found"))
		return
	}

	self, err := h.collabs.Get(listID, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if self == nil {
		writeError(w, h.logger, apperror.New(apperror.CodeCollaboratorNotFound, "you are not a collaborator on this list"))
		return
	}
	if self.Role == model.RoleOwner {
		writeError(w, h.logger, apperror.New(apperror.CodeOwnerCannotLeave, "the owner cannot leave their own list"))
		return
	}

	recipients := h.pub.recipients(listID)

	if err := h.collabs.Remove(listID, ac.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if updated, err := h.lists.GetByID(listID); err == nil && updated != nil {
		h.pub.listChangedTo(recipients, updated)
	}
	writeJSON(w, http.StatusOK, map[string]string{"list_name": list.Name})
}

// Invitations lists the live pending invitations addressed to the caller.
func (h *CollaboratorHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	invs, err := h.invitations.ListPendingForEmail(strings.ToLower(ac.Email))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if invs == nil {
		invs = []model.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// Accept turns a pending invitation into a collaborator row. Repeated
// acceptance is a no-op on the collaborator table.
func (h *CollaboratorHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeInvitationNotFound, "invalid invitation id"))
		return
	}

	inv, err := h.invitations.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if inv == nil || !strings.EqualFold(inv.Email, ac.Email) {
		writeError(w, h.logger, apperror.New(apperror.CodeInvitationNotFound, "invitation not found"))
		return
	}
	if inv.Status == model.InvitationExpired || (inv.Status == model.InvitationPending && inv.ExpiresAt.Before(time.Now())) {
		writeError(w, h.logger, apperror.New(apperror.CodeInvitationNotFound, "invitation has expired"))
		return
	}

	if _, err := h.collabs.Add(inv.ListID, ac.UserID, inv.Role); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if inv.Status == model.InvitationPending {
		if err := h.invitations.MarkAccepted(inv.ID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	list, err := h.lists.GetByID(inv.ListID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list != nil {
		h.pub.listChanged(feed.OpUpdate, list)
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "role": inv.Role})
}
