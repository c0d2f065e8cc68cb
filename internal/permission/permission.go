// Package permission answers "can user U perform action A on list L".
// Checks are authoritative and fail closed: every collaborator-management and
// list/item-mutation endpoint calls Require before touching anything. Client
// UIs may hide affordances, but only these checks are trusted.
package permission

import (
	"fmt"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/store"
)

type Action int

const (
	// ActionView: read the list, its items, and its collaborator roster.
	ActionView Action = iota
	// ActionEditItems: create, update, delete, or toggle items, and edit
	// list fields.
	ActionEditItems
	// ActionManageCollaborators: invite, change roles, remove collaborators.
	ActionManageCollaborators
	// ActionComplete: mark the list complete, archive it, or delete it.
	ActionComplete
)

type Service struct {
	lists   *store.ListStore
	collabs *store.CollaboratorStore
}

func NewService(lists *store.ListStore, collabs *store.CollaboratorStore) *Service {
	return &Service{lists: lists, collabs: collabs}
}

// Require checks that the user may perform the action on the list and returns
// the list on success. The zero-knowledge answer for a missing list is
// LIST_NOT_FOUND regardless of the caller.
func (s *Service) Require(listID, userID int64, action Action) (*model.List, error) {
	list, err := s.lists.GetByID(listID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("permission: %w", err))
	}
	if list == nil {
		return nil, apperror.New(apperror.CodeListNotFound, "list not found")
	}

	collab, err := s.collabs.Get(listID, userID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("permission: %w", err))
	}
	if collab == nil {
		return nil, apperror.New(apperror.CodeNotCollaborator, "you are not a collaborator on this list")
	}

	if !allowed(collab.Role, action) {
		return nil, apperror.New(apperror.CodePermissionDenied, "insufficient role for this action")
	}
	return list, nil
}

// Role reports the caller's role on the list, or NOT_COLLABORATOR.
func (s *Service) Role(listID, userID int64) (string, error) {
	collab, err := s.collabs.Get(listID, userID)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("permission: %w", err))
	}
	if collab == nil {
		return "", apperror.New(apperror.CodeNotCollaborator, "you are not a collaborator on this list")
	}
	return collab.Role, nil
}

func allowed(role string, action Action) bool {
	switch action {
	case ActionView:
		return role == model.RoleOwner || role == model.RoleEditor || role == model.RoleViewer
	case ActionEditItems:
		return role == model.RoleOwner || role == model.RoleEditor
	case ActionManageCollaborators, ActionComplete:
		return role == model.RoleOwner
	default:
		return false
	}
}

// CanAssignRole reports whether an owner may move a collaborator between
// roles. editor ⇄ viewer is freely mutable; owner is terminal on both sides
// of the transition.
func CanAssignRole(current, next string) bool {
	if current == model.RoleOwner || next == model.RoleOwner {
		return false
	}
	return model.ValidInviteRole(next)
}
