// Package apperror defines the machine-readable error codes surfaced by the
// API. Every server-side check fails closed and returns one of these before
// any mutation is attempted; handlers map them to HTTP responses verbatim.
package apperror

import "net/http"

type Code string

const (
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	CodeListIDRequired       Code = "LIST_ID_REQUIRED"
	CodeParametersRequired   Code = "PARAMETERS_REQUIRED"
	CodeNotCollaborator      Code = "NOT_COLLABORATOR"
	CodeCollaboratorNotFound Code = "COLLABORATOR_NOT_FOUND"

	// Owner-immutability violations. Distinct from PERMISSION_DENIED so
	// clients can render a specific explanation.
	CodeOwnerCannotLeave  Code = "OWNER_CANNOT_LEAVE"
	CodeCannotRemoveOwner Code = "CANNOT_REMOVE_OWNER"
	CodeCannotChangeOwner Code = "CANNOT_CHANGE_OWNER"

	CodeInvitationExists    Code = "INVITATION_EXISTS"
	CodeAlreadyCollaborator Code = "ALREADY_COLLABORATOR"
	CodeEmailTaken          Code = "EMAIL_TAKEN"
	CodeCannotInviteSelf    Code = "CANNOT_INVITE_SELF"
	CodeInvalidRole         Code = "INVALID_ROLE"
	CodeEmailRequired       Code = "EMAIL_REQUIRED"
	CodeInvalidExpiration   Code = "INVALID_EXPIRATION"

	CodeTokenNotFound Code = "TOKEN_NOT_FOUND"
	CodeTokenExpired  Code = "TOKEN_EXPIRED"

	CodeListNotFound       Code = "LIST_NOT_FOUND"
	CodeItemNotFound       Code = "ITEM_NOT_FOUND"
	CodeInvitationNotFound Code = "INVITATION_NOT_FOUND"

	CodeInternal Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error // wrapped cause, not exposed to clients
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status an Error maps to.
func (e *Error) Status() int {
	switch e.Code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeNotCollaborator,
		CodeOwnerCannotLeave, CodeCannotRemoveOwner, CodeCannotChangeOwner:
		return http.StatusForbidden
	case CodeListIDRequired, CodeParametersRequired, CodeCannotInviteSelf,
		CodeInvalidRole, CodeEmailRequired, CodeInvalidExpiration:
		return http.StatusBadRequest
	case CodeInvitationExists, CodeAlreadyCollaborator, CodeEmailTaken:
		return http.StatusConflict
	case CodeTokenExpired:
		return http.StatusGone
	case CodeListNotFound, CodeItemNotFound, CodeCollaboratorNotFound,
		CodeTokenNotFound, CodeInvitationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Internal wraps an unexpected error. The cause is kept for logging; clients
// only see the generic message.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}
