package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary and for logging policy
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindConflict
	KindNotFound
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

// Error is a typed business error. Sentinel values are compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a typed error
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in the chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Validationf builds an ad-hoc validation error that still matches ErrInvalidInput
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Common errors
var (
	ErrInvalidInput = NewError(KindValidation, "INVALID_INPUT", "invalid input")
	ErrForbidden    = NewError(KindForbidden, "FORBIDDEN", "forbidden")
	ErrConflict     = NewError(KindConflict, "CONFLICT", "concurrent modification, please retry")
	ErrIntegrity    = NewError(KindIntegrity, "INTEGRITY", "integrity violation")
)

// Auth errors
var (
	ErrInvalidCredentials = NewError(KindAuth, "INVALID_CREDENTIALS", "invalid credentials")
	ErrAccountLocked      = NewError(KindAuth, "ACCOUNT_LOCKED", "account locked")
	ErrAccountDisabled    = NewError(KindAuth, "ACCOUNT_DISABLED", "account disabled")
	ErrSessionExpired     = NewError(KindAuth, "SESSION_EXPIRED", "session expired")
	ErrCSRFMismatch       = NewError(KindAuth, "CSRF_MISMATCH", "csrf token mismatch")
	ErrSessionNotFound    = NewError(KindNotFound, "SESSION_NOT_FOUND", "session not found")
)

// Role errors
var (
	ErrUnknownRole       = NewError(KindNotFound, "UNKNOWN_ROLE", "unknown role")
	ErrUnknownPermission = NewError(KindNotFound, "UNKNOWN_PERMISSION", "unknown permission")
)

// User errors
var (
	ErrUserNotFound        = NewError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrUserAlreadyExists   = NewError(KindConflict, "USER_ALREADY_EXISTS", "username or email already exists")
	ErrOldPasswordWrong    = NewError(KindValidation, "OLD_PASSWORD_WRONG", "old password is incorrect")
	ErrWeakPassword        = NewError(KindValidation, "WEAK_PASSWORD", "password must be at least 8 characters")
	ErrCannotDeleteSelf    = NewError(KindForbidden, "CANNOT_DELETE_SELF", "cannot delete your own account")
	ErrCannotChangeOwnRole = NewError(KindForbidden, "CANNOT_CHANGE_OWN_ROLE", "cannot change your own role")
)

// Inventory errors
var (
	ErrItemNotFound          = NewError(KindNotFound, "ITEM_NOT_FOUND", "inventory item not found")
	ErrItemInUse             = NewError(KindConflict, "ITEM_IN_USE", "item has active checkouts")
	ErrInsufficientStock     = NewError(KindConflict, "INSUFFICIENT_STOCK", "insufficient stock")
	ErrCheckoutNotFound      = NewError(KindNotFound, "CHECKOUT_NOT_FOUND", "checkout not found")
	ErrCheckoutAlreadyClosed = NewError(KindConflict, "CHECKOUT_ALREADY_CLOSED", "checkout already returned")
	ErrInvalidQuantity       = NewError(KindValidation, "INVALID_QUANTITY", "invalid quantity")
)

// Invitation errors
var (
	ErrInvitationNotFound  = NewError(KindNotFound, "INVITATION_NOT_FOUND", "invitation not found")
	ErrDuplicateInvitation = NewError(KindConflict, "DUPLICATE_INVITATION", "an open invitation already exists for this email")
	ErrInvitationUsed      = NewError(KindConflict, "INVITATION_USED", "invitation already used")
	ErrInvitationExpired   = NewError(KindConflict, "INVITATION_EXPIRED", "invitation expired")
)

// Event errors
var (
	ErrEventNotFound   = NewError(KindNotFound, "EVENT_NOT_FOUND", "event not found")
	ErrSlotNotFound    = NewError(KindNotFound, "SLOT_NOT_FOUND", "helper slot not found")
	ErrSlotFull        = NewError(KindConflict, "SLOT_FULL", "helper slot is full")
	ErrAlreadySignedUp = NewError(KindConflict, "ALREADY_SIGNED_UP", "already signed up for this slot")
	ErrSignupNotFound  = NewError(KindNotFound, "SIGNUP_NOT_FOUND", "signup not found")
)

// Project errors
var (
	ErrProjectNotFound      = NewError(KindNotFound, "PROJECT_NOT_FOUND", "project not found")
	ErrProjectClosed        = NewError(KindConflict, "PROJECT_CLOSED", "project is not accepting applications")
	ErrApplicationNotFound  = NewError(KindNotFound, "APPLICATION_NOT_FOUND", "application not found")
	ErrDuplicateApplication = NewError(KindConflict, "DUPLICATE_APPLICATION", "already applied to this project")
	ErrInvalidTransition    = NewError(KindConflict, "INVALID_TRANSITION", "application already reviewed")
)
