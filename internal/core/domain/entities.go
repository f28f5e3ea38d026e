package domain

import "time"

// Session is the per-request authentication state.
// It is passed explicitly to the auth and csrf services; the zero value is anonymous.
type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	UserID        uint      `json:"user_id,omitempty"`
	Role          Role      `json:"role,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	CSRFToken     string    `json:"csrf_token,omitempty"`
}

// Reset clears all state including the identifier
func (s *Session) Reset() {
	*s = Session{}
}

// CheckoutStatus is the lifecycle state of a checkout
type CheckoutStatus string

const (
	CheckoutActive   CheckoutStatus = "active"
	CheckoutReturned CheckoutStatus = "returned"
)

// StockReason labels a stock history record
type StockReason string

const (
	ReasonCheckout   StockReason = "checkout"
	ReasonCheckin    StockReason = "checkin"
	ReasonWriteOff   StockReason = "write_off"
	ReasonAdjustment StockReason = "adjustment"
	ReasonInitial    StockReason = "initial"
)

// InvitationStatus is the lifecycle state of an invitation
type InvitationStatus string

const (
	InvitationOpen    InvitationStatus = "open"
	InvitationUsed    InvitationStatus = "used"
	InvitationExpired InvitationStatus = "expired"
)

// ProjectStatus tells whether a project accepts applications
type ProjectStatus string

const (
	ProjectOpen   ProjectStatus = "open"
	ProjectClosed ProjectStatus = "closed"
)

// ApplicationStatus is the review state of a project application
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// NotificationKind identifies a notification template
type NotificationKind string

const (
	NotifyInvitation         NotificationKind = "invitation"
	NotifyOverdueReminder    NotificationKind = "overdue_reminder"
	NotifyCheckoutConfirm    NotificationKind = "checkout_confirmation"
	NotifyApplicationStatus  NotificationKind = "application_status_changed"
	NotifyEventSignupConfirm NotificationKind = "event_signup_confirmation"
)

// Actor identifies who performs an operation, for audit records and logs
type Actor struct {
	UserID uint
	Role   Role
}

// ActorFromSession builds an actor from an authenticated session
func ActorFromSession(s *Session) Actor {
	return Actor{UserID: s.UserID, Role: s.Role}
}
