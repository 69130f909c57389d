package models

type PaymentStatus string
type PaymentPath string
type TicketState string
type AdminRole string
type SubscriberStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusInvalid   PaymentStatus = "invalid"

	PaymentPathGateway PaymentPath = "gateway"
	PaymentPathManual  PaymentPath = "manual"

	TicketStateCreated       TicketState = "Created"
	TicketStatePendingReview TicketState = "PendingReview"
	TicketStateApproved      TicketState = "Approved"
	TicketStateIssued        TicketState = "Issued"
	TicketStateCheckedIn     TicketState = "CheckedIn"
	TicketStateRejected      TicketState = "Rejected"

	// TicketStateRemoved only appears in the audit trail after an admin deletion.
	TicketStateRemoved TicketState = "Removed"

	AdminRoleAdmin AdminRole = "admin"
	AdminRoleDoor  AdminRole = "door"

	SubscriberStatusPending   SubscriberStatus = "pending"
	SubscriberStatusConfirmed SubscriberStatus = "confirmed"
)

// IsTerminal reports whether the status may no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// ticketTransitions lists every legal move; "" is the not-yet-created state.
var ticketTransitions = map[TicketState][]TicketState{
	"":                       {TicketStatePendingReview, TicketStateCreated},
	TicketStatePendingReview: {TicketStateApproved, TicketStateRejected},
	TicketStateApproved:      {TicketStateIssued},
	TicketStateCreated:       {TicketStateIssued},
	TicketStateIssued:        {TicketStateCheckedIn},
}

func (s TicketState) CanTransitionTo(next TicketState) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Occupying states block a new manual submission for the same email, plan and period.
func (s TicketState) Occupying() bool {
	switch s {
	case TicketStatePendingReview, TicketStateApproved, TicketStateIssued, TicketStateCheckedIn:
		return true
	}
	return false
}

// OccupyingTicketStates is the list form of Occupying, for queries.
var OccupyingTicketStates = []TicketState{
	TicketStatePendingReview,
	TicketStateApproved,
	TicketStateIssued,
	TicketStateCheckedIn,
}
