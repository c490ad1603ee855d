package belt

import (
	"time"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// DecisionOutcome classifies the result of an admission attempt.
type DecisionOutcome string

const (
	OutcomeAccepted DecisionOutcome = "accepted"
	OutcomeWarning  DecisionOutcome = "warning"
	OutcomeBlocked  DecisionOutcome = "blocked"
)

// Stable decision codes surfaced to operators.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeNotFoundOrInactive = "not_found_or_inactive"
	CodeCapacityReached    = "capacity_reached"
	CodeBlockedFinancial   = "blocked_financial"
	CodeDuplicateWindow    = "duplicate_window"
	CodeFinancialPending   = "financial_pending"
)

// Decision is the outcome of one admission attempt. Blocked decisions are
// first-class values, not errors: a rule rejection is an answer, a failed
// fact lookup is not.
type Decision struct {
	Outcome       DecisionOutcome `json:"outcome"`
	Code          string          `json:"code,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	PaymentStatus PaymentStatus   `json:"payment_status,omitempty"`
}

// Blocked reports whether the attempt was refused.
func (d Decision) Blocked() bool { return d.Outcome == OutcomeBlocked }

// AdmissionInput carries the freshly fetched facts an admission decision
// is made from.
type AdmissionInput struct {
	StudentID string
	Student   *models.Student

	// SessionCount is the current attendee count for the requested
	// session; only consulted when SessionID is set.
	SessionID    string
	SessionCount int

	// Payments are the rows overlapping the current calendar month.
	Payments []models.Payment

	// LastCheckinAt is the student's most recent valid attendance inside
	// the duplicate-suppression lookback, if any.
	LastCheckinAt *time.Time

	Now time.Time
}

// Admit applies the admission rules in order, first match wins. It never
// performs I/O; the caller persists the attendance record only when the
// returned decision is accepted or warning.
func Admit(in AdmissionInput, rules Rules) Decision {
	if rules.Capacity <= 0 {
		rules.Capacity = DefaultRules().Capacity
	}
	if rules.DuplicateWindow <= 0 {
		rules.DuplicateWindow = DefaultRules().DuplicateWindow
	}

	if in.StudentID == "" {
		return Decision{
			Outcome: OutcomeBlocked,
			Code:    CodeInvalidRequest,
			Reason:  "student identifier is required",
		}
	}

	if in.Student == nil || !in.Student.Active {
		return Decision{
			Outcome: OutcomeBlocked,
			Code:    CodeNotFoundOrInactive,
			Reason:  "student not found or inactive",
		}
	}

	if in.SessionID != "" && in.SessionCount >= rules.Capacity {
		return Decision{
			Outcome: OutcomeBlocked,
			Code:    CodeCapacityReached,
			Reason:  "session is at full capacity",
		}
	}

	status := ComputePaymentStatus(AuthoritativePayment(in.Payments), in.Now)
	if status == PaymentDelinquent {
		return Decision{
			Outcome:       OutcomeBlocked,
			Code:          CodeBlockedFinancial,
			Reason:        "access blocked, please see the front desk",
			PaymentStatus: status,
		}
	}

	if in.LastCheckinAt != nil && in.Now.Sub(*in.LastCheckinAt) < rules.DuplicateWindow {
		return Decision{
			Outcome:       OutcomeBlocked,
			Code:          CodeDuplicateWindow,
			Reason:        "a check-in was already recorded for this visit",
			PaymentStatus: status,
		}
	}

	if status != PaymentPaid {
		return Decision{
			Outcome:       OutcomeWarning,
			Code:          CodeFinancialPending,
			Reason:        "check-in recorded with outstanding payment",
			PaymentStatus: status,
		}
	}

	return Decision{Outcome: OutcomeAccepted, PaymentStatus: status}
}
