package belt

import (
	"time"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// PaymentStatus is the derived financial standing of a student for a
// billing period.
type PaymentStatus string

const (
	PaymentPaid       PaymentStatus = "paid"
	PaymentPending    PaymentStatus = "pending"
	PaymentLate       PaymentStatus = "late"
	PaymentDelinquent PaymentStatus = "delinquent"
)

// Days past due tolerated before a payment counts as delinquent.
const graceDays = 5

// ComputePaymentStatus derives the financial standing from a single
// payment row. A nil row means no obligation was found for the period and
// reads as pending, never as delinquent.
func ComputePaymentStatus(p *models.Payment, today time.Time) PaymentStatus {
	if p == nil {
		return PaymentPending
	}
	if p.Status == models.PaymentRowPaid {
		return PaymentPaid
	}
	if p.EndDate == nil {
		return PaymentPending
	}
	if !today.After(*p.EndDate) {
		return PaymentPending
	}
	diffDays := int(today.Sub(*p.EndDate).Hours() / 24)
	if diffDays <= graceDays {
		return PaymentLate
	}
	return PaymentDelinquent
}

// AuthoritativePayment selects the row that governs the month when
// corrections produced more than one. Paid rows outrank unpaid rows;
// among rows of equal paid state the newest wins (paid_at for paid rows,
// created_at otherwise).
func AuthoritativePayment(rows []models.Payment) *models.Payment {
	var best *models.Payment
	for i := range rows {
		row := &rows[i]
		if best == nil {
			best = row
			continue
		}
		if outranks(row, best) {
			best = row
		}
	}
	return best
}

func outranks(candidate, current *models.Payment) bool {
	candidatePaid := candidate.Status == models.PaymentRowPaid
	currentPaid := current.Status == models.PaymentRowPaid
	if candidatePaid != currentPaid {
		return candidatePaid
	}
	return effectiveTime(candidate).After(effectiveTime(current))
}

func effectiveTime(p *models.Payment) time.Time {
	if p.Status == models.PaymentRowPaid && p.PaidAt != nil {
		return *p.PaidAt
	}
	return p.CreatedAt
}
