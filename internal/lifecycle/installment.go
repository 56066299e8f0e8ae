// Package lifecycle computes installment and settlement state transitions.
// Every function returns a new value and leaves its input untouched;
// persisting the result is the caller's job.
package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-documents/internal/domain"
	customError "github.com/segyhp/loan-documents/pkg/errors"
	"github.com/segyhp/loan-documents/pkg/utils"
)

// EffectiveStatus is the status shown to users. A stored PENDING record with
// attachments is presented as PENDING_REVIEW.
func EffectiveStatus(rec *domain.InstallmentRecord) domain.InstallmentStatus {
	if rec.Status == domain.StatusPending && len(rec.Attachments) > 0 {
		return domain.StatusPendingReview
	}
	return rec.Status
}

// IsOverdue reports whether an unpaid installment's due date is before today.
func IsOverdue(rec *domain.InstallmentRecord, today time.Time) bool {
	return rec.Status != domain.StatusPaid && utils.IsDateOverdue(rec.DueDate, today)
}

// AttachProof records an external attachment reference (a receipt upload).
func AttachProof(rec *domain.InstallmentRecord, ref string) (*domain.InstallmentRecord, error) {
	if err := requireOpen(rec); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, customError.WrapValidation("attachment reference is required")
	}

	next := rec.Clone()
	next.Attachments = append(next.Attachments, ref)
	return next, nil
}

// Approve marks the installment fully paid at now.
func Approve(rec *domain.InstallmentRecord, amount decimal.Decimal, now time.Time) (*domain.InstallmentRecord, error) {
	if err := requireOpen(rec); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("approved amount must be greater than 0, got %s", amount)
	}

	next := rec.Clone()
	markPaid(next, now)
	return next, nil
}

// RecordPartialPayment adds amount to what was received so far. The amount
// must not exceed the outstanding remainder; covering it entirely pays the
// installment off.
func RecordPartialPayment(rec *domain.InstallmentRecord, amount decimal.Decimal, now time.Time) (*domain.InstallmentRecord, error) {
	if err := requireOpen(rec); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("partial payment must be greater than 0, got %s", amount)
	}
	if outstanding := rec.Outstanding(); amount.GreaterThan(outstanding) {
		return nil, customError.WrapValidation(
			"partial payment %s exceeds the outstanding %s of installment %d", amount, outstanding, rec.Sequence)
	}

	next := rec.Clone()
	next.PaidAmount = next.PaidAmount.Add(amount)
	if next.PaidAmount.Equal(next.Amount) {
		markPaid(next, now)
		return next, nil
	}
	next.Status = domain.StatusPartialPaid
	return next, nil
}

// Reject discards the attachments under review. Money already received is
// kept, so a partially paid installment stays PARTIAL_PAID.
func Reject(rec *domain.InstallmentRecord) (*domain.InstallmentRecord, error) {
	if err := requireOpen(rec); err != nil {
		return nil, err
	}

	next := rec.Clone()
	next.Attachments = nil
	if next.PaidAmount.IsPositive() {
		next.Status = domain.StatusPartialPaid
	} else {
		next.Status = domain.StatusPending
	}
	return next, nil
}

// Postpone moves the due date forward. The new date must be strictly after
// the current one and a reason is mandatory.
func Postpone(rec *domain.InstallmentRecord, newDueDate time.Time, reason string) (*domain.InstallmentRecord, error) {
	if err := requireOpen(rec); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, customError.WrapValidation("postponement reason is required")
	}
	newDueDate = utils.DateOnly(newDueDate)
	if !newDueDate.After(utils.DateOnly(rec.DueDate)) {
		return nil, customError.WrapValidation(
			"new due date %s must be after the current due date %s",
			newDueDate.Format(time.DateOnly), rec.DueDate.Format(time.DateOnly))
	}

	next := rec.Clone()
	next.DueDate = newDueDate
	next.PostponeReason = reason
	return next, nil
}

func requireOpen(rec *domain.InstallmentRecord) error {
	if rec == nil {
		return customError.WrapValidation("installment is required")
	}
	if rec.Status == domain.StatusPaid {
		return customError.WrapValidation("installment %d is already paid", rec.Sequence)
	}
	return nil
}

func markPaid(rec *domain.InstallmentRecord, now time.Time) {
	paidAt := now
	rec.PaidAmount = rec.Amount
	rec.Status = domain.StatusPaid
	rec.PaymentDate = &paidAt
}
