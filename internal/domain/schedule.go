package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is the repayment status of one installment.
type InstallmentStatus string

const (
	StatusPending     InstallmentStatus = "PENDING"
	StatusPartialPaid InstallmentStatus = "PARTIAL_PAID"
	StatusPaid        InstallmentStatus = "PAID"

	// StatusPendingReview is never stored. It is how a PENDING installment
	// with at least one attachment is presented.
	StatusPendingReview InstallmentStatus = "PENDING_REVIEW"
)

// InstallmentRecord represents one entry of a loan's repayment schedule
type InstallmentRecord struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	LoanID           string            `json:"loan_id" db:"loan_id"`
	Sequence         int               `json:"sequence" db:"sequence"`
	DueDate          time.Time         `json:"due_date" db:"due_date"`
	PrincipalPortion decimal.Decimal   `json:"principal_portion" db:"principal_portion"`
	InterestPortion  decimal.Decimal   `json:"interest_portion" db:"interest_portion"`
	Amount           decimal.Decimal   `json:"amount" db:"amount"`
	RemainingBalance decimal.Decimal   `json:"remaining_balance" db:"remaining_balance"`
	Status           InstallmentStatus `json:"status" db:"status"`
	PaidAmount       decimal.Decimal   `json:"paid_amount" db:"paid_amount"`
	Attachments      []string          `json:"attachments" db:"-"`
	PaymentDate      *time.Time        `json:"payment_date,omitempty" db:"payment_date"`
	PostponeReason   string            `json:"postpone_reason,omitempty" db:"postpone_reason"`
	Version          int               `json:"version" db:"version"`
}

// Clone returns a deep copy so lifecycle transitions never touch the input.
func (r *InstallmentRecord) Clone() *InstallmentRecord {
	out := *r
	if r.Attachments != nil {
		out.Attachments = append([]string(nil), r.Attachments...)
	}
	if r.PaymentDate != nil {
		d := *r.PaymentDate
		out.PaymentDate = &d
	}
	return &out
}

// Outstanding is the part of Amount not yet received.
func (r *InstallmentRecord) Outstanding() decimal.Decimal {
	return r.Amount.Sub(r.PaidAmount)
}

// ScheduleSummary aggregates a schedule by repayment state.
type ScheduleSummary struct {
	TotalInstallments   int             `json:"total_installments"`
	PaidInstallments    int             `json:"paid_installments"`
	PartialInstallments int             `json:"partial_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	OutstandingAmount   decimal.Decimal `json:"outstanding_amount"`
	OverdueAmount       decimal.Decimal `json:"overdue_amount"`
	NextDueDate         *time.Time      `json:"next_due_date,omitempty"`
}

type AttachmentRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type ApproveRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
}

type PartialPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
}

type PostponeRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
	Reason  string    `json:"reason" validate:"required"`
}

type ScheduleResponse struct {
	LoanID   string               `json:"loan_id"`
	Schedule []*InstallmentRecord `json:"schedule"`
}

type InstallmentResponse struct {
	Installment *InstallmentRecord `json:"installment"`
	Status      InstallmentStatus  `json:"effective_status"`
	Overdue     bool               `json:"overdue"`
}
