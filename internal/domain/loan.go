package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cadence is the repayment frequency that drives due-date advancement.
type Cadence string

const (
	CadenceDaily   Cadence = "DAILY"
	CadenceWeekly  Cadence = "WEEKLY"
	CadenceMonthly Cadence = "MONTHLY"
)

// Valid reports whether c is one of the supported cadences.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

// SettlementState is a one-way flag: once completed it never goes back.
type SettlementState string

const (
	SettlementNone      SettlementState = "none"
	SettlementCompleted SettlementState = "completed"
)

// LoanSpecification is the input of schedule generation. It is treated as
// immutable once a schedule has been generated from it.
type LoanSpecification struct {
	Principal          decimal.Decimal `json:"principal" db:"principal"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" db:"annual_interest_rate"` // percentage, 12 means 12%
	PeriodicPayment    decimal.Decimal `json:"periodic_payment" db:"periodic_payment"`
	Cadence            Cadence         `json:"cadence" db:"cadence"`
	StartDate          time.Time       `json:"start_date" db:"start_date"`
	RepaymentDay       int             `json:"repayment_day,omitempty" db:"repayment_day"` // 1-31, monthly only
}

// LoanAggregate represents a loan with its generated schedule
type LoanAggregate struct {
	ID               uuid.UUID            `json:"id" db:"id"`
	LoanID           string               `json:"loan_id" db:"loan_id"`
	Spec             LoanSpecification    `json:"specification" db:"-"`
	TotalInterest    decimal.Decimal      `json:"total_interest" db:"total_interest"`
	TotalAmount      decimal.Decimal      `json:"total_amount" db:"total_amount"`
	SettlementState  SettlementState      `json:"settlement_state" db:"settlement_state"`
	SettlementAmount *decimal.Decimal     `json:"settlement_amount,omitempty" db:"settlement_amount"`
	SettledAt        *time.Time           `json:"settled_at,omitempty" db:"settled_at"`
	Installments     []*InstallmentRecord `json:"installments,omitempty" db:"-"`
	CreatedAt        time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" db:"updated_at"`
}

// IsSettled reports whether the settlement flag has been set.
func (l *LoanAggregate) IsSettled() bool {
	return l.SettlementState == SettlementCompleted
}

// Installment returns the record with the given sequence number, or nil.
func (l *LoanAggregate) Installment(sequence int) *InstallmentRecord {
	for _, rec := range l.Installments {
		if rec.Sequence == sequence {
			return rec
		}
	}
	return nil
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID             string          `json:"loan_id" validate:"required"`
	Principal          decimal.Decimal `json:"principal" validate:"decimal_gt=0"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" validate:"decimal_gte=0"`
	PeriodicPayment    decimal.Decimal `json:"periodic_payment" validate:"decimal_gt=0"`
	Cadence            Cadence         `json:"cadence" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	StartDate          time.Time       `json:"start_date" validate:"required"`
	RepaymentDay       int             `json:"repayment_day" validate:"required_if=Cadence MONTHLY,max=31"`
}

// Specification converts the request into a LoanSpecification.
func (r *CreateLoanRequest) Specification() LoanSpecification {
	return LoanSpecification{
		Principal:          r.Principal,
		AnnualInterestRate: r.AnnualInterestRate,
		PeriodicPayment:    r.PeriodicPayment,
		Cadence:            r.Cadence,
		StartDate:          r.StartDate,
		RepaymentDay:       r.RepaymentDay,
	}
}

type RescheduleRequest struct {
	Principal          decimal.Decimal `json:"principal" validate:"decimal_gt=0"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" validate:"decimal_gte=0"`
	PeriodicPayment    decimal.Decimal `json:"periodic_payment" validate:"decimal_gt=0"`
	Cadence            Cadence         `json:"cadence" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	StartDate          time.Time       `json:"start_date" validate:"required"`
	RepaymentDay       int             `json:"repayment_day" validate:"required_if=Cadence MONTHLY,max=31"`
}

func (r *RescheduleRequest) Specification() LoanSpecification {
	return LoanSpecification{
		Principal:          r.Principal,
		AnnualInterestRate: r.AnnualInterestRate,
		PeriodicPayment:    r.PeriodicPayment,
		Cadence:            r.Cadence,
		StartDate:          r.StartDate,
		RepaymentDay:       r.RepaymentDay,
	}
}

type SettlementRequest struct {
	// Amount accepted to close the loan. Empty means the full total.
	Amount   *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,decimal_gt=0"`
	Party    PartyData        `json:"party"`
	Template string           `json:"template,omitempty"`
}

type LoanResponse struct {
	Loan *LoanAggregate `json:"loan"`
}

type SummaryResponse struct {
	LoanID  string           `json:"loan_id"`
	Summary *ScheduleSummary `json:"summary"`
	State   SettlementState  `json:"settlement_state"`
}
