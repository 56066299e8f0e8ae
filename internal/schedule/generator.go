// Package schedule builds flat-interest repayment schedules.
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-documents/internal/domain"
	customError "github.com/segyhp/loan-documents/pkg/errors"
	"github.com/segyhp/loan-documents/pkg/utils"
)

// DefaultMaxInstallments bounds the schedule length when no limit is configured.
const DefaultMaxInstallments = 3650

// Generator produces installment schedules from a loan specification.
type Generator struct {
	maxInstallments int
}

// NewGenerator creates a generator refusing schedules longer than
// maxInstallments. Zero or negative means DefaultMaxInstallments.
func NewGenerator(maxInstallments int) *Generator {
	if maxInstallments <= 0 {
		maxInstallments = DefaultMaxInstallments
	}
	return &Generator{maxInstallments: maxInstallments}
}

// Totals returns the flat interest and the total repayable amount.
func Totals(spec domain.LoanSpecification) (totalInterest, totalAmount decimal.Decimal) {
	totalInterest = utils.FlatInterest(spec.Principal, spec.AnnualInterestRate)
	return totalInterest, spec.Principal.Add(totalInterest)
}

// Validate checks the preconditions of Generate.
func Validate(spec domain.LoanSpecification) error {
	if !spec.Principal.IsPositive() {
		return customError.WrapInvalidSpecification("principal must be greater than 0, got %s", spec.Principal)
	}
	if spec.AnnualInterestRate.IsNegative() {
		return customError.WrapInvalidSpecification("annual interest rate must not be negative, got %s", spec.AnnualInterestRate)
	}
	if !spec.PeriodicPayment.IsPositive() {
		return customError.WrapInvalidSpecification("periodic payment must be greater than 0, got %s", spec.PeriodicPayment)
	}
	if !spec.Cadence.Valid() {
		return customError.WrapInvalidSpecification("unknown cadence %q", spec.Cadence)
	}
	if spec.StartDate.IsZero() {
		return customError.WrapInvalidSpecification("start date is required")
	}
	if spec.Cadence == domain.CadenceMonthly && (spec.RepaymentDay < 1 || spec.RepaymentDay > 31) {
		return customError.WrapInvalidSpecification("monthly cadence requires a repayment day between 1 and 31, got %d", spec.RepaymentDay)
	}
	return nil
}

// DueDate returns the due date of installment i (1-based).
func DueDate(spec domain.LoanSpecification, i int) time.Time {
	switch spec.Cadence {
	case domain.CadenceDaily:
		return utils.AddDays(spec.StartDate, i)
	case domain.CadenceWeekly:
		return utils.AddWeeks(spec.StartDate, i)
	default:
		return utils.AddMonthsPinned(spec.StartDate, i, spec.RepaymentDay)
	}
}

// Generate computes the schedule. It either returns the full schedule or an
// error, never a partial one. The same input always yields the same output.
func (g *Generator) Generate(spec domain.LoanSpecification) ([]*domain.InstallmentRecord, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	totalInterest, totalAmount := Totals(spec)

	fullPeriods, remainder := totalAmount.QuoRem(spec.PeriodicPayment, 0)
	if remainder.IsPositive() {
		fullPeriods = fullPeriods.Add(decimal.NewFromInt(1))
	}
	// Compared as decimals: the quotient may not fit in an int64.
	if fullPeriods.GreaterThan(decimal.NewFromInt(int64(g.maxInstallments))) {
		return nil, customError.WrapInvalidSpecification(
			"schedule would need %s installments, the limit is %d", fullPeriods.String(), g.maxInstallments)
	}
	count := fullPeriods.IntPart()

	remainingPrincipal := spec.Principal
	remainingInterest := totalInterest
	paid := decimal.Zero

	records := make([]*domain.InstallmentRecord, 0, count)
	for i := 1; i <= int(count); i++ {
		var amount, interest, principal decimal.Decimal

		if i == int(count) {
			// Final installment absorbs every rounding drift of earlier periods.
			principal = remainingPrincipal
			interest = remainingInterest
			amount = principal.Add(interest)
		} else {
			amount = spec.PeriodicPayment
			interest = interestShare(amount, remainingPrincipal, remainingInterest)
			principal = amount.Sub(interest)
		}

		remainingPrincipal = remainingPrincipal.Sub(principal)
		remainingInterest = remainingInterest.Sub(interest)
		paid = paid.Add(amount)

		records = append(records, &domain.InstallmentRecord{
			Sequence:         i,
			DueDate:          DueDate(spec, i),
			PrincipalPortion: principal,
			InterestPortion:  interest,
			Amount:           amount,
			RemainingBalance: totalAmount.Sub(paid),
			Status:           domain.StatusPending,
			PaidAmount:       decimal.Zero,
		})
	}

	return records, nil
}

// interestShare splits amount pro rata between outstanding principal and
// interest, rounded with the shared money policy.
func interestShare(amount, remainingPrincipal, remainingInterest decimal.Decimal) decimal.Decimal {
	outstanding := remainingPrincipal.Add(remainingInterest)
	if outstanding.IsZero() {
		return decimal.Zero
	}
	return utils.RoundMoney(amount.Mul(remainingInterest).Div(outstanding))
}
