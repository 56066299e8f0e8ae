package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-documents/internal/domain"
	customError "github.com/segyhp/loan-documents/pkg/errors"
)

// AllPaid reports whether every installment is PAID. An empty schedule is
// not considered paid.
func AllPaid(records []*domain.InstallmentRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if rec.Status != domain.StatusPaid {
			return false
		}
	}
	return true
}

// SettlementEligible reports whether a settlement receipt may be issued.
func SettlementEligible(loan *domain.LoanAggregate) bool {
	return !loan.IsSettled() && AllPaid(loan.Installments)
}

// CompleteSettlement sets the terminal settlement flag. amount is what the
// creditor accepted to close the loan; nil means the full total.
func CompleteSettlement(loan *domain.LoanAggregate, amount *decimal.Decimal, now time.Time) (*domain.LoanAggregate, error) {
	if loan.IsSettled() {
		return nil, customError.WrapLoanAlreadySettled(loan.LoanID)
	}
	if !AllPaid(loan.Installments) {
		return nil, customError.WrapSettlementNotEligible(loan.LoanID)
	}

	settled := loan.TotalAmount
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(loan.TotalAmount) {
			return nil, customError.WrapValidation(
				"settlement amount %s must be greater than 0 and at most the total %s", amount, loan.TotalAmount)
		}
		settled = *amount
	}

	next := *loan
	settledAt := now
	next.SettlementState = domain.SettlementCompleted
	next.SettlementAmount = &settled
	next.SettledAt = &settledAt
	next.UpdatedAt = now
	return &next, nil
}

// Summarize aggregates a schedule by repayment state as of today.
func Summarize(records []*domain.InstallmentRecord, today time.Time) *domain.ScheduleSummary {
	summary := &domain.ScheduleSummary{
		TotalInstallments: len(records),
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
		OverdueAmount:     decimal.Zero,
	}

	for _, rec := range records {
		summary.TotalAmount = summary.TotalAmount.Add(rec.Amount)
		summary.PaidAmount = summary.PaidAmount.Add(rec.PaidAmount)
		summary.OutstandingAmount = summary.OutstandingAmount.Add(rec.Outstanding())

		switch rec.Status {
		case domain.StatusPaid:
			summary.PaidInstallments++
			continue
		case domain.StatusPartialPaid:
			summary.PartialInstallments++
		}

		if IsOverdue(rec, today) {
			summary.OverdueInstallments++
			summary.OverdueAmount = summary.OverdueAmount.Add(rec.Outstanding())
		}
		if summary.NextDueDate == nil || rec.DueDate.Before(*summary.NextDueDate) {
			due := rec.DueDate
			summary.NextDueDate = &due
		}
	}

	return summary
}
