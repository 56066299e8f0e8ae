package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-documents/internal/domain"
	customError "github.com/segyhp/loan-documents/pkg/errors"
)

const uniqueViolation = "23505"

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

// loanRow is the flat table shape of a LoanAggregate.
type loanRow struct {
	ID                 uuid.UUID           `db:"id"`
	LoanID             string              `db:"loan_id"`
	Principal          decimal.Decimal     `db:"principal"`
	AnnualInterestRate decimal.Decimal     `db:"annual_interest_rate"`
	PeriodicPayment    decimal.Decimal     `db:"periodic_payment"`
	Cadence            string              `db:"cadence"`
	StartDate          time.Time           `db:"start_date"`
	RepaymentDay       int                 `db:"repayment_day"`
	TotalInterest      decimal.Decimal     `db:"total_interest"`
	TotalAmount        decimal.Decimal     `db:"total_amount"`
	SettlementState    string              `db:"settlement_state"`
	SettlementAmount   decimal.NullDecimal `db:"settlement_amount"`
	SettledAt          *time.Time          `db:"settled_at"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

func toLoanRow(loan *domain.LoanAggregate) loanRow {
	row := loanRow{
		ID:                 loan.ID,
		LoanID:             loan.LoanID,
		Principal:          loan.Spec.Principal,
		AnnualInterestRate: loan.Spec.AnnualInterestRate,
		PeriodicPayment:    loan.Spec.PeriodicPayment,
		Cadence:            string(loan.Spec.Cadence),
		StartDate:          loan.Spec.StartDate,
		RepaymentDay:       loan.Spec.RepaymentDay,
		TotalInterest:      loan.TotalInterest,
		TotalAmount:        loan.TotalAmount,
		SettlementState:    string(loan.SettlementState),
		SettledAt:          loan.SettledAt,
		CreatedAt:          loan.CreatedAt,
		UpdatedAt:          loan.UpdatedAt,
	}
	if loan.SettlementAmount != nil {
		row.SettlementAmount = decimal.NewNullDecimal(*loan.SettlementAmount)
	}
	if row.SettlementState == "" {
		row.SettlementState = string(domain.SettlementNone)
	}
	return row
}

func (r loanRow) toAggregate() *domain.LoanAggregate {
	loan := &domain.LoanAggregate{
		ID:     r.ID,
		LoanID: r.LoanID,
		Spec: domain.LoanSpecification{
			Principal:          r.Principal,
			AnnualInterestRate: r.AnnualInterestRate,
			PeriodicPayment:    r.PeriodicPayment,
			Cadence:            domain.Cadence(r.Cadence),
			StartDate:          r.StartDate,
			RepaymentDay:       r.RepaymentDay,
		},
		TotalInterest:   r.TotalInterest,
		TotalAmount:     r.TotalAmount,
		SettlementState: domain.SettlementState(r.SettlementState),
		SettledAt:       r.SettledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.SettlementAmount.Valid {
		amount := r.SettlementAmount.Decimal
		loan.SettlementAmount = &amount
	}
	return loan
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.LoanAggregate) error {
	query := `
		INSERT INTO loans (id, loan_id, principal, annual_interest_rate, periodic_payment, cadence, start_date,
			repayment_day, total_interest, total_amount, settlement_state, settlement_amount, settled_at, created_at, updated_at)
		VALUES (:id, :loan_id, :principal, :annual_interest_rate, :periodic_payment, :cadence, :start_date,
			:repayment_day, :total_interest, :total_amount, :settlement_state, :settlement_amount, :settled_at, :created_at, :updated_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, query, toLoanRow(loan)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return customError.ErrLoanAlreadyExists
		}
		return err
	}

	if err = insertInstallments(ctx, tx, loan.Installments); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	query := `
		SELECT id, loan_id, principal, annual_interest_rate, periodic_payment, cadence, start_date, repayment_day,
			total_interest, total_amount, settlement_state, settlement_amount, settled_at, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var row loanRow
	err := r.db.GetContext(ctx, &row, query, loanID)
	if err != nil {
		return nil, err
	}

	return row.toAggregate(), nil
}

func (r *loanRepository) ReplaceSchedule(ctx context.Context, loan *domain.LoanAggregate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var state string
	err = tx.GetContext(ctx, &state, `SELECT settlement_state FROM loans WHERE loan_id = $1 FOR UPDATE`, loan.LoanID)
	if err != nil {
		return err
	}
	if domain.SettlementState(state) == domain.SettlementCompleted {
		return customError.ErrLoanAlreadySettled
	}

	// Every installment row is locked so a payment in flight either commits
	// first and is seen here, or waits and then loses its version check.
	var stored []struct {
		Status     string          `db:"status"`
		PaidAmount decimal.Decimal `db:"paid_amount"`
	}
	err = tx.SelectContext(ctx, &stored,
		`SELECT status, paid_amount FROM installments WHERE loan_id = $1 ORDER BY sequence FOR UPDATE`, loan.LoanID)
	if err != nil {
		return err
	}
	for _, rec := range stored {
		if domain.InstallmentStatus(rec.Status) != domain.StatusPending || rec.PaidAmount.IsPositive() {
			return customError.ErrScheduleHasPayments
		}
	}

	query := `
		UPDATE loans
		SET principal = :principal, annual_interest_rate = :annual_interest_rate, periodic_payment = :periodic_payment,
			cadence = :cadence, start_date = :start_date, repayment_day = :repayment_day,
			total_interest = :total_interest, total_amount = :total_amount, updated_at = :updated_at
		WHERE loan_id = :loan_id
	`
	if _, err = tx.NamedExecContext(ctx, query, toLoanRow(loan)); err != nil {
		return err
	}

	// Attachments go with their installments through ON DELETE CASCADE
	if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}

	if err = insertInstallments(ctx, tx, loan.Installments); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) UpdateSettlement(ctx context.Context, loan *domain.LoanAggregate, receipt *domain.Document) error {
	query := `
		UPDATE loans
		SET settlement_state = $2, settlement_amount = $3, settled_at = $4, updated_at = $5
		WHERE loan_id = $1 AND settlement_state <> 'completed'
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := toLoanRow(loan)
	result, err := tx.ExecContext(ctx, query,
		row.LoanID,
		row.SettlementState,
		row.SettlementAmount,
		row.SettledAt,
		row.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.ErrLoanAlreadySettled
	}

	if _, err = tx.NamedExecContext(ctx, insertDocumentQuery, receipt); err != nil {
		return err
	}

	return tx.Commit()
}
