package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/loan-documents/internal/domain"
	customError "github.com/segyhp/loan-documents/pkg/errors"
)

const installmentColumns = `
	i.id, i.loan_id, i.sequence, i.due_date, i.principal_portion, i.interest_portion, i.amount,
	i.remaining_balance, i.status, i.paid_amount, i.payment_date, i.postpone_reason, i.version
`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func insertInstallments(ctx context.Context, tx *sqlx.Tx, records []*domain.InstallmentRecord) error {
	query := `
		INSERT INTO installments (id, loan_id, sequence, due_date, principal_portion, interest_portion, amount,
			remaining_balance, status, paid_amount, payment_date, postpone_reason, version)
		VALUES (:id, :loan_id, :sequence, :due_date, :principal_portion, :interest_portion, :amount,
			:remaining_balance, :status, :paid_amount, :payment_date, :postpone_reason, :version)
	`

	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
			return err
		}
		if err := insertAttachments(ctx, tx, rec); err != nil {
			return err
		}
	}

	return nil
}

func insertAttachments(ctx context.Context, tx *sqlx.Tx, rec *domain.InstallmentRecord) error {
	query := `
		INSERT INTO installment_attachments (installment_id, position, reference)
		VALUES ($1, $2, $3)
	`

	for i, ref := range rec.Attachments {
		if _, err := tx.ExecContext(ctx, query, rec.ID, i, ref); err != nil {
			return err
		}
	}
	return nil
}

// loadAttachments fills the Attachments of records in a single query.
func loadAttachments(ctx context.Context, q sqlx.QueryerContext, records []*domain.InstallmentRecord) error {
	if len(records) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.InstallmentRecord, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
		ids = append(ids, rec.ID.String())
	}

	query := `
		SELECT installment_id, reference
		FROM installment_attachments
		WHERE installment_id = ANY($1::uuid[])
		ORDER BY installment_id, position
	`

	var rows []struct {
		InstallmentID uuid.UUID `db:"installment_id"`
		Reference     string    `db:"reference"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, row := range rows {
		if rec, ok := byID[row.InstallmentID]; ok {
			rec.Attachments = append(rec.Attachments, row.Reference)
		}
	}
	return nil
}

func (r *installmentRepository) GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error) {
	query := `SELECT ` + installmentColumns + `
		FROM installments i
		WHERE i.loan_id = $1
		ORDER BY i.sequence
	`

	var records []*domain.InstallmentRecord
	if err := r.db.SelectContext(ctx, &records, query, loanID); err != nil {
		return nil, err
	}

	if err := loadAttachments(ctx, r.db, records); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *installmentRepository) GetBySequence(ctx context.Context, loanID string, sequence int) (*domain.InstallmentRecord, error) {
	query := `SELECT ` + installmentColumns + `
		FROM installments i
		WHERE i.loan_id = $1 AND i.sequence = $2
	`

	var rec domain.InstallmentRecord
	if err := r.db.GetContext(ctx, &rec, query, loanID, sequence); err != nil {
		return nil, err
	}

	if err := loadAttachments(ctx, r.db, []*domain.InstallmentRecord{&rec}); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (r *installmentRepository) Update(ctx context.Context, rec *domain.InstallmentRecord) error {
	query := `
		UPDATE installments
		SET due_date = $3, status = $4, paid_amount = $5, payment_date = $6, postpone_reason = $7,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query,
		rec.ID,
		rec.Version,
		rec.DueDate,
		rec.Status,
		rec.PaidAmount,
		rec.PaymentDate,
		rec.PostponeReason,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.ErrConcurrentUpdate
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM installment_attachments WHERE installment_id = $1`, rec.ID); err != nil {
		return err
	}
	if err = insertAttachments(ctx, tx, rec); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	rec.Version++
	return nil
}

func (r *installmentRepository) ListOverdue(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error) {
	query := `SELECT ` + installmentColumns + `
		FROM installments i
		JOIN loans l ON l.loan_id = i.loan_id
		WHERE l.settlement_state <> 'completed' AND i.status <> 'PAID' AND i.due_date < $1
		ORDER BY i.due_date, i.loan_id, i.sequence
	`

	return r.list(ctx, query, today)
}

func (r *installmentRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentRecord, error) {
	query := `SELECT ` + installmentColumns + `
		FROM installments i
		JOIN loans l ON l.loan_id = i.loan_id
		WHERE l.settlement_state <> 'completed' AND i.status <> 'PAID' AND i.due_date BETWEEN $1 AND $2
		ORDER BY i.due_date, i.loan_id, i.sequence
	`

	return r.list(ctx, query, from, to)
}

func (r *installmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.InstallmentRecord, error) {
	var records []*domain.InstallmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, err
	}

	if err := loadAttachments(ctx, r.db, records); err != nil {
		return nil, err
	}

	return records, nil
}
