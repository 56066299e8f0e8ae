package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-documents/internal/domain"
)

// LoanRepository defines the interface for loan data operations.
// Lookups of a missing loan return sql.ErrNoRows.
type LoanRepository interface {
	// Create persists a loan and its whole schedule in one transaction
	Create(ctx context.Context, loan *domain.LoanAggregate) error

	// GetByLoanID retrieves a loan by its loan ID, without installments
	GetByLoanID(ctx context.Context, loanID string) (*domain.LoanAggregate, error)

	// ReplaceSchedule stores a new specification and swaps the whole schedule.
	// It returns errors.ErrLoanAlreadySettled or errors.ErrScheduleHasPayments
	// when the stored loan no longer allows it.
	ReplaceSchedule(ctx context.Context, loan *domain.LoanAggregate) error

	// UpdateSettlement sets the one-way settlement flag and stores the
	// receipt in the same transaction
	UpdateSettlement(ctx context.Context, loan *domain.LoanAggregate, receipt *domain.Document) error
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// GetSchedule retrieves the installments of a loan ordered by sequence
	GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error)

	// GetBySequence retrieves one installment
	GetBySequence(ctx context.Context, loanID string, sequence int) (*domain.InstallmentRecord, error)

	// Update writes a lifecycle transition if the stored version still
	// matches rec.Version, then bumps rec.Version. A stale version returns
	// errors.ErrConcurrentUpdate.
	Update(ctx context.Context, rec *domain.InstallmentRecord) error

	// ListOverdue gets unpaid installments due before today across all unsettled loans
	ListOverdue(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error)

	// ListDueBetween gets unpaid installments due in [from, to] across all unsettled loans
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentRecord, error)
}

// DocumentRepository defines the interface for rendered documents and templates
type DocumentRepository interface {
	// Save stores a rendered document body
	Save(ctx context.Context, doc *domain.Document) error

	// ListByLoanID retrieves the documents issued for a loan, newest first
	ListByLoanID(ctx context.Context, loanID string) ([]*domain.Document, error)

	// GetTemplate retrieves the stored default template of a document kind
	GetTemplate(ctx context.Context, kind domain.DocumentKind) (string, error)

	// SaveTemplate creates or replaces the default template of a document kind
	SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error
}
