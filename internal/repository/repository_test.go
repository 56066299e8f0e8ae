package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-documents/internal/domain"
	"github.com/segyhp/loan-documents/internal/lifecycle"
	"github.com/segyhp/loan-documents/internal/schedule"
	customError "github.com/segyhp/loan-documents/pkg/errors"
)

// These tests run against a disposable postgres database named by
// TEST_DATABASE_URL and are skipped without it.
var testDB *sqlx.DB

func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to test database: %v", err))
		}
		if err := executeInitSQL(db); err != nil {
			panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
		}
		testDB = db
	}

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func executeInitSQL(db *sqlx.DB) error {
	sqlBytes, err := os.ReadFile("../../scripts/init.sql")
	if err != nil {
		return fmt.Errorf("failed to read init.sql: %w", err)
	}

	if _, err = db.Exec(string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute init.sql: %w", err)
	}

	return nil
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cleanupTestData(testDB)
	return testDB
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM documents")
	db.Exec("DELETE FROM document_templates")
	db.Exec("DELETE FROM installment_attachments")
	db.Exec("DELETE FROM installments")
	db.Exec("DELETE FROM loans")
}

func newLoan(t *testing.T, loanID string) *domain.LoanAggregate {
	t.Helper()

	spec := domain.LoanSpecification{
		Principal:          decimal.NewFromInt(10000),
		AnnualInterestRate: decimal.NewFromInt(12),
		PeriodicPayment:    decimal.NewFromInt(1000),
		Cadence:            domain.CadenceMonthly,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RepaymentDay:       10,
	}
	records, err := schedule.NewGenerator(0).Generate(spec)
	require.NoError(t, err)
	for _, rec := range records {
		rec.ID = uuid.New()
		rec.LoanID = loanID
	}

	totalInterest, totalAmount := schedule.Totals(spec)
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.LoanAggregate{
		ID:              uuid.New(),
		LoanID:          loanID,
		Spec:            spec,
		TotalInterest:   totalInterest,
		TotalAmount:     totalAmount,
		SettlementState: domain.SettlementNone,
		Installments:    records,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	installments := NewInstallmentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	stored, err := repo.GetByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, stored.ID)
	assert.True(t, stored.Spec.Principal.Equal(loan.Spec.Principal))
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(11200)))
	assert.Equal(t, domain.CadenceMonthly, stored.Spec.Cadence)
	assert.Equal(t, 10, stored.Spec.RepaymentDay)
	assert.Equal(t, domain.SettlementNone, stored.SettlementState)
	assert.Nil(t, stored.SettlementAmount)

	records, err := installments.GetSchedule(ctx, "LOAN-001")
	require.NoError(t, err)
	require.Len(t, records, 12)
	assert.Equal(t, 1, records[0].Sequence)
	assert.Equal(t, "107.14", records[0].InterestPortion.StringFixed(2))
	assert.True(t, records[11].Amount.Equal(decimal.NewFromInt(200)))
}

func TestLoanRepository_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLoan(t, "LOAN-001")))

	err := repo.Create(ctx, newLoan(t, "LOAN-001"))
	assert.ErrorIs(t, err, customError.ErrLoanAlreadyExists)
}

func TestLoanRepository_GetByLoanID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)

	loan, err := repo.GetByLoanID(context.Background(), "NOPE")
	assert.Nil(t, loan)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoanRepository_ReplaceSchedule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	installments := NewInstallmentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	loan.Spec.PeriodicPayment = decimal.NewFromInt(2800)
	records, err := schedule.NewGenerator(0).Generate(loan.Spec)
	require.NoError(t, err)
	for _, rec := range records {
		rec.ID = uuid.New()
		rec.LoanID = loan.LoanID
	}
	loan.Installments = records

	require.NoError(t, repo.ReplaceSchedule(ctx, loan))

	stored, err := installments.GetSchedule(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	fresh, err := repo.GetByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.True(t, fresh.Spec.PeriodicPayment.Equal(decimal.NewFromInt(2800)))
}

func TestLoanRepository_ReplaceSchedule_RefusedAfterPayment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	installments := NewInstallmentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	first, err := installments.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	partial, err := lifecycle.RecordPartialPayment(first, decimal.NewFromInt(100), time.Now())
	require.NoError(t, err)
	require.NoError(t, installments.Update(ctx, partial))

	// The caller still holds the all-PENDING schedule it read earlier.
	err = repo.ReplaceSchedule(ctx, loan)
	assert.ErrorIs(t, err, customError.ErrScheduleHasPayments)

	stored, err := installments.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartialPaid, stored.Status)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(100)))
}

func TestLoanRepository_ReplaceSchedule_WaitsForPaymentInFlight(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	installments := NewInstallmentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	payment, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer payment.Rollback()
	_, err = payment.ExecContext(ctx, `
		UPDATE installments SET status = 'PARTIAL_PAID', paid_amount = 100, version = version + 1
		WHERE loan_id = $1 AND sequence = 1`, "LOAN-001")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- repo.ReplaceSchedule(ctx, loan) }()

	select {
	case err := <-done:
		t.Fatalf("replace did not wait for the payment row lock: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, payment.Commit())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, customError.ErrScheduleHasPayments)
	case <-time.After(5 * time.Second):
		t.Fatal("replace still blocked after the payment committed")
	}

	stored, err := installments.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(100)))
}

func TestLoanRepository_ReplaceSchedule_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)

	err := repo.ReplaceSchedule(context.Background(), newLoan(t, "NOPE"))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func settledCopy(loan *domain.LoanAggregate) *domain.LoanAggregate {
	amount := decimal.NewFromInt(11000)
	settledAt := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	settled := *loan
	settled.SettlementState = domain.SettlementCompleted
	settled.SettlementAmount = &amount
	settled.SettledAt = &settledAt
	settled.UpdatedAt = settledAt
	return &settled
}

func receiptFor(loanID, reference string) *domain.Document {
	return &domain.Document{
		Reference: reference,
		LoanID:    loanID,
		Kind:      domain.DocumentSettlementReceipt,
		Body:      "receipt " + reference,
		CreatedAt: time.Now().UTC(),
	}
}

func TestLoanRepository_UpdateSettlement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	documents := NewDocumentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	settled := settledCopy(loan)
	receipt := receiptFor("LOAN-001", uuid.NewString())
	require.NoError(t, repo.UpdateSettlement(ctx, settled, receipt))

	stored, err := repo.GetByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.True(t, stored.IsSettled())
	require.NotNil(t, stored.SettlementAmount)
	assert.True(t, stored.SettlementAmount.Equal(decimal.NewFromInt(11000)))

	docs, err := documents.ListByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, receipt.Reference, docs[0].Reference)

	err = repo.UpdateSettlement(ctx, settled, receiptFor("LOAN-001", uuid.NewString()))
	assert.ErrorIs(t, err, customError.ErrLoanAlreadySettled)

	docs, err = documents.ListByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.Len(t, docs, 1, "a refused settlement stores no second receipt")

	err = repo.ReplaceSchedule(ctx, settled)
	assert.ErrorIs(t, err, customError.ErrLoanAlreadySettled)
}

func TestLoanRepository_UpdateSettlement_ReceiptFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLoanRepository(db)
	documents := NewDocumentRepository(db)
	ctx := context.Background()

	loan := newLoan(t, "LOAN-001")
	require.NoError(t, repo.Create(ctx, loan))

	taken := receiptFor("LOAN-001", uuid.NewString())
	require.NoError(t, documents.Save(ctx, taken))

	// Reusing a stored reference makes the receipt insert fail.
	err := repo.UpdateSettlement(ctx, settledCopy(loan), receiptFor("LOAN-001", taken.Reference))
	require.Error(t, err)

	stored, err := repo.GetByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	assert.False(t, stored.IsSettled())
	assert.Nil(t, stored.SettlementAmount)

	require.NoError(t, repo.UpdateSettlement(ctx, settledCopy(loan), receiptFor("LOAN-001", uuid.NewString())))
}

func TestInstallmentRepository_UpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	loans := NewLoanRepository(db)
	repo := NewInstallmentRepository(db)
	ctx := context.Background()

	require.NoError(t, loans.Create(ctx, newLoan(t, "LOAN-001")))

	rec, err := repo.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	stale := rec.Clone()

	withProof, err := lifecycle.AttachProof(rec, "uploads/receipt-1.pdf")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, withProof))
	assert.Equal(t, 1, withProof.Version)

	stored, err := repo.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/receipt-1.pdf"}, stored.Attachments)
	assert.Equal(t, domain.StatusPendingReview, lifecycle.EffectiveStatus(stored))

	paid, err := lifecycle.Approve(stale, stale.Amount, time.Now())
	require.NoError(t, err)
	err = repo.Update(ctx, paid)
	assert.ErrorIs(t, err, customError.ErrConcurrentUpdate, "second writer with the old version loses")
}

func TestInstallmentRepository_GetBySequence_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInstallmentRepository(db)

	rec, err := repo.GetBySequence(context.Background(), "LOAN-001", 99)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInstallmentRepository_ListOverdueAndDue(t *testing.T) {
	db := setupTestDB(t)
	loans := NewLoanRepository(db)
	repo := NewInstallmentRepository(db)
	ctx := context.Background()

	require.NoError(t, loans.Create(ctx, newLoan(t, "LOAN-001")))

	first, err := repo.GetBySequence(ctx, "LOAN-001", 1)
	require.NoError(t, err)
	paid, err := lifecycle.Approve(first, first.Amount, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, paid))

	today := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	overdue, err := repo.ListOverdue(ctx, today)
	require.NoError(t, err)
	require.Len(t, overdue, 2, "March and April installments are late, February is paid")
	assert.Equal(t, 2, overdue[0].Sequence)
	assert.Equal(t, 3, overdue[1].Sequence)

	due, err := repo.ListDueBetween(ctx, today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 4, due[0].Sequence)
}

func TestDocumentRepository(t *testing.T) {
	db := setupTestDB(t)
	loans := NewLoanRepository(db)
	repo := NewDocumentRepository(db)
	ctx := context.Background()

	require.NoError(t, loans.Create(ctx, newLoan(t, "LOAN-001")))

	_, err := repo.GetTemplate(ctx, domain.DocumentPromissoryNote)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, repo.SaveTemplate(ctx, domain.DocumentPromissoryNote, "v1 {{debtor_name}}"))
	require.NoError(t, repo.SaveTemplate(ctx, domain.DocumentPromissoryNote, "v2 {{debtor_name}}"))

	body, err := repo.GetTemplate(ctx, domain.DocumentPromissoryNote)
	require.NoError(t, err)
	assert.Equal(t, "v2 {{debtor_name}}", body)

	doc := &domain.Document{
		Reference: uuid.NewString(),
		LoanID:    "LOAN-001",
		Kind:      domain.DocumentPromissoryNote,
		Body:      "v2 سالم",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, doc))

	docs, err := repo.ListByLoanID(ctx, "LOAN-001")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.Reference, docs[0].Reference)
	assert.Equal(t, "v2 سالم", docs[0].Body)
}
