package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-documents/internal/cache"
	"github.com/segyhp/loan-documents/internal/config"
	"github.com/segyhp/loan-documents/internal/document"
	"github.com/segyhp/loan-documents/internal/domain"
	"github.com/segyhp/loan-documents/internal/lifecycle"
	"github.com/segyhp/loan-documents/internal/render"
	"github.com/segyhp/loan-documents/internal/repository"
	"github.com/segyhp/loan-documents/internal/schedule"
	"github.com/segyhp/loan-documents/internal/words"
	customError "github.com/segyhp/loan-documents/pkg/errors"
	"github.com/segyhp/loan-documents/pkg/utils"
)

// LoanService is the application layer used by the HTTP handlers and the
// scheduler.
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.LoanAggregate, error)
	RescheduleLoan(ctx context.Context, loanID string, request *domain.RescheduleRequest) (*domain.LoanAggregate, error)
	GetLoan(ctx context.Context, loanID string) (*domain.LoanAggregate, error)
	GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error)
	GetSummary(ctx context.Context, loanID string) (*domain.SummaryResponse, error)

	AttachProof(ctx context.Context, loanID string, sequence int, reference string) (*domain.InstallmentResponse, error)
	ApproveInstallment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error)
	RejectInstallment(ctx context.Context, loanID string, sequence int) (*domain.InstallmentResponse, error)
	RecordPartialPayment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error)
	PostponeInstallment(ctx context.Context, loanID string, sequence int, dueDate time.Time, reason string) (*domain.InstallmentResponse, error)

	GenerateDocument(ctx context.Context, loanID string, kind domain.DocumentKind, request *domain.DocumentRequest) (*domain.DocumentResponse, error)
	ListDocuments(ctx context.Context, loanID string) ([]*domain.Document, error)
	SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error
	Settle(ctx context.Context, loanID string, request *domain.SettlementRequest) (*domain.SettlementResponse, error)

	OverdueInstallments(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error)
	UpcomingInstallments(ctx context.Context, from time.Time, days int) ([]*domain.InstallmentRecord, error)
}

type loanService struct {
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	documentRepo    repository.DocumentRepository
	scheduleCache   cache.ScheduleCache
	generator       *schedule.Generator
	assembler       *document.Assembler
	clock           utils.Clock
	logger          *logrus.Logger
}

// NewLoanService wires the service. scheduleCache may be nil, in which case
// every read goes to the repository.
func NewLoanService(
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	documentRepo repository.DocumentRepository,
	scheduleCache cache.ScheduleCache,
	cfg *config.Config,
	clock utils.Clock,
	logger *logrus.Logger,
) LoanService {
	if clock == nil {
		clock = utils.SystemClock{Location: cfg.Location()}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	assembler := document.NewAssembler(
		words.NewConverter(cfg.NumberSystem()),
		render.NewEngine(logger),
		clock,
		document.Settings{
			Currency:     cfg.Business.Currency,
			AmountSuffix: cfg.Business.AmountSuffix,
			DefaultCity:  cfg.Business.DefaultCity,
			DigitsLocale: cfg.Business.DigitsLocale,
		},
	)

	return &loanService{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		documentRepo:    documentRepo,
		scheduleCache:   scheduleCache,
		generator:       schedule.NewGenerator(cfg.Business.MaxInstallments),
		assembler:       assembler,
		clock:           clock,
		logger:          logger,
	}
}

// CreateLoan generates the schedule of a new loan and stores both
func (s *loanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.LoanAggregate, error) {
	existing, err := s.loanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	spec := request.Specification()
	records, err := s.generator.Generate(spec)
	if err != nil {
		return nil, err
	}
	assignIDs(request.LoanID, records)

	totalInterest, totalAmount := schedule.Totals(spec)
	now := s.clock.Now()
	loan := &domain.LoanAggregate{
		ID:              uuid.New(),
		LoanID:          request.LoanID,
		Spec:            spec,
		TotalInterest:   totalInterest,
		TotalAmount:     totalAmount,
		SettlementState: domain.SettlementNone,
		Installments:    records,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		if errors.Is(err, customError.ErrLoanAlreadyExists) {
			return nil, customError.WrapLoanAlreadyExists(request.LoanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	s.cacheSchedule(ctx, loan.LoanID, records)

	s.logger.WithFields(logrus.Fields{
		"loan_id":      loan.LoanID,
		"installments": len(records),
		"total_amount": loan.TotalAmount.String(),
	}).Info("Loan created")

	return loan, nil
}

// RescheduleLoan replaces the whole schedule of a loan that has not received
// any money yet.
func (s *loanService) RescheduleLoan(ctx context.Context, loanID string, request *domain.RescheduleRequest) (*domain.LoanAggregate, error) {
	loan, err := s.loadStoredLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsSettled() {
		return nil, customError.WrapLoanAlreadySettled(loanID)
	}
	for _, rec := range loan.Installments {
		if rec.Status != domain.StatusPending || rec.PaidAmount.IsPositive() {
			return nil, customError.WrapScheduleHasPayments(loanID)
		}
	}

	spec := request.Specification()
	records, err := s.generator.Generate(spec)
	if err != nil {
		return nil, err
	}
	assignIDs(loanID, records)

	next := *loan
	next.Spec = spec
	next.TotalInterest, next.TotalAmount = schedule.Totals(spec)
	next.Installments = records
	next.UpdatedAt = s.clock.Now()

	if err := s.loanRepo.ReplaceSchedule(ctx, &next); err != nil {
		switch {
		case errors.Is(err, customError.ErrLoanAlreadySettled):
			return nil, customError.WrapLoanAlreadySettled(loanID)
		case errors.Is(err, customError.ErrScheduleHasPayments):
			// A payment committed after the read above; drop any stale cached copy.
			s.invalidateSchedule(ctx, loanID)
			return nil, customError.WrapScheduleHasPayments(loanID)
		case errors.Is(err, sql.ErrNoRows):
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateSchedule(ctx, loanID)

	s.logger.WithFields(logrus.Fields{
		"loan_id":      loanID,
		"installments": len(records),
	}).Info("Loan rescheduled")

	return &next, nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	return s.loadLoan(ctx, loanID)
}

// GetSchedule returns the installments of a loan, served from the cache when
// possible.
func (s *loanService) GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error) {
	if s.scheduleCache != nil {
		records, ok, err := s.scheduleCache.Get(ctx, loanID)
		if err != nil {
			s.logger.WithError(err).WithField("loan_id", loanID).Warn("Schedule cache read failed")
		}
		if ok {
			return records, nil
		}
	}

	records, err := s.storedSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}

	s.cacheSchedule(ctx, loanID, records)
	return records, nil
}

func (s *loanService) GetSummary(ctx context.Context, loanID string) (*domain.SummaryResponse, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.SummaryResponse{
		LoanID:  loanID,
		Summary: lifecycle.Summarize(loan.Installments, s.today()),
		State:   loan.SettlementState,
	}, nil
}

func (s *loanService) AttachProof(ctx context.Context, loanID string, sequence int, reference string) (*domain.InstallmentResponse, error) {
	return s.transition(ctx, loanID, sequence, "attach_proof", func(rec *domain.InstallmentRecord) (*domain.InstallmentRecord, error) {
		return lifecycle.AttachProof(rec, reference)
	})
}

func (s *loanService) ApproveInstallment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error) {
	return s.transition(ctx, loanID, sequence, "approve", func(rec *domain.InstallmentRecord) (*domain.InstallmentRecord, error) {
		return lifecycle.Approve(rec, amount, s.clock.Now())
	})
}

func (s *loanService) RejectInstallment(ctx context.Context, loanID string, sequence int) (*domain.InstallmentResponse, error) {
	return s.transition(ctx, loanID, sequence, "reject", lifecycle.Reject)
}

func (s *loanService) RecordPartialPayment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error) {
	return s.transition(ctx, loanID, sequence, "partial_payment", func(rec *domain.InstallmentRecord) (*domain.InstallmentRecord, error) {
		return lifecycle.RecordPartialPayment(rec, amount, s.clock.Now())
	})
}

func (s *loanService) PostponeInstallment(ctx context.Context, loanID string, sequence int, dueDate time.Time, reason string) (*domain.InstallmentResponse, error) {
	return s.transition(ctx, loanID, sequence, "postpone", func(rec *domain.InstallmentRecord) (*domain.InstallmentRecord, error) {
		return lifecycle.Postpone(rec, utils.DateOnly(dueDate), reason)
	})
}

// transition loads one installment, applies a lifecycle step and stores the
// result guarded by the record version.
func (s *loanService) transition(
	ctx context.Context,
	loanID string,
	sequence int,
	action string,
	apply func(*domain.InstallmentRecord) (*domain.InstallmentRecord, error),
) (*domain.InstallmentResponse, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	if loan.IsSettled() {
		return nil, customError.WrapLoanAlreadySettled(loanID)
	}

	rec, err := s.installmentRepo.GetBySequence(ctx, loanID, sequence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapInstallmentNotFound(loanID, sequence)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	next, err := apply(rec)
	if err != nil {
		return nil, err
	}

	if err := s.installmentRepo.Update(ctx, next); err != nil {
		if errors.Is(err, customError.ErrConcurrentUpdate) {
			return nil, customError.WrapConcurrentUpdate(loanID, sequence)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateSchedule(ctx, loanID)

	s.logger.WithFields(logrus.Fields{
		"loan_id":  loanID,
		"sequence": sequence,
		"action":   action,
		"from":     rec.Status,
		"to":       next.Status,
	}).Info("Installment updated")

	return &domain.InstallmentResponse{
		Installment: next,
		Status:      lifecycle.EffectiveStatus(next),
		Overdue:     lifecycle.IsOverdue(next, s.today()),
	}, nil
}

// GenerateDocument renders and stores one document. The template comes from
// the request or, when empty, from the stored default of its kind.
func (s *loanService) GenerateDocument(ctx context.Context, loanID string, kind domain.DocumentKind, request *domain.DocumentRequest) (*domain.DocumentResponse, error) {
	if !kind.Valid() {
		return nil, customError.WrapValidation("unknown document kind %q", kind)
	}

	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	template, err := s.resolveTemplate(ctx, kind, request.Template)
	if err != nil {
		return nil, err
	}

	var opts []document.Option
	if request.Installment > 0 {
		opts = append(opts, document.WithInstallment(request.Installment))
	}

	body, err := s.assembler.Assemble(kind, loan, request.Party, template, opts...)
	if err != nil {
		return nil, err
	}

	return s.storeDocument(ctx, loanID, kind, body)
}

func (s *loanService) ListDocuments(ctx context.Context, loanID string) ([]*domain.Document, error) {
	if _, err := s.loadLoan(ctx, loanID); err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return docs, nil
}

func (s *loanService) SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error {
	if !kind.Valid() {
		return customError.WrapValidation("unknown document kind %q", kind)
	}
	if err := s.documentRepo.SaveTemplate(ctx, kind, body); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.WithField("kind", kind).Info("Document template saved")
	return nil
}

// Settle closes a fully paid loan and issues its settlement receipt. The
// flag and the receipt are stored together or not at all.
func (s *loanService) Settle(ctx context.Context, loanID string, request *domain.SettlementRequest) (*domain.SettlementResponse, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	template, err := s.resolveTemplate(ctx, domain.DocumentSettlementReceipt, request.Template)
	if err != nil {
		return nil, err
	}

	settled, err := lifecycle.CompleteSettlement(loan, request.Amount, s.clock.Now())
	if err != nil {
		return nil, err
	}

	body, err := s.assembler.Assemble(domain.DocumentSettlementReceipt, settled, request.Party, template)
	if err != nil {
		return nil, err
	}

	doc := s.newDocument(loanID, domain.DocumentSettlementReceipt, body)
	if err := s.loanRepo.UpdateSettlement(ctx, settled, doc); err != nil {
		if errors.Is(err, customError.ErrLoanAlreadySettled) {
			return nil, customError.WrapLoanAlreadySettled(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":   loanID,
		"amount":    settled.SettlementAmount.String(),
		"reference": doc.Reference,
	}).Info("Loan settled")

	return &domain.SettlementResponse{Loan: settled, Receipt: documentResponse(doc)}, nil
}

// OverdueInstallments lists unpaid installments of open loans due before today.
func (s *loanService) OverdueInstallments(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error) {
	records, err := s.installmentRepo.ListOverdue(ctx, utils.DateOnly(today))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return records, nil
}

// UpcomingInstallments lists unpaid installments of open loans due within
// days of from, both ends included.
func (s *loanService) UpcomingInstallments(ctx context.Context, from time.Time, days int) ([]*domain.InstallmentRecord, error) {
	if days < 0 {
		return nil, customError.WrapValidation("days must not be negative, got %d", days)
	}

	start := utils.DateOnly(from)
	records, err := s.installmentRepo.ListDueBetween(ctx, start, start.AddDate(0, 0, days))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return records, nil
}

// loadLoan returns the loan with its schedule attached.
func (s *loanService) loadLoan(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	return s.load(ctx, loanID, s.GetSchedule)
}

// loadStoredLoan bypasses the schedule cache, for decisions that must see
// every committed payment.
func (s *loanService) loadStoredLoan(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	return s.load(ctx, loanID, s.storedSchedule)
}

func (s *loanService) load(
	ctx context.Context,
	loanID string,
	fetch func(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error),
) (*domain.LoanAggregate, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	records, err := fetch(ctx, loanID)
	if err != nil {
		return nil, err
	}
	loan.Installments = records
	return loan, nil
}

func (s *loanService) storedSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error) {
	records, err := s.installmentRepo.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	// Every stored loan has at least one installment.
	if len(records) == 0 {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	return records, nil
}

func (s *loanService) resolveTemplate(ctx context.Context, kind domain.DocumentKind, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	body, err := s.documentRepo.GetTemplate(ctx, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", customError.WrapTemplateNotFound(string(kind))
		}
		return "", customError.WrapDatabaseError(err)
	}
	return body, nil
}

func (s *loanService) newDocument(loanID string, kind domain.DocumentKind, body string) *domain.Document {
	return &domain.Document{
		Reference: uuid.NewString(),
		LoanID:    loanID,
		Kind:      kind,
		Body:      body,
		CreatedAt: s.clock.Now(),
	}
}

func (s *loanService) storeDocument(ctx context.Context, loanID string, kind domain.DocumentKind, body string) (*domain.DocumentResponse, error) {
	doc := s.newDocument(loanID, kind, body)
	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":   loanID,
		"kind":      kind,
		"reference": doc.Reference,
	}).Info("Document issued")

	return documentResponse(doc), nil
}

func documentResponse(doc *domain.Document) *domain.DocumentResponse {
	return &domain.DocumentResponse{
		LoanID:    doc.LoanID,
		Kind:      doc.Kind,
		Reference: doc.Reference,
		Body:      doc.Body,
	}
}

// cacheSchedule and invalidateSchedule only log failures; the database stays
// the source of truth.
func (s *loanService) cacheSchedule(ctx context.Context, loanID string, records []*domain.InstallmentRecord) {
	if s.scheduleCache == nil {
		return
	}
	if err := s.scheduleCache.Set(ctx, loanID, records); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", loanID).Warn("Schedule cache write failed")
	}
}

func (s *loanService) invalidateSchedule(ctx context.Context, loanID string) {
	if s.scheduleCache == nil {
		return
	}
	if err := s.scheduleCache.Invalidate(ctx, loanID); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", loanID).Warn("Schedule cache invalidation failed")
	}
}

func (s *loanService) today() time.Time {
	return utils.DateOnly(s.clock.Now())
}

func assignIDs(loanID string, records []*domain.InstallmentRecord) {
	for _, rec := range records {
		rec.ID = uuid.New()
		rec.LoanID = loanID
	}
}
