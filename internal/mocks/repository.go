package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-documents/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.LoanAggregate) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAggregate), args.Error(1)
}

func (m *MockLoanRepository) ReplaceSchedule(ctx context.Context, loan *domain.LoanAggregate) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateSettlement(ctx context.Context, loan *domain.LoanAggregate, receipt *domain.Document) error {
	args := m.Called(ctx, loan, receipt)
	return args.Error(0)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func (m *MockInstallmentRepository) GetBySequence(ctx context.Context, loanID string, sequence int) (*domain.InstallmentRecord, error) {
	args := m.Called(ctx, loanID, sequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentRecord), args.Error(1)
}

func (m *MockInstallmentRepository) Update(ctx context.Context, rec *domain.InstallmentRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockInstallmentRepository) ListOverdue(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func (m *MockInstallmentRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Document, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetTemplate(ctx context.Context, kind domain.DocumentKind) (string, error) {
	args := m.Called(ctx, kind)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentRepository) SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error {
	args := m.Called(ctx, kind, body)
	return args.Error(0)
}

type MockScheduleCache struct {
	mock.Mock
}

func (m *MockScheduleCache) Get(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, bool, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Bool(1), args.Error(2)
}

func (m *MockScheduleCache) Set(ctx context.Context, loanID string, records []*domain.InstallmentRecord) error {
	args := m.Called(ctx, loanID, records)
	return args.Error(0)
}

func (m *MockScheduleCache) Invalidate(ctx context.Context, loanID string) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}
