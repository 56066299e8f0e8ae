package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-documents/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

// NewMockLoanService creates a new mock loan service instance
func NewMockLoanService() *MockLoanService {
	return &MockLoanService{}
}

func (m *MockLoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.LoanAggregate, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAggregate), args.Error(1)
}

func (m *MockLoanService) RescheduleLoan(ctx context.Context, loanID string, request *domain.RescheduleRequest) (*domain.LoanAggregate, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAggregate), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID string) (*domain.LoanAggregate, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanAggregate), args.Error(1)
}

func (m *MockLoanService) GetSchedule(ctx context.Context, loanID string) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func (m *MockLoanService) GetSummary(ctx context.Context, loanID string) (*domain.SummaryResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SummaryResponse), args.Error(1)
}

func (m *MockLoanService) AttachProof(ctx context.Context, loanID string, sequence int, reference string) (*domain.InstallmentResponse, error) {
	args := m.Called(ctx, loanID, sequence, reference)
	return installmentResponse(args)
}

func (m *MockLoanService) ApproveInstallment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error) {
	args := m.Called(ctx, loanID, sequence, amount)
	return installmentResponse(args)
}

func (m *MockLoanService) RejectInstallment(ctx context.Context, loanID string, sequence int) (*domain.InstallmentResponse, error) {
	args := m.Called(ctx, loanID, sequence)
	return installmentResponse(args)
}

func (m *MockLoanService) RecordPartialPayment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.InstallmentResponse, error) {
	args := m.Called(ctx, loanID, sequence, amount)
	return installmentResponse(args)
}

func (m *MockLoanService) PostponeInstallment(ctx context.Context, loanID string, sequence int, dueDate time.Time, reason string) (*domain.InstallmentResponse, error) {
	args := m.Called(ctx, loanID, sequence, dueDate, reason)
	return installmentResponse(args)
}

func (m *MockLoanService) GenerateDocument(ctx context.Context, loanID string, kind domain.DocumentKind, request *domain.DocumentRequest) (*domain.DocumentResponse, error) {
	args := m.Called(ctx, loanID, kind, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentResponse), args.Error(1)
}

func (m *MockLoanService) ListDocuments(ctx context.Context, loanID string) ([]*domain.Document, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockLoanService) SaveTemplate(ctx context.Context, kind domain.DocumentKind, body string) error {
	args := m.Called(ctx, kind, body)
	return args.Error(0)
}

func (m *MockLoanService) Settle(ctx context.Context, loanID string, request *domain.SettlementRequest) (*domain.SettlementResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResponse), args.Error(1)
}

func (m *MockLoanService) OverdueInstallments(ctx context.Context, today time.Time) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func (m *MockLoanService) UpcomingInstallments(ctx context.Context, from time.Time, days int) ([]*domain.InstallmentRecord, error) {
	args := m.Called(ctx, from, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentRecord), args.Error(1)
}

func installmentResponse(args mock.Arguments) (*domain.InstallmentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentResponse), args.Error(1)
}
