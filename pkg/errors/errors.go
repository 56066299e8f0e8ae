package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSpecification = errors.New("invalid loan specification")
	ErrValidation           = errors.New("validation failed")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyExists    = errors.New("loan already exists")
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrConcurrentUpdate     = errors.New("record was modified concurrently")
	ErrTemplateNotFound     = errors.New("document template not found")
)

// Loan-level refusals are validation failures of the lifecycle.
var (
	ErrLoanAlreadySettled    = fmt.Errorf("%w: loan is already settled", ErrValidation)
	ErrSettlementNotEligible = fmt.Errorf("%w: loan is not eligible for settlement", ErrValidation)
	ErrScheduleHasPayments   = fmt.Errorf("%w: schedule already has recorded payments", ErrValidation)
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeInvalidSpecification  = "INVALID_SPECIFICATION"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists     = "LOAN_ALREADY_EXISTS"
	ErrCodeInstallmentNotFound   = "INSTALLMENT_NOT_FOUND"
	ErrCodeConcurrentUpdate      = "CONCURRENT_UPDATE"
	ErrCodeTemplateNotFound      = "TEMPLATE_NOT_FOUND"
	ErrCodeLoanAlreadySettled    = "LOAN_ALREADY_SETTLED"
	ErrCodeSettlementNotEligible = "SETTLEMENT_NOT_ELIGIBLE"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// CodeOf returns the business code carried by err, or "" when err is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapInvalidAmount(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf(format, args...),
		ErrInvalidAmount,
	)
}

func WrapInvalidSpecification(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidSpecification,
		fmt.Sprintf(format, args...),
		ErrInvalidSpecification,
	)
}

func WrapValidation(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf(format, args...),
		ErrValidation,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapInstallmentNotFound(loanID string, sequence int) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %d of loan %s not found", sequence, loanID),
		ErrInstallmentNotFound,
	)
}

func WrapConcurrentUpdate(loanID string, sequence int) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Installment %d of loan %s was changed by another request", sequence, loanID),
		ErrConcurrentUpdate,
	)
}

func WrapTemplateNotFound(kind string) *BusinessError {
	return NewBusinessError(
		ErrCodeTemplateNotFound,
		fmt.Sprintf("No template stored for document kind %s", kind),
		ErrTemplateNotFound,
	)
}

func WrapLoanAlreadySettled(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadySettled,
		fmt.Sprintf("Loan with ID %s is already settled", loanID),
		ErrLoanAlreadySettled,
	)
}

func WrapScheduleHasPayments(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("Loan with ID %s cannot be rescheduled: an installment already has a recorded payment", loanID),
		ErrScheduleHasPayments,
	)
}

func WrapSettlementNotEligible(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSettlementNotEligible,
		fmt.Sprintf("Loan with ID %s still has unpaid installments", loanID),
		ErrSettlementNotEligible,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
