package domain

import "time"

// DocumentKind selects the field set used to fill a template.
type DocumentKind string

const (
	DocumentDebtAcknowledgment DocumentKind = "debt_acknowledgment"
	DocumentPromissoryNote     DocumentKind = "promissory_note"
	DocumentPaymentProof       DocumentKind = "payment_proof"
	DocumentSettlementReceipt  DocumentKind = "settlement_receipt"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentDebtAcknowledgment, DocumentPromissoryNote, DocumentPaymentProof, DocumentSettlementReceipt:
		return true
	}
	return false
}

// FieldMap maps placeholder names to replacement text.
type FieldMap map[string]string

// Party identifies one side of a document.
type Party struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

// PartyData holds the free-form identity data printed on documents.
type PartyData struct {
	Creditor    Party  `json:"creditor"`
	Debtor      Party  `json:"debtor"`
	Guarantor   Party  `json:"guarantor"`
	IssueCity   string `json:"issue_city,omitempty"`
	PaymentCity string `json:"payment_city,omitempty"`
}

// Document is a rendered document body handed to storage.
type Document struct {
	Reference string       `json:"reference" db:"reference"`
	LoanID    string       `json:"loan_id" db:"loan_id"`
	Kind      DocumentKind `json:"kind" db:"kind"`
	Body      string       `json:"body" db:"body"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

type DocumentRequest struct {
	Party       PartyData `json:"party"`
	Template    string    `json:"template,omitempty"`
	Installment int       `json:"installment,omitempty" validate:"min=0"`
}

type DocumentResponse struct {
	LoanID    string       `json:"loan_id"`
	Kind      DocumentKind `json:"kind"`
	Reference string       `json:"reference"`
	Body      string       `json:"body"`
}

type TemplateRequest struct {
	Body string `json:"body" validate:"required"`
}

type SettlementResponse struct {
	Loan    *LoanAggregate    `json:"loan"`
	Receipt *DocumentResponse `json:"receipt"`
}
