// Package document builds the field maps of loan documents and renders them
// through the template engine. It performs no I/O.
package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/segyhp/loan-documents/internal/domain"
	"github.com/segyhp/loan-documents/internal/lifecycle"
	"github.com/segyhp/loan-documents/internal/render"
	"github.com/segyhp/loan-documents/internal/words"
	customError "github.com/segyhp/loan-documents/pkg/errors"
	"github.com/segyhp/loan-documents/pkg/utils"
)

// Settings carries the business defaults printed on every document.
type Settings struct {
	Currency     string // e.g. "ريال"
	AmountSuffix string // appended after amounts in words, e.g. "فقط لا غير"
	DefaultCity  string // issue city when the request names none
	DigitsLocale string // BCP 47 tag for digit grouping, default "en"
}

// Assembler turns a loan and its parties into document text.
type Assembler struct {
	words    *words.Converter
	engine   *render.Engine
	clock    utils.Clock
	printer  *message.Printer
	settings Settings
}

// NewAssembler wires the assembler collaborators. A nil converter spells
// amounts in Arabic; a nil clock reads the system clock.
func NewAssembler(converter *words.Converter, engine *render.Engine, clock utils.Clock, settings Settings) *Assembler {
	if converter == nil {
		converter = words.NewConverter(nil)
	}
	if engine == nil {
		engine = render.NewEngine(nil)
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}

	tag := language.English
	if settings.DigitsLocale != "" {
		if parsed, err := language.Parse(settings.DigitsLocale); err == nil {
			tag = parsed
		}
	}

	return &Assembler{
		words:    converter,
		engine:   engine,
		clock:    clock,
		printer:  message.NewPrinter(tag),
		settings: settings,
	}
}

type options struct {
	installment int
}

// Option tunes a single Fields or Assemble call.
type Option func(*options)

// WithInstallment selects the installment printed on a payment proof.
// Without it the most recently paid installment is used.
func WithInstallment(sequence int) Option {
	return func(o *options) {
		o.installment = sequence
	}
}

// Assemble builds the field map for kind and renders template with it.
func (a *Assembler) Assemble(kind domain.DocumentKind, loan *domain.LoanAggregate, party domain.PartyData, template string, opts ...Option) (string, error) {
	fields, err := a.Fields(kind, loan, party, opts...)
	if err != nil {
		return "", err
	}
	return a.engine.Render(template, fields), nil
}

// Fields returns the placeholder values of a document of the given kind.
func (a *Assembler) Fields(kind domain.DocumentKind, loan *domain.LoanAggregate, party domain.PartyData, opts ...Option) (domain.FieldMap, error) {
	if loan == nil {
		return nil, customError.WrapValidation("loan is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	fields, err := a.commonFields(loan, party)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.DocumentDebtAcknowledgment:
		err = a.debtFields(fields, loan)
	case domain.DocumentPromissoryNote:
		err = a.promissoryFields(fields, loan, party)
	case domain.DocumentPaymentProof:
		err = a.paymentProofFields(fields, loan, o.installment)
	case domain.DocumentSettlementReceipt:
		err = a.settlementFields(fields, loan)
	default:
		err = customError.WrapValidation("unknown document kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (a *Assembler) commonFields(loan *domain.LoanAggregate, party domain.PartyData) (domain.FieldMap, error) {
	today := a.clock.Now()
	fields := domain.FieldMap{
		"today_gregorian":   FormatGregorian(today),
		"today_hijri":       FormatHijri(today),
		"currency":          a.settings.Currency,
		"creditor_name":     party.Creditor.Name,
		"creditor_id":       party.Creditor.NationalID,
		"debtor_name":       party.Debtor.Name,
		"debtor_id":         party.Debtor.NationalID,
		"loan_id":           loan.LoanID,
		"installment_count": strconv.Itoa(len(loan.Installments)),
	}
	if err := a.putAmount(fields, "principal", loan.Spec.Principal); err != nil {
		return nil, err
	}
	if err := a.putAmount(fields, "total_amount", loan.TotalAmount); err != nil {
		return nil, err
	}
	return fields, nil
}

func (a *Assembler) debtFields(fields domain.FieldMap, loan *domain.LoanAggregate) error {
	if len(loan.Installments) == 0 {
		return customError.WrapValidation("loan %s has no installments", loan.LoanID)
	}
	if err := a.putAmount(fields, "amount", loan.TotalAmount); err != nil {
		return err
	}
	putDate(fields, "start_date", loan.Spec.StartDate)
	putDate(fields, "first_due_date", loan.Installments[0].DueDate)
	putDate(fields, "last_due_date", loan.Installments[len(loan.Installments)-1].DueDate)
	return nil
}

func (a *Assembler) promissoryFields(fields domain.FieldMap, loan *domain.LoanAggregate, party domain.PartyData) error {
	if err := a.debtFields(fields, loan); err != nil {
		return err
	}

	issueCity := strings.TrimSpace(party.IssueCity)
	if issueCity == "" {
		issueCity = a.settings.DefaultCity
	}
	paymentCity := strings.TrimSpace(party.PaymentCity)
	if paymentCity == "" {
		paymentCity = issueCity
	}

	fields["guarantor_name"] = party.Guarantor.Name
	fields["guarantor_id"] = party.Guarantor.NationalID
	fields["issue_city"] = issueCity
	fields["payment_city"] = paymentCity
	putDate(fields, "due_date", loan.Installments[len(loan.Installments)-1].DueDate)
	return nil
}

func (a *Assembler) paymentProofFields(fields domain.FieldMap, loan *domain.LoanAggregate, sequence int) error {
	var rec *domain.InstallmentRecord
	if sequence > 0 {
		rec = loan.Installment(sequence)
		if rec == nil {
			return customError.WrapInstallmentNotFound(loan.LoanID, sequence)
		}
		if !rec.PaidAmount.IsPositive() {
			return customError.WrapValidation("installment %d of loan %s has no recorded payment", sequence, loan.LoanID)
		}
	} else {
		rec = lastPaid(loan.Installments)
		if rec == nil {
			return customError.WrapValidation("loan %s has no paid installment", loan.LoanID)
		}
	}

	fields["installment_number"] = strconv.Itoa(rec.Sequence)
	if err := a.putAmount(fields, "installment_amount", rec.Amount); err != nil {
		return err
	}
	if err := a.putAmount(fields, "paid_amount", rec.PaidAmount); err != nil {
		return err
	}
	if rec.PaymentDate != nil {
		putDate(fields, "payment_date", *rec.PaymentDate)
	} else {
		fields["payment_date_gregorian"] = ""
		fields["payment_date_hijri"] = ""
	}

	outstanding := lifecycle.Summarize(loan.Installments, a.clock.Now()).OutstandingAmount
	fields["remaining_balance"] = a.FormatAmount(outstanding)
	return nil
}

func (a *Assembler) settlementFields(fields domain.FieldMap, loan *domain.LoanAggregate) error {
	if !lifecycle.AllPaid(loan.Installments) {
		return customError.WrapSettlementNotEligible(loan.LoanID)
	}

	amount := loan.TotalAmount
	if loan.SettlementAmount != nil {
		amount = *loan.SettlementAmount
	}
	settledAt := a.clock.Now()
	if loan.SettledAt != nil {
		settledAt = *loan.SettledAt
	}

	if err := a.putAmount(fields, "amount", amount); err != nil {
		return err
	}
	putDate(fields, "settlement_date", settledAt)

	fields["discount_original_row"] = ""
	fields["discount_final_row"] = ""
	if amount.LessThan(loan.TotalAmount) {
		original, err := a.amountRow(loan.TotalAmount)
		if err != nil {
			return err
		}
		final, err := a.amountRow(amount)
		if err != nil {
			return err
		}
		fields["discount_original_row"] = original
		fields["discount_final_row"] = final
	}
	return nil
}

// FormatAmount renders d with grouped digits and two decimal places,
// e.g. "11,200.00".
func (a *Assembler) FormatAmount(d decimal.Decimal) string {
	fixed := utils.RoundMoney(d).Abs().StringFixed(utils.MoneyPlaces)
	whole, fraction, _ := strings.Cut(fixed, ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return utils.RoundMoney(d).StringFixed(utils.MoneyPlaces)
	}
	out := a.printer.Sprintf("%d", n) + "." + fraction
	if d.IsNegative() && !utils.RoundMoney(d).IsZero() {
		out = "-" + out
	}
	return out
}

// putAmount sets name to the grouped digits and name_words to the amount in
// words with the configured currency and suffix.
func (a *Assembler) putAmount(fields domain.FieldMap, name string, amount decimal.Decimal) error {
	phrase, err := a.words.AmountPhrase(amount, a.settings.Currency, a.settings.AmountSuffix)
	if err != nil {
		return err
	}
	fields[name] = a.FormatAmount(amount)
	fields[name+"_words"] = phrase
	return nil
}

func (a *Assembler) amountRow(amount decimal.Decimal) (string, error) {
	phrase, err := a.words.AmountPhrase(amount, a.settings.Currency, a.settings.AmountSuffix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s (%s)", a.FormatAmount(amount), a.settings.Currency, phrase), nil
}

func putDate(fields domain.FieldMap, name string, t time.Time) {
	fields[name+"_gregorian"] = FormatGregorian(t)
	fields[name+"_hijri"] = FormatHijri(t)
}

// lastPaid picks the PAID installment with the latest payment date, the
// higher sequence winning ties.
func lastPaid(records []*domain.InstallmentRecord) *domain.InstallmentRecord {
	var found *domain.InstallmentRecord
	for _, rec := range records {
		if rec.Status != domain.StatusPaid {
			continue
		}
		if found == nil || paidAfter(rec, found) {
			found = rec
		}
	}
	return found
}

func paidAfter(rec, other *domain.InstallmentRecord) bool {
	switch {
	case rec.PaymentDate == nil && other.PaymentDate == nil:
		return rec.Sequence > other.Sequence
	case rec.PaymentDate == nil:
		return false
	case other.PaymentDate == nil:
		return true
	case rec.PaymentDate.Equal(*other.PaymentDate):
		return rec.Sequence > other.Sequence
	default:
		return rec.PaymentDate.After(*other.PaymentDate)
	}
}
