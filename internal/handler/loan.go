package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-documents/internal/domain"
	"github.com/segyhp/loan-documents/internal/service"
	customError "github.com/segyhp/loan-documents/pkg/errors"
	"github.com/segyhp/loan-documents/pkg/response"
)

type LoanHandler struct {
	service   service.LoanService
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewLoanHandler(service service.LoanService, logger *logrus.Logger) *LoanHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoanHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Register mounts the loan routes on an /api/v1 subrouter.
func (h *LoanHandler) Register(api *mux.Router) {
	api.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/schedule", h.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/schedule", h.RescheduleLoan).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/summary", h.GetSummary).Methods("GET")

	installment := api.PathPrefix("/loans/{loanId}/installments/{seq:[0-9]+}").Subrouter()
	installment.HandleFunc("/attachments", h.AttachProof).Methods("POST")
	installment.HandleFunc("/approve", h.ApproveInstallment).Methods("POST")
	installment.HandleFunc("/reject", h.RejectInstallment).Methods("POST")
	installment.HandleFunc("/partial-payments", h.RecordPartialPayment).Methods("POST")
	installment.HandleFunc("/postpone", h.PostponeInstallment).Methods("POST")

	api.HandleFunc("/loans/{loanId}/documents", h.ListDocuments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/documents/{kind}", h.GenerateDocument).Methods("POST")
	api.HandleFunc("/loans/{loanId}/settlement", h.Settle).Methods("POST")
	api.HandleFunc("/templates/{kind}", h.SaveTemplate).Methods("PUT")
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, domain.LoanResponse{Loan: loan})
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, domain.LoanResponse{Loan: loan})
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	records, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: records})
}

// RescheduleLoan handles PUT /loans/{loanId}/schedule
func (h *LoanHandler) RescheduleLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.RescheduleRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	loan, err := h.service.RescheduleLoan(r.Context(), mux.Vars(r)["loanId"], &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, domain.LoanResponse{Loan: loan})
}

// GetSummary handles GET /loans/{loanId}/summary
func (h *LoanHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, summary)
}

func (h *LoanHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
	loanID, sequence, ok := installmentVars(w, r)
	if !ok {
		return
	}
	var request domain.AttachmentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	resp, err := h.service.AttachProof(r.Context(), loanID, sequence, request.Reference)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, resp)
}

func (h *LoanHandler) ApproveInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, sequence, ok := installmentVars(w, r)
	if !ok {
		return
	}
	var request domain.ApproveRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	resp, err := h.service.ApproveInstallment(r.Context(), loanID, sequence, request.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, resp)
}

func (h *LoanHandler) RejectInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, sequence, ok := installmentVars(w, r)
	if !ok {
		return
	}

	resp, err := h.service.RejectInstallment(r.Context(), loanID, sequence)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, resp)
}

func (h *LoanHandler) RecordPartialPayment(w http.ResponseWriter, r *http.Request) {
	loanID, sequence, ok := installmentVars(w, r)
	if !ok {
		return
	}
	var request domain.PartialPaymentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	resp, err := h.service.RecordPartialPayment(r.Context(), loanID, sequence, request.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, resp)
}

func (h *LoanHandler) PostponeInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, sequence, ok := installmentVars(w, r)
	if !ok {
		return
	}
	var request domain.PostponeRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	resp, err := h.service.PostponeInstallment(r.Context(), loanID, sequence, request.DueDate, request.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, resp)
}

// GenerateDocument handles POST /loans/{loanId}/documents/{kind}. An empty
// body renders the stored template of the kind.
func (h *LoanHandler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var request domain.DocumentRequest
	if !h.decode(w, r, &request, true) {
		return
	}

	doc, err := h.service.GenerateDocument(r.Context(), vars["loanId"], domain.DocumentKind(vars["kind"]), &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, doc)
}

func (h *LoanHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, docs)
}

// Settle handles POST /loans/{loanId}/settlement
func (h *LoanHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var request domain.SettlementRequest
	if !h.decode(w, r, &request, true) {
		return
	}

	resp, err := h.service.Settle(r.Context(), mux.Vars(r)["loanId"], &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, resp)
}

// SaveTemplate handles PUT /templates/{kind}
func (h *LoanHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	kind := domain.DocumentKind(mux.Vars(r)["kind"])
	var request domain.TemplateRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	if err := h.service.SaveTemplate(r.Context(), kind, request.Body); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]string{"kind": string(kind)})
}

// decode reads and validates a JSON body. It writes the error response
// itself and reports whether the handler may continue.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
		case errors.As(err, &tooLarge):
			response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return false
		default:
			response.BadRequest(w, "Invalid request body", err)
			return false
		}
	}

	if err := h.validator.Struct(dst); err != nil {
		response.ErrorWithCode(w, http.StatusBadRequest, customError.ErrCodeValidation, validationMessage(err), nil)
		return false
	}
	return true
}

// writeError maps business error codes onto HTTP statuses.
func (h *LoanHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := customError.CodeOf(err)
	status := statusFor(code)

	if status == http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"code":   code,
		}).WithError(err).Error("Request failed")
		response.ErrorWithCode(w, status, code, "Internal server error", nil)
		return
	}

	message := err.Error()
	var be *customError.BusinessError
	if errors.As(err, &be) {
		message = be.Message
	}
	response.ErrorWithCode(w, status, code, message, nil)
}

func statusFor(code string) int {
	switch code {
	case customError.ErrCodeInvalidAmount,
		customError.ErrCodeInvalidSpecification,
		customError.ErrCodeValidation:
		return http.StatusBadRequest
	case customError.ErrCodeLoanNotFound,
		customError.ErrCodeInstallmentNotFound,
		customError.ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case customError.ErrCodeLoanAlreadyExists,
		customError.ErrCodeConcurrentUpdate,
		customError.ErrCodeLoanAlreadySettled:
		return http.StatusConflict
	case customError.ErrCodeSettlementNotEligible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func installmentVars(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	vars := mux.Vars(r)
	sequence, err := strconv.Atoi(vars["seq"])
	if err != nil || sequence < 1 {
		response.BadRequest(w, "Invalid installment sequence", err)
		return "", 0, false
	}
	return vars["loanId"], sequence, true
}
