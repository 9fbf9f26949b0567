// Package rest exposes the admin surface over the processing engine: trigger
// a daily run, run or preview the late fee pass, reverse a fee, inspect a
// payment. Rendering and tenant-facing APIs live elsewhere.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/application/services"
	"github.com/propertyops/rentledger/internal/latefee"
)

type Handlers struct {
	orchestrator *services.Orchestrator
	feeService   *services.LateFeeService
	store        application.PaymentStore
	defaultRules []latefee.Rule
	logger       *slog.Logger
}

func NewHandlers(
	orchestrator *services.Orchestrator,
	feeService *services.LateFeeService,
	store application.PaymentStore,
	defaultRules []latefee.Rule,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		feeService:   feeService,
		store:        store,
		defaultRules: defaultRules,
		logger:       logger,
	}
}

// Register wires routes onto the mux. Method-qualified patterns need Go 1.22+.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("POST /admin/run-daily", h.RunDaily)
	mux.HandleFunc("POST /admin/late-fees/process", h.ProcessLateFees)
	mux.HandleFunc("POST /admin/payments/{id}/late-fee/reverse", h.ReverseLateFee)
	mux.HandleFunc("GET /admin/payments/{id}", h.GetPayment)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) RunDaily(w http.ResponseWriter, r *http.Request) {
	result := h.orchestrator.RunDailyProcessing(r.Context())

	status := http.StatusOK
	if !result.OverallSuccess {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{
		"success": result.OverallSuccess,
		"data":    result,
	})
}

func (h *Handlers) ProcessLateFees(w http.ResponseWriter, r *http.Request) {
	var req ProcessLateFeesRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, application.NewValidationError(err))
			return
		}
	}

	rules := h.defaultRules
	if len(req.Rules) > 0 {
		rules = make([]latefee.Rule, 0, len(req.Rules))
		for _, rr := range req.Rules {
			rule, err := rr.ToRule()
			if err != nil {
				WriteError(w, application.NewValidationError(err))
				return
			}
			rules = append(rules, rule)
		}
	}

	result, err := h.feeService.ProcessLateFees(r.Context(), rules, req.DryRun)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    result,
	})
}

func (h *Handlers) ReverseLateFee(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")
	if paymentID == "" {
		WriteError(w, application.NewValidationError(errors.New("payment id is required")))
		return
	}

	var req ReverseLateFeeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, application.NewValidationError(err))
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "manual reversal"
	}

	result, err := h.feeService.ReverseLateFee(r.Context(), paymentID, req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    result,
	})
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")
	if paymentID == "" {
		WriteError(w, application.NewValidationError(errors.New("payment id is required")))
		return
	}

	payment, err := h.store.FindByID(r.Context(), paymentID)
	if err != nil {
		if application.IsNotFound(err) {
			err = application.NewNotFoundError(err)
		}
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    ToPaymentResponse(payment),
	})
}
