package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kharcha-erp/kharcha/internal/money"
	"github.com/kharcha-erp/kharcha/internal/platform/httpx"
)

// Handler exposes the schedule calculator. The endpoints are stateless; the
// client round-trips the plan on every edit and the server stays the single
// source of the arithmetic.
type Handler struct {
	logger *slog.Logger
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// MountRoutes registers payment calculator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/splits/set", h.handleSetSplit)
	r.Post("/splits/schedule", h.handleSchedule)
	r.Post("/emi", h.handleEMI)
}

type splitRequest struct {
	Name       string `json:"name"`
	Percentage string `json:"percentage"`
}

func parseSplits(raw []splitRequest) []PaymentSplit {
	splits := make([]PaymentSplit, 0, len(raw))
	for _, s := range raw {
		splits = append(splits, PaymentSplit{Name: s.Name, Percentage: money.ParseAmount(s.Percentage)})
	}
	return splits
}

type setSplitRequest struct {
	Splits []splitRequest `json:"splits"`
	Index  int            `json:"index"`
	Value  string         `json:"value"`
}

func (h *Handler) handleSetSplit(w http.ResponseWriter, r *http.Request) {
	var req setSplitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	splits := SetSplit(parseSplits(req.Splits), req.Index, money.ParseAmount(req.Value))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"splits": splits,
		"valid":  ValidateSumTo100(splits),
	})
}

type scheduleRequest struct {
	Splits    []splitRequest `json:"splits"`
	TotalBase string         `json:"totalBase"`
	GSTAmount string         `json:"gstAmount"`
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	installments, err := BuildInstallments(parseSplits(req.Splits),
		money.ParseAmount(req.TotalBase), money.ParseAmount(req.GSTAmount))
	if err != nil {
		if errors.Is(err, ErrInconsistentSplit) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Inconsistent splits", "Split percentages must sum to exactly 100.00.")
			return
		}
		h.logger.Error("build installments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Compute failed", "Failed to compute payment schedule.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"installments": installments})
}

type emiRequest struct {
	TotalBase string `json:"totalBase"`
	GSTAmount string `json:"gstAmount"`
	Months    int    `json:"months"`
}

func (h *Handler) handleEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	installments, err := ComputeEMI(money.ParseAmount(req.TotalBase), money.ParseAmount(req.GSTAmount), req.Months)
	if err != nil {
		if errors.Is(err, ErrInvalidTerm) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid term", "Installment count must be a positive number of months.")
			return
		}
		h.logger.Error("compute emi", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Compute failed", "Failed to compute EMI schedule.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"installments": installments})
}
