package budget

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kharcha-erp/kharcha/internal/money"
	"github.com/kharcha-erp/kharcha/internal/platform/httpx"
)

// Handler manages budget ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{dept}/{year}", h.handleGetDocument)
	r.Put("/{dept}/{year}", h.handleUpsert)
	r.Get("/{dept}/{year}/remaining", h.handleRemaining)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "dept"), chi.URLParam(r, "year"))
	if err != nil {
		if errors.Is(err, ErrNoBudget) {
			httpx.Problem(w, http.StatusNotFound, "No budget", "No budget document exists for this period.")
			return
		}
		h.logger.Error("load budget", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load budget document.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"totals":   ComputeTotals(doc),
		"chart":    ChartData(doc),
	})
}

type upsertRequest struct {
	TotalBudget string                       `json:"totalBudget"`
	Components  map[string]map[string]string `json:"components"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	doc, err := h.service.Upsert(r.Context(), buildUpsertInput(chi.URLParam(r, "dept"), chi.URLParam(r, "year"), req))
	if err != nil {
		h.logger.Error("upsert budget", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Save failed", "Failed to save budget document.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document": doc, "totals": ComputeTotals(doc)})
}

func buildUpsertInput(dept, year string, req upsertRequest) UpsertInput {
	input := UpsertInput{
		DeptID:      dept,
		FiscalYear:  year,
		TotalBudget: money.ParseAmount(req.TotalBudget),
		Components:  map[Bucket]map[string]decimal.Decimal{},
	}
	for bucket, group := range req.Components {
		parsed := make(map[string]decimal.Decimal, len(group))
		for key, raw := range group {
			parsed[key] = money.ParseAmount(raw)
		}
		input.Components[Bucket(bucket)] = parsed
	}
	return input
}

func (h *Handler) handleRemaining(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("component")
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "dept"), chi.URLParam(r, "year"))
	if err != nil {
		if errors.Is(err, ErrNoBudget) {
			httpx.Problem(w, http.StatusNotFound, "No budget", "No budget document exists for this period.")
			return
		}
		h.logger.Error("load budget", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load budget document.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"component": key,
		"remaining": ComponentRemaining(doc, key),
	})
}
