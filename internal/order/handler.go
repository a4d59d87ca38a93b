package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/money"
	"github.com/kharcha-erp/kharcha/internal/platform/httpx"
)

// Handler manages purchase order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/complete", h.handleComplete)
	r.Get("/by-intent/{intentId}", h.handleGetByIntent)
}

type createRequest struct {
	IntentID   string `json:"intentId"`
	VendorID   int64  `json:"vendorId"`
	FinalPrice string `json:"finalPrice"`
	IncludeGST bool   `json:"includeGst"`
	GSTRate    string `json:"gstRate"`
	Actor      string `json:"actor"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	intentID, err := uuid.Parse(req.IntentID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Intent ID must be a UUID.")
		return
	}
	input := CreateInput{
		IntentID:   intentID,
		VendorID:   req.VendorID,
		FinalPrice: money.ParseAmount(req.FinalPrice),
		IncludeGST: req.IncludeGST,
		Actor:      req.Actor,
	}
	// An omitted rate falls back to the default; "0" is an exempt supply.
	if strings.TrimSpace(req.GSTRate) != "" {
		rate := money.ParseAmount(req.GSTRate)
		input.GSTRate = &rate
	}
	po, err := h.service.Create(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingVendor):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Vendor required", "A valid vendor must be selected before creating a purchase order.")
		case errors.Is(err, ErrOrderExists):
			httpx.Problem(w, http.StatusConflict, "Order exists", "This intent already has a purchase order.")
		case errors.Is(err, ErrInvalidState):
			httpx.Problem(w, http.StatusConflict, "Invalid state", "Purchase orders can only be created from approved intents.")
		case errors.Is(err, intent.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase intent does not exist.")
		default:
			h.logger.Error("create order", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Create failed", "Failed to create purchase order.")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Order ID must be a UUID.")
		return
	}
	po, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase order does not exist.")
			return
		}
		h.logger.Error("get order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load purchase order.")
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleGetByIntent(w http.ResponseWriter, r *http.Request) {
	intentID, err := uuid.Parse(chi.URLParam(r, "intentId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Intent ID must be a UUID.")
		return
	}
	po, err := h.service.GetByIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not found", "No purchase order exists for this intent.")
			return
		}
		h.logger.Error("get order by intent", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load purchase order.")
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, total, err := h.service.List(r.Context(),
		r.URL.Query().Get("dept"), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load purchase orders.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

type completeRequest struct {
	Actor string `json:"actor"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Order ID must be a UUID.")
		return
	}
	var req completeRequest
	_ = httpx.DecodeJSON(r, &req)
	if err := h.service.Complete(r.Context(), id, req.Actor); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase order does not exist.")
		case errors.Is(err, ErrInvalidState):
			httpx.Problem(w, http.StatusConflict, "Invalid state", "Only pending orders can be completed.")
		default:
			h.logger.Error("complete order", slog.Any("error", err), slog.String("id", id.String()))
			httpx.Problem(w, http.StatusInternalServerError, "Action failed", "Failed to complete purchase order.")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
