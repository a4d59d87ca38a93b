package intent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/money"
	"github.com/kharcha-erp/kharcha/internal/platform/httpx"
)

// Handler manages purchase intent endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers intent routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleSubmit)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/send-for-approval", h.action((*Service).SendForApproval))
	r.Post("/{id}/approve", h.action((*Service).Approve))
	r.Post("/{id}/reject", h.action((*Service).Reject))
}

type itemRequest struct {
	Description     string `json:"description"`
	Category        string `json:"category"`
	Quantity        string `json:"quantity"`
	EstPricePerUnit string `json:"estPricePerUnit"`
}

type submitRequest struct {
	DeptID                  string        `json:"deptId"`
	FiscalYear              string        `json:"fiscalYear"`
	CreatedBy               string        `json:"createdBy"`
	Title                   string        `json:"title"`
	Description             string        `json:"description"`
	SelectedBudgetComponent string        `json:"selectedBudgetComponent"`
	Items                   []itemRequest `json:"requestedItems"`
	OverrunConfirmed        bool          `json:"overrunConfirmed"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	input := SubmitInput{
		DeptID:                  req.DeptID,
		FiscalYear:              req.FiscalYear,
		CreatedBy:               req.CreatedBy,
		Title:                   req.Title,
		Description:             req.Description,
		SelectedBudgetComponent: req.SelectedBudgetComponent,
		OverrunConfirmed:        req.OverrunConfirmed,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{
			Description:     item.Description,
			Category:        item.Category,
			Quantity:        money.ParseAmount(item.Quantity),
			EstPricePerUnit: money.ParseAmount(item.EstPricePerUnit),
		})
	}

	created, err := h.service.Submit(r.Context(), input)
	if err != nil {
		var verr *ValidationError
		var oerr *OverrunNotConfirmedError
		switch {
		case errors.As(err, &verr):
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":     "validation_failed",
				"field":     verr.Field,
				"itemIndex": verr.ItemIndex,
				"message":   verr.Message,
			})
		case errors.As(err, &oerr):
			httpx.JSON(w, http.StatusConflict, map[string]any{
				"error":    "budget_overrun_confirmation_required",
				"decision": oerr.Decision,
			})
		case errors.Is(err, budget.ErrNoBudget):
			httpx.Problem(w, http.StatusPreconditionFailed, "No budget", "No budget document exists for this period; intents cannot be raised.")
		default:
			h.logger.Error("submit intent", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Submit failed", "Failed to submit purchase intent.")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	Actor                   string        `json:"actor"`
	Title                   string        `json:"title"`
	Description             string        `json:"description"`
	SelectedBudgetComponent string        `json:"selectedBudgetComponent"`
	Items                   []itemRequest `json:"requestedItems"`
	OverrunConfirmed        bool          `json:"overrunConfirmed"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Intent ID must be a UUID.")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "Request body must be valid JSON.")
		return
	}
	input := UpdateInput{
		ID:                      id,
		Actor:                   req.Actor,
		Title:                   req.Title,
		Description:             req.Description,
		SelectedBudgetComponent: req.SelectedBudgetComponent,
		OverrunConfirmed:        req.OverrunConfirmed,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{
			Description:     item.Description,
			Category:        item.Category,
			Quantity:        money.ParseAmount(item.Quantity),
			EstPricePerUnit: money.ParseAmount(item.EstPricePerUnit),
		})
	}

	updated, err := h.service.Update(r.Context(), input)
	if err != nil {
		var verr *ValidationError
		var oerr *OverrunNotConfirmedError
		switch {
		case errors.As(err, &verr):
			httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":     "validation_failed",
				"field":     verr.Field,
				"itemIndex": verr.ItemIndex,
				"message":   verr.Message,
			})
		case errors.As(err, &oerr):
			httpx.JSON(w, http.StatusConflict, map[string]any{
				"error":    "budget_overrun_confirmation_required",
				"decision": oerr.Decision,
			})
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase intent does not exist.")
		case errors.Is(err, ErrFrozen):
			httpx.Problem(w, http.StatusConflict, "Frozen", "The intent already has a purchase order and can no longer be edited.")
		case errors.Is(err, ErrInvalidState):
			httpx.Problem(w, http.StatusConflict, "Invalid state", "This action is not allowed in the intent's current state.")
		default:
			h.logger.Error("update intent", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Update failed", "Failed to update purchase intent.")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Intent ID must be a UUID.")
		return
	}
	in, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase intent does not exist.")
			return
		}
		h.logger.Error("get intent", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load purchase intent.")
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, total, err := h.service.List(r.Context(),
		r.URL.Query().Get("dept"), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.logger.Error("list intents", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to load purchase intents.")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

type actionRequest struct {
	Actor string `json:"actor"`
}

func (h *Handler) action(fn func(*Service, context.Context, uuid.UUID, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "Intent ID must be a UUID.")
			return
		}
		var req actionRequest
		_ = httpx.DecodeJSON(r, &req)
		if err := fn(h.service, r.Context(), id, req.Actor); err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				httpx.Problem(w, http.StatusNotFound, "Not found", "Purchase intent does not exist.")
			case errors.Is(err, ErrInvalidState):
				httpx.Problem(w, http.StatusConflict, "Invalid state", "This action is not allowed in the intent's current state.")
			default:
				h.logger.Error("intent action", slog.Any("error", err), slog.String("id", id.String()))
				httpx.Problem(w, http.StatusInternalServerError, "Action failed", "Failed to update purchase intent.")
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
