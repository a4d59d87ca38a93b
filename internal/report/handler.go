package report

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/platform/httpx"
)

// CSVWriter streams reports as CSV. The concrete writers live in
// report/export, which imports this package, so they are injected at wiring
// time instead of imported here.
type CSVWriter struct {
	Utilization func(w *bytes.Buffer, rep UtilizationReport) error
	Overview    func(w *bytes.Buffer, overview Overview) error
}

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	csv     CSVWriter
	bufPool sync.Pool
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, csv CSVWriter) *Handler {
	h := &Handler{logger: logger, service: service, csv: csv}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.handleOverview)
	r.Get("/overview/export.csv", h.handleOverviewCSV)
	r.Get("/{dept}/{year}", h.handleUtilization)
	r.Get("/{dept}/{year}/export.csv", h.handleUtilizationCSV)
}

func (h *Handler) handleUtilization(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Utilization(r.Context(), chi.URLParam(r, "dept"), chi.URLParam(r, "year"))
	if err != nil {
		if errors.Is(err, budget.ErrNoBudget) {
			httpx.Problem(w, http.StatusNotFound, "No budget", "No budget document exists for this period.")
			return
		}
		h.logger.Error("utilization report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to build utilization report.")
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) handleUtilizationCSV(w http.ResponseWriter, r *http.Request) {
	dept, year := chi.URLParam(r, "dept"), chi.URLParam(r, "year")
	rep, err := h.service.Utilization(r.Context(), dept, year)
	if err != nil {
		if errors.Is(err, budget.ErrNoBudget) {
			httpx.Problem(w, http.StatusNotFound, "No budget", "No budget document exists for this period.")
			return
		}
		h.logger.Error("utilization export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export failed", "Failed to export utilization report.")
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := h.csv.Utilization(buf, rep); err != nil {
		h.logger.Error("write utilization csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export failed", "Failed to export utilization report.")
		return
	}
	filename := fmt.Sprintf("utilization-%s-%s.csv", dept, year)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.loadOverview(r)
	if err != nil {
		h.logger.Error("overview report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Load failed", "Failed to build overview report.")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) handleOverviewCSV(w http.ResponseWriter, r *http.Request) {
	overview, err := h.loadOverview(r)
	if err != nil {
		h.logger.Error("overview export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export failed", "Failed to export overview report.")
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := h.csv.Overview(buf, overview); err != nil {
		h.logger.Error("write overview csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Export failed", "Failed to export overview report.")
		return
	}
	filename := fmt.Sprintf("overview-%s.csv", overview.FiscalYear)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) loadOverview(r *http.Request) (Overview, error) {
	fiscalYear := r.URL.Query().Get("fy")
	var deptIDs []string
	for _, id := range strings.Split(r.URL.Query().Get("depts"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			deptIDs = append(deptIDs, id)
		}
	}
	return h.service.DepartmentsOverview(r.Context(), fiscalYear, deptIDs)
}
