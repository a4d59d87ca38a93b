package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kharcha-erp/kharcha/internal/jobs"
	"github.com/kharcha-erp/kharcha/internal/report"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUtilizationWarmup pre-populates the report cache for the listed
	// departments.
	TaskUtilizationWarmup = "report:warmup"
	// TaskReportInvalidate bumps the report cache version after ledger writes.
	TaskReportInvalidate = "report:invalidate"
)

// UtilizationWarmupPayload lists the departments and period to warm.
type UtilizationWarmupPayload struct {
	DeptIDs    []string `json:"deptIds"`
	FiscalYear string   `json:"fiscalYear"`
}

// NewUtilizationWarmupTask constructs an Asynq task.
func NewUtilizationWarmupTask(payload UtilizationWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUtilizationWarmup, data), nil
}

// NewReportInvalidateTask constructs a cache bump task.
func NewReportInvalidateTask() *asynq.Task {
	return asynq.NewTask(TaskReportInvalidate, nil)
}

// NewUtilizationWarmupHandler builds the handler that loads each department's
// report through the cache, leaving the entries warm for dashboard reads.
func NewUtilizationWarmupHandler(reports *report.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload UtilizationWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("utilization_warmup")
		_, err := reports.DepartmentsOverview(ctx, payload.FiscalYear, payload.DeptIDs)
		if err != nil {
			logger.Error("utilization warmup", slog.Any("error", err),
				slog.String("fiscal_year", payload.FiscalYear),
				slog.String("depts", strings.Join(payload.DeptIDs, ",")))
		}
		return tracker.End(err)
	}
}

// NewReportInvalidateHandler builds the handler that bumps the cache version.
func NewReportInvalidateHandler(reports *report.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("report_invalidate")
		err := reports.Invalidate(ctx)
		if err != nil {
			logger.Error("report invalidate", slog.Any("error", err))
		}
		return tracker.End(err)
	}
}
