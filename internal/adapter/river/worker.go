package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// AuditWorker processes sandbox event jobs from the River queue. For now
// it logs the audit trail; future versions will dispatch to webhooks or
// notification systems.
type AuditWorker struct {
	river.WorkerDefaults[AuditJobArgs]
}

// Work processes a single audit job.
func (w *AuditWorker) Work(ctx context.Context, job *river.Job[AuditJobArgs]) error {
	slog.InfoContext(ctx, "sandbox event",
		"event", job.Args.Event,
		"tenant_id", job.Args.TenantID,
		"document_id", job.Args.DocumentID,
		"document_type", job.Args.DocumentType,
		"status", job.Args.Status,
		"detail", job.Args.Detail,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
