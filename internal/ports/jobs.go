package ports

import "context"

const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type ReportJob struct {
	ID       string
	TenantID string
	Query    string
}

type ReportJobStatus struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	ReportID string `json:"reportId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// JobRepository supports queueing, claiming and settling report jobs.
type JobRepository interface {
	EnqueueReportJob(ctx context.Context, tenantID, query string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job ReportJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID, reportID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	JobStatus(ctx context.Context, tenantID, jobID string) (ReportJobStatus, error)
}
