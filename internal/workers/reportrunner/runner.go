package reportrunner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lumen/internal/logger"
	"lumen/internal/ports"
)

// Processor generates the report for a claimed job and returns its id.
type Processor interface {
	Process(ctx context.Context, job ports.ReportJob) (reportID string, err error)
}

type ProcessorFunc func(ctx context.Context, job ports.ReportJob) (string, error)

func (f ProcessorFunc) Process(ctx context.Context, job ports.ReportJob) (string, error) {
	return f(ctx, job)
}

// Run starts concurrency workers that claim queued jobs and process them.
// Each worker claims only when idle, so no job sits claimed in a buffer. The
// returned channel is closed once every worker has exited after ctx ends.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, l *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if concurrency < 1 {
		close(done)
		return done
	}
	l = logger.OrDefault(l).With("component", "reportrunner")

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			wl := l.With("worker", idx)
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			for {
				// Keep claiming while the queue has work.
				for ctx.Err() == nil {
					found, err := processNext(ctx, repo, processor, wl)
					if err != nil {
						wl.Error("job claim failed", "error", err)
						break
					}
					if !found {
						break
					}
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// Drain processes queued jobs on the calling goroutine until none remain
// and returns how many it ran.
func Drain(ctx context.Context, repo ports.JobRepository, processor Processor, l *slog.Logger) (int, error) {
	l = logger.OrDefault(l)
	n := 0
	for {
		found, err := processNext(ctx, repo, processor, l)
		if err != nil || !found {
			return n, err
		}
		n++
	}
}

// processNext claims one job and settles it. A processing failure marks the
// job failed and is not returned; only claim errors are.
func processNext(ctx context.Context, repo ports.JobRepository, processor Processor, l *slog.Logger) (bool, error) {
	job, found, err := repo.ClaimNext(ctx)
	if err != nil || !found {
		return false, err
	}
	start := time.Now()
	reportID, err := processor.Process(ctx, job)
	if err != nil {
		l.Warn("report job failed", "job", job.ID, "tenant", job.TenantID, "error", err)
		if merr := repo.MarkFailed(ctx, job.ID, err.Error()); merr != nil {
			l.Error("mark job failed", "job", job.ID, "error", merr)
		}
		return true, nil
	}
	if err := repo.MarkCompleted(ctx, job.ID, reportID); err != nil {
		l.Error("mark job completed", "job", job.ID, "error", err)
		return true, nil
	}
	l.Info("report job completed", "job", job.ID, "report", reportID, "took", time.Since(start))
	return true, nil
}
