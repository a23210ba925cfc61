package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FlushJobName is the name of the dirty-session flush job
const FlushJobName = "session_flush"

// DefaultFlushTimeout bounds one flush pass across all open sessions.
const DefaultFlushTimeout = 30 * time.Second

// SessionFlusher force-saves open editing sessions with unsaved changes.
// Declared here so the job does not import the service package directly.
type SessionFlusher interface {
	FlushDirty(ctx context.Context) int
}

// FlushJob periodically saves any open session left dirty — a safety net for
// edits stranded by a failed auto-save. The debounced auto-save remains the
// primary persistence path.
type FlushJob struct {
	flusher SessionFlusher
	logger  *zap.Logger
	timeout time.Duration
}

// NewFlushJob creates a dirty-session flush job.
func NewFlushJob(flusher SessionFlusher, logger *zap.Logger, timeout time.Duration) *FlushJob {
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	return &FlushJob{flusher: flusher, logger: logger, timeout: timeout}
}

// Run executes one flush pass.
func (j *FlushJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	flushed := j.flusher.FlushDirty(ctx)
	if flushed > 0 {
		j.logger.Info("flushed dirty estimate sessions", zap.Int("sessions", flushed))
	}
}
