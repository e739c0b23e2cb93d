package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/adnanh27/postbridge/internal/scheduler"
)

// sweepWindow is how far ahead the sweep looks for expiring tokens. It
// comfortably covers the sweep interval so no expiry falls between two
// runs.
const sweepWindow = 30 * time.Minute

// TokenSweepJob periodically re-arms refresh timers for accounts whose
// tokens expire soon. The timers themselves are in-memory, so this is
// what brings them back after a restart.
type TokenSweepJob struct {
	refresher *scheduler.RefreshScheduler
}

func NewTokenSweepJob(refresher *scheduler.RefreshScheduler) *TokenSweepJob {
	return &TokenSweepJob{refresher: refresher}
}

func (j *TokenSweepJob) Run() {
	ctx := context.Background()

	if err := j.refresher.Sweep(ctx, sweepWindow); err != nil {
		slog.Info("token sweep failed", "error", err)
	}
}
