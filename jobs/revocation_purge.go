package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/operate360/operate360/internal/jobs"
)

// Purger deletes revocation entries whose token expired at or before the cutoff.
// auth.PGRegistry satisfies it.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// PurgeRecorder counts removed entries. observability.Metrics satisfies it.
type PurgeRecorder interface {
	RecordRevocationsPurged(n int)
}

// RevocationPurgeJob handles TaskRevocationPurge.
type RevocationPurgeJob struct {
	Purger   Purger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Recorder PurgeRecorder
	clock    func() time.Time
}

// NewRevocationPurgeJob initialises the purge handler.
func NewRevocationPurgeJob(purger Purger, logger *slog.Logger, metrics *jobmetrics.Metrics, recorder PurgeRecorder) *RevocationPurgeJob {
	return &RevocationPurgeJob{
		Purger:   purger,
		Logger:   logger,
		Metrics:  metrics,
		Recorder: recorder,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one purge.
func (j *RevocationPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Purger == nil {
		return errors.New("revocation purge: handler not configured")
	}
	var payload RevocationPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("revocation purge: decode payload: %w", asynq.SkipRetry)
		}
	}

	start := j.now()
	tracker := j.Metrics.Track(TaskRevocationPurge)
	cutoff := start.Add(-payload.Grace())
	logger := j.logger().With(slog.Time("cutoff", cutoff))

	removed, err := j.Purger.Purge(ctx, cutoff)
	if err != nil {
		logger.Error("purge revocations failed", slog.Any("error", err))
		return tracker.End(err)
	}
	if j.Recorder != nil {
		j.Recorder.RecordRevocationsPurged(int(removed))
	}
	logger.Info("purged expired revocations",
		slog.Int64("removed", removed),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *RevocationPurgeJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *RevocationPurgeJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
