package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRevocationPurge removes expired entries from the revoked_tokens table.
	TaskRevocationPurge = "auth:revocations:purge"
)

// RevocationPurgePayload tunes a purge run. Rows whose token expired more than
// GraceSeconds ago are removed.
type RevocationPurgePayload struct {
	GraceSeconds int `json:"graceSeconds"`
}

// Grace returns the payload grace period as a duration.
func (p RevocationPurgePayload) Grace() time.Duration {
	if p.GraceSeconds <= 0 {
		return 0
	}
	return time.Duration(p.GraceSeconds) * time.Second
}

// NewRevocationPurgeTask constructs an Asynq task.
func NewRevocationPurgeTask(payload RevocationPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal purge payload: %w", err)
	}
	return asynq.NewTask(TaskRevocationPurge, data, asynq.Queue(QueueDefault), asynq.Unique(time.Minute)), nil
}
