package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/Ramsey-B/reed/pkg/tracing"
	"github.com/redis/go-redis/v9"
)

// JobMirror stores import job snapshots as JSON so every replica can serve status polls
type JobMirror struct {
	client    *Client
	keyPrefix string
}

func NewJobMirror(client *Client) *JobMirror {
	return &JobMirror{
		client:    client,
		keyPrefix: "reed:import-job:",
	}
}

func (m *JobMirror) Save(ctx context.Context, job *models.ImportJob, ttl time.Duration) error {
	ctx, span := tracing.StartSpan(ctx, "redis.JobMirror.Save")
	defer span.End()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal import job %s: %w", job.ID, err)
	}

	if err := m.client.rdb.Set(ctx, m.keyPrefix+job.ID, data, ttl).Err(); err != nil {
		m.client.logger.WithContext(ctx).WithError(err).Errorf("Failed to store import job %s", job.ID)
		return err
	}
	return nil
}

// Load returns nil, nil when the job is unknown or expired
func (m *JobMirror) Load(ctx context.Context, id string) (*models.ImportJob, error) {
	ctx, span := tracing.StartSpan(ctx, "redis.JobMirror.Load")
	defer span.End()

	data, err := m.client.rdb.Get(ctx, m.keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job models.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import job %s: %w", id, err)
	}
	return &job, nil
}
