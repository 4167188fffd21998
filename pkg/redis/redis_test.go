package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	reqctx "github.com/Ramsey-B/reed/pkg/context"
	"github.com/Ramsey-B/reed/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to the Redis named by REDIS_TEST_HOST, skipping otherwise
func newTestClient(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" || testing.Short() {
		t.Skip("REDIS_TEST_HOST not set")
	}
	port, err := strconv.Atoi(os.Getenv("REDIS_TEST_PORT"))
	if err != nil {
		port = 6379
	}

	client, err := NewClient(context.Background(), Config{Host: host, Port: port}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", Config{Host: "localhost", Port: 6379}.Addr())
}

func TestLocker(t *testing.T) {
	client := newTestClient(t)
	ctx := reqctx.SetJobID(context.Background(), "job-1")
	locker := NewLocker(client, "reed:test-lock:")
	key := uuid.New().String()

	lock, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	holder, err := locker.Holder(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "job-1", holder)

	_, err = locker.Acquire(reqctx.SetJobID(ctx, "job-2"), key, time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.ErrorContains(t, err, "held by job-1")

	require.NoError(t, lock.Extend(ctx, 2*time.Minute))
	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	holder, err = locker.Holder(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, holder)

	again, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestJobMirror(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	mirror := NewJobMirror(client)

	job := &models.ImportJob{
		ID:       uuid.New().String(),
		Status:   models.JobStatusRunning,
		Progress: models.Progress{Current: 1, Total: 2},
		Logs:     []string{`[10:00:00] Processing row 1: "Gloria"...`},
	}
	require.NoError(t, mirror.Save(ctx, job, time.Minute))

	loaded, err := mirror.Load(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, job.Progress, loaded.Progress)
	assert.Equal(t, job.Logs, loaded.Logs)

	missing, err := mirror.Load(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
