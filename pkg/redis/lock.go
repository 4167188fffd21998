package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	reqctx "github.com/Ramsey-B/reed/pkg/context"
)

const defaultLockPrefix = "reed:lock:"

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld means the lock expired or another holder took it over
	ErrLockNotHeld = errors.New("lock not held")
)

// compareAndSwap runs the command in ARGV[2] against KEYS[1] only while the stored
// token equals ARGV[1]. ARGV[3] is the pexpire ttl.
var compareAndSwap = redis.NewScript(`
	if redis.call("get", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	if ARGV[2] == "del" then
		return redis.call("del", KEYS[1])
	end
	return redis.call("pexpire", KEYS[1], ARGV[3])
`)

// Lock is a held collection lock. The stored token is "<holder>|<nonce>" so a
// contending import can report who holds it.
type Lock struct {
	client *Client
	key    string
	token  string
}

// Locker serializes imports per key across replicas
type Locker struct {
	client *Client
	prefix string
}

func NewLocker(client *Client, prefix string) *Locker {
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	return &Locker{client: client, prefix: prefix}
}

// Acquire takes key for ttl. The holder is the job id on ctx. When the key is taken
// the error wraps ErrLockNotAcquired and names the current holder.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	holder := reqctx.GetJobID(ctx)
	if holder == "" {
		holder = "anonymous"
	}
	lock := &Lock{
		client: l.client,
		key:    l.prefix + key,
		token:  holder + "|" + uuid.New().String(),
	}

	ok, err := l.client.rdb.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", lock.key, err)
	}
	if !ok {
		current, err := l.Holder(ctx, key)
		if err != nil || current == "" {
			return nil, ErrLockNotAcquired
		}
		return nil, fmt.Errorf("%w: held by %s", ErrLockNotAcquired, current)
	}

	l.client.logger.WithContext(ctx).WithField("holder", holder).Debugf("Acquired lock %s", lock.key)
	return lock, nil
}

// Holder returns who holds key, empty when it is free
func (l *Locker) Holder(ctx context.Context, key string) (string, error) {
	token, err := l.client.rdb.Get(ctx, l.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	holder, _, _ := strings.Cut(token, "|")
	return holder, nil
}

// Release deletes the lock while it is still ours
func (lock *Lock) Release(ctx context.Context) error {
	if err := lock.swap(ctx, "del", 0); err != nil {
		return err
	}
	lock.client.logger.WithContext(ctx).Debugf("Released lock %s", lock.key)
	return nil
}

// Extend resets the TTL while the lock is still ours
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	return lock.swap(ctx, "pexpire", ttl)
}

func (lock *Lock) swap(ctx context.Context, command string, ttl time.Duration) error {
	result, err := compareAndSwap.Run(ctx, lock.client.rdb, []string{lock.key}, lock.token, command, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
