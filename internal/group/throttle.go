package group

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/meritscore/internal/apperr"
)

// DefaultCooldown is the minimum gap between two batch submissions by one teacher.
const DefaultCooldown = time.Minute

// Throttle limits how often a teacher may submit a batch. Acquire returns
// a release func that undoes the reservation when the submission fails.
// Check reports the same condition without reserving anything.
type Throttle interface {
	Check(ctx context.Context, teacherID string) error
	Acquire(ctx context.Context, teacherID string) (release func(context.Context), err error)
}

func tooSoon(cooldown time.Duration) error {
	return apperr.Validation("group.Submit", "a group application was submitted less than %s ago, please wait", cooldown)
}

func noop(context.Context) {}

// SQLThrottle looks at the teacher's persisted submissions, so a failed
// submission never counts against the cooldown.
type SQLThrottle struct {
	db       *sql.DB
	cooldown time.Duration
	now      func() time.Time
}

func NewSQLThrottle(h *sql.DB, cooldown time.Duration) *SQLThrottle {
	return &SQLThrottle{db: h, cooldown: cooldown, now: time.Now}
}

func (t *SQLThrottle) Check(ctx context.Context, teacherID string) error {
	if t.cooldown <= 0 {
		return nil
	}
	since := t.now().Add(-t.cooldown).Unix()
	var n int
	if err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_applications WHERE teacher_id=$1 AND created_at > $2`, teacherID, since).Scan(&n); err != nil {
		return fmt.Errorf("group: throttle: %w", err)
	}
	if n > 0 {
		return tooSoon(t.cooldown)
	}
	return nil
}

func (t *SQLThrottle) Acquire(ctx context.Context, teacherID string) (func(context.Context), error) {
	if err := t.Check(ctx, teacherID); err != nil {
		return nil, err
	}
	return noop, nil
}

// RedisThrottle reserves a per-teacher key with SET NX, which also closes the
// window between two concurrent submissions.
type RedisThrottle struct {
	client   *redis.Client
	cooldown time.Duration
	prefix   string
}

func NewRedisThrottle(client *redis.Client, cooldown time.Duration) *RedisThrottle {
	return &RedisThrottle{client: client, cooldown: cooldown, prefix: "meritscore:group-submit:"}
}

func (t *RedisThrottle) Check(ctx context.Context, teacherID string) error {
	if t.cooldown <= 0 {
		return nil
	}
	n, err := t.client.Exists(ctx, t.prefix+teacherID).Result()
	if err != nil {
		return fmt.Errorf("group: throttle: %w", err)
	}
	if n > 0 {
		return tooSoon(t.cooldown)
	}
	return nil
}

func (t *RedisThrottle) Acquire(ctx context.Context, teacherID string) (func(context.Context), error) {
	if t.cooldown <= 0 {
		return noop, nil
	}
	key := t.prefix + teacherID
	ok, err := t.client.SetNX(ctx, key, time.Now().Unix(), t.cooldown).Result()
	if err != nil {
		return nil, fmt.Errorf("group: throttle: %w", err)
	}
	if !ok {
		return nil, tooSoon(t.cooldown)
	}
	return func(ctx context.Context) { _ = t.client.Del(ctx, key).Err() }, nil
}
