package group

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/apperr"
)

func newRedisThrottle(t *testing.T, cooldown time.Duration) (*RedisThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisThrottle(client, cooldown), mr
}

func TestRedisThrottle(t *testing.T) {
	th, _ := newRedisThrottle(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.Check(ctx, "t1"))
	release, err := th.Acquire(ctx, "t1")
	require.NoError(t, err)

	assert.True(t, apperr.IsValidation(th.Check(ctx, "t1")))
	_, err = th.Acquire(ctx, "t1")
	assert.True(t, apperr.IsValidation(err))
	assert.NoError(t, th.Check(ctx, "t2"), "other teachers are unaffected")

	release(ctx)
	assert.NoError(t, th.Check(ctx, "t1"))
	_, err = th.Acquire(ctx, "t1")
	assert.NoError(t, err, "released reservations free the slot")
}

func TestRedisThrottleExpires(t *testing.T) {
	th, mr := newRedisThrottle(t, time.Minute)
	ctx := context.Background()

	_, err := th.Acquire(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("meritscore:group-submit:t1"))

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, th.Check(ctx, "t1"))
	_, err = th.Acquire(ctx, "t1")
	assert.NoError(t, err)
}

func TestDisabledThrottles(t *testing.T) {
	ctx := context.Background()
	r := NewRedisThrottle(nil, 0)
	_, err := r.Acquire(ctx, "t1")
	assert.NoError(t, err)
	assert.NoError(t, r.Check(ctx, "t1"))

	s := NewSQLThrottle(nil, 0)
	_, err = s.Acquire(ctx, "t1")
	assert.NoError(t, err)
	assert.NoError(t, s.Check(ctx, "t1"))
}
