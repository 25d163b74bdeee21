//go:build integration

package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pakngate/pkg/testutil/containers"
)

func TestRedisStore_WindowLifecycle(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	s := NewRedis(rc.Client)
	now := time.Now()

	rem, err := s.Remaining(ctx, "PAKN-1", now)
	require.NoError(t, err)
	assert.Zero(t, rem, "no window before any reservation")

	require.NoError(t, s.Reserve(ctx, "PAKN-1", 60*time.Second, now))

	rem, err = s.Remaining(ctx, "PAKN-1", now)
	require.NoError(t, err)
	assert.Greater(t, rem, 50*time.Second)
	assert.LessOrEqual(t, rem, 60*time.Second)

	rem, err = s.Remaining(ctx, "PAKN-2", now)
	require.NoError(t, err)
	assert.Zero(t, rem, "windows are keyed by case code")

	require.NoError(t, s.Clear(ctx, "PAKN-1"))

	rem, err = s.Remaining(ctx, "PAKN-1", now)
	require.NoError(t, err)
	assert.Zero(t, rem)
}

func TestRedisStore_WindowExpires(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	s := NewRedis(rc.Client)

	require.NoError(t, s.Reserve(ctx, "PAKN-1", time.Second, time.Now()))

	require.Eventually(t, func() bool {
		rem, err := s.Remaining(ctx, "PAKN-1", time.Now())
		return err == nil && rem == 0
	}, 5*time.Second, 100*time.Millisecond)
}
