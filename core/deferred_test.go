package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferReturnsBeforeSettling(t *testing.T) {
	release := make(chan struct{})
	d := Defer(context.Background(), func(context.Context) (int, error) {
		<-release
		return 42, nil
	})
	assert.False(t, d.Settled())
	close(release)

	v, err := d.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, d.Settled())
}

func TestDeferPropagatesRejection(t *testing.T) {
	boom := errors.New("boom")
	d := Defer(context.Background(), func(context.Context) (string, error) {
		return "", boom
	})
	_, err := d.Await(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestDeferRecoversPanic(t *testing.T) {
	d := Defer(context.Background(), func(context.Context) (int, error) {
		panic("bad")
	})
	_, err := d.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestDeferCancellationReachesWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := Defer(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	cancel()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected deferred work to observe cancellation")
	}
	_, err := d.Await(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestAwaitHonorsCallerContext(t *testing.T) {
	d := Defer(context.Background(), func(ctx context.Context) (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolvedAndRejected(t *testing.T) {
	v, err := Resolved("x").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	_, err = Rejected[int](errors.New("nope")).Await(context.Background())
	require.EqualError(t, err, "nope")
}
