package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedExpires(t *testing.T) {
	ctx, cancel := bounded(context.Background(), context.Background(), 20*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("bounded context never expired")
	}
}

func TestBoundedFollowsCaller(t *testing.T) {
	caller, stopCaller := context.WithCancel(context.Background())
	ctx, cancel := bounded(context.Background(), caller, time.Hour)
	defer cancel()

	require.NoError(t, ctx.Err())
	stopCaller()

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("caller cancellation did not reach the bounded context")
	}
}

func TestBoundedFollowsTab(t *testing.T) {
	tab, closeTab := context.WithCancel(context.Background())
	ctx, cancel := bounded(tab, context.Background(), time.Hour)
	defer cancel()

	closeTab()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestBoundedReleaseLeavesCallerAlone(t *testing.T) {
	caller, stopCaller := context.WithCancel(context.Background())
	defer stopCaller()

	_, cancel := bounded(context.Background(), caller, time.Hour)
	cancel()
	assert.NoError(t, caller.Err())
}

func TestRunRejectsDoneCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &Browser{ctx: context.Background()}
	err := b.run(ctx, nodeTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchScriptOmitsCredentials(t *testing.T) {
	assert.Contains(t, fetchScript, `credentials: "omit"`)
	assert.NotContains(t, fetchScript, `"include"`)
}
