package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingExpirer struct {
	calls int32
	n     int64
	err   error
}

func (e *countingExpirer) ExpireStale(ctx context.Context) (int64, error) {
	atomic.AddInt32(&e.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return e.n, e.err
}

func TestRunInvitationSweep_LogsCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	expirer := &countingExpirer{n: 3}

	RunInvitationSweep(context.Background(), expirer, zap.New(core))

	assert.Equal(t, int32(1), atomic.LoadInt32(&expirer.calls))
	entries := logs.FilterMessage("expired stale invitations").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["count"])
}

func TestRunInvitationSweep_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	RunInvitationSweep(context.Background(), &countingExpirer{err: errors.New("db down")}, zap.New(core))

	assert.Equal(t, 1, logs.FilterMessage("invitation sweep failed").Len())
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.AddInvitationSweep("not a schedule", &countingExpirer{}))
}

func TestScheduler_RunsSweep(t *testing.T) {
	s := NewScheduler(nil)
	expirer := &countingExpirer{}
	require.NoError(t, s.AddInvitationSweep("@every 1s", expirer))

	s.Start()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&expirer.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
