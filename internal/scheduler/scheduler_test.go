// Package scheduler 定时任务单元测试
package scheduler

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCloser) CloseExpiredPayments(context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

// ==================== Scheduler 测试 ====================

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	s := NewScheduler(time.Second)
	var runs atomic.Int32
	s.AddTask("count", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "停止后不再执行")
}

func TestScheduler_TaskErrorsAndPanicsDoNotStopLoop(t *testing.T) {
	s := NewScheduler(0)
	var runs atomic.Int32
	s.AddTask("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("boom")
		}
		return stderrors.New("still failing")
	})

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_TaskContextHasTimeout(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	done := make(chan error, 1)
	s.AddTask("slow", time.Hour, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	s.Start()
	defer s.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task did not time out")
	}
}

func TestScheduler_StopTwice(t *testing.T) {
	s := NewScheduler(0)
	s.Start()
	s.Stop()
	assert.NotPanics(t, s.Stop)
}

// ==================== 任务注册测试 ====================

func TestRegisterTasks(t *testing.T) {
	closer := &fakeCloser{}
	s := NewScheduler(0)
	RegisterTasks(s, NewTaskHandler(closer), 0)

	require.Len(t, s.Tasks(), 1)
	assert.Equal(t, TaskCloseExpiredPayments, s.Tasks()[0].Name)
	assert.Equal(t, time.Minute, s.Tasks()[0].Interval)

	require.NoError(t, s.Tasks()[0].Handler(context.Background()))
	assert.Equal(t, int32(1), closer.calls.Load())
}

func TestTaskHandler_CloseExpiredPayments_Error(t *testing.T) {
	closer := &fakeCloser{err: stderrors.New("db down")}
	err := NewTaskHandler(closer).CloseExpiredPayments(context.Background())
	assert.EqualError(t, err, "db down")
}
