// Package scheduler 提供定时任务调度
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
)

const defaultTaskTimeout = 5 * time.Minute

// Scheduler 定时任务调度器
type Scheduler struct {
	tasks   []*Task
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// Task 定时任务
type Task struct {
	Name     string
	Interval time.Duration
	Handler  func(ctx context.Context) error
}

// NewScheduler 创建调度器，timeout 为单次执行超时，<=0 时使用 5 分钟
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:   make([]*Task, 0),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTask 添加任务，需在 Start 之前调用
func (s *Scheduler) AddTask(name string, interval time.Duration, handler func(ctx context.Context) error) {
	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Interval: interval,
		Handler:  handler,
	})
}

// Tasks 已注册的任务
func (s *Scheduler) Tasks() []*Task {
	return s.tasks
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info("scheduler starting", zap.Int("tasks", len(s.tasks)))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(task)
	}
}

// Stop 停止调度器并等待正在执行的任务结束，可重复调用
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		logger.Info("scheduler stopping")
		s.cancel()
		s.wg.Wait()
		logger.Info("scheduler stopped")
	})
}

func (s *Scheduler) runTask(task *Task) {
	defer s.wg.Done()

	logger.Info("scheduler task started", zap.String("task", task.Name), zap.Duration("interval", task.Interval))

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	// 立即执行一次
	s.executeTask(task)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeTask(task)
		}
	}
}

func (s *Scheduler) executeTask(task *Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduler task panic", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := task.Handler(ctx); err != nil {
		logger.Error("scheduler task failed", zap.String("task", task.Name), zap.Error(err))
		return
	}
	logger.Debug("scheduler task completed", zap.String("task", task.Name), logger.Latency(time.Since(start)))
}
