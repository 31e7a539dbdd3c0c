package scheduler

import (
	"context"
	"time"
)

// 任务名称
const (
	TaskCloseExpiredPayments = "close_expired_payments"
)

// PaymentCloser 关闭过期支付，*payment.PaymentService 实现了该接口
type PaymentCloser interface {
	CloseExpiredPayments(ctx context.Context) (int, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	payments PaymentCloser
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(payments PaymentCloser) *TaskHandler {
	return &TaskHandler{payments: payments}
}

// CloseExpiredPayments 关闭超过有效期仍未支付的 KHQR 支付
func (h *TaskHandler) CloseExpiredPayments(ctx context.Context) error {
	_, err := h.payments.CloseExpiredPayments(ctx)
	return err
}

// RegisterTasks 注册所有任务，interval 为过期检查间隔
func RegisterTasks(s *Scheduler, h *TaskHandler, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.AddTask(TaskCloseExpiredPayments, interval, h.CloseExpiredPayments)
}
