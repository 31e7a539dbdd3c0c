// Package breaker 基于 gobreaker 的熔断器封装，用于保护支付网关调用
package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
)

// StateRecorder 记录熔断器状态的指标接口
type StateRecorder interface {
	SetBreakerState(name string, state float64)
}

// Settings 熔断参数
type Settings struct {
	Name         string
	MaxRequests  uint32        // 半开状态允许的请求数
	Interval     time.Duration // 闭合状态下的统计窗口
	Timeout      time.Duration // 打开后多久进入半开
	MinRequests  uint32        // 触发熔断的最少请求数
	FailureRatio float64       // 触发熔断的失败比例
}

// DefaultSettings 默认参数：至少 3 次请求且失败率不低于 60% 时熔断
func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     15 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// Breaker 熔断器
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New 创建熔断器，recorder 可为 nil
func New(s Settings, recorder StateRecorder) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if recorder != nil {
				recorder.SetBreakerState(name, stateValue(to))
			}
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	if recorder != nil {
		recorder.SetBreakerState(s.Name, 0)
	}
	return &Breaker{cb: cb, name: s.Name}
}

// Execute 在熔断器保护下执行 fn
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(fn)
}

// Do 泛型版本的 Execute
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if v, ok := res.(T); ok {
			return v, err
		}
		return zero, err
	}
	return res.(T), nil
}

// Name 熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// State 当前状态：closed / half-open / open
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsOpen 熔断器是否处于打开状态
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// IsRejected 错误是否由熔断器直接拒绝
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
