// Package events 发布支付与预订领域事件
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/logger"
)

// 事件类型
const (
	TypePaymentSucceeded     = "payment.succeeded"
	TypePaymentFailed        = "payment.failed"
	TypeBookingStatusChanged = "booking.status_changed"
)

// Event 领域事件
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NewEvent 创建事件
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// PaymentEvent 支付事件数据
type PaymentEvent struct {
	TransactionID string `json:"transaction_id"`
	BookingNo     string `json:"booking_no,omitempty"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	BankCode      string `json:"bank_code,omitempty"`
}

// BookingStatusEvent 预订状态变化数据
type BookingStatusEvent struct {
	BookingNo string `json:"booking_no"`
	From      string `json:"from"`
	To        string `json:"to"`
	Operator  string `json:"operator,omitempty"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher 不发布任何事件
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close 无操作
func (NopPublisher) Close() {}

// conn 发布所需的最小连接接口，*nats.Conn 满足该接口
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher 通过 NATS 发布事件
type NATSPublisher struct {
	conn   conn
	prefix string
}

// Connect 按配置连接 NATS，未启用时返回 NopPublisher
func Connect(cfg *config.NATSConfig) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NopPublisher{}, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("royal-elegance"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect nats: %w", err)
	}
	return newNATSPublisher(nc, cfg.SubjectPrefix), nil
}

func newNATSPublisher(c conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject 事件类型对应的主题，如 royal.payment.succeeded
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish 序列化为 JSON 并发布，随后在 ctx 时限内刷新
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return p.conn.FlushWithContext(ctx)
}

// Close 排空并关闭连接
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		logger.Warn("nats drain failed", zap.Error(err))
	}
}

// MemoryPublisher 在内存中记录事件
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish 记录事件
func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Close 无操作
func (m *MemoryPublisher) Close() {}

// Events 返回已记录事件的副本
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types 返回已记录事件的类型
func (m *MemoryPublisher) Types() []string {
	events := m.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
