// Package tracing 提供 OpenTelemetry 分布式追踪
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config 追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // OTLP gRPC 地址，为空时输出到 stdout
	SampleRate     float64
	Enabled        bool
}

// Tracer 追踪器包装
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var defaultTracer = &Tracer{tracer: noop.NewTracerProvider().Tracer("")}

// Init 按配置创建导出器并初始化全局追踪器
func Init(ctx context.Context, cfg *Config) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		return defaultTracer, nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	if cfg.Endpoint != "" {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("创建 OTLP 导出器失败: %w", err)
		}
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("创建 stdout 导出器失败: %w", err)
		}
	}

	return InitWithExporter(cfg, exporter)
}

// InitWithExporter 使用指定导出器初始化全局追踪器
func InitWithExporter(cfg *Config, exporter sdktrace.SpanExporter) (*Tracer, error) {
	// 服务属性不带 schema URL，与 SDK 内置资源的 semconv 版本无关
	res, err := resource.New(context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源失败: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	defaultTracer = &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}
	return defaultTracer, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// GetTracer 获取默认追踪器，未启用时为空操作追踪器
func GetTracer() *Tracer {
	return defaultTracer
}

// Shutdown 刷新并关闭追踪器
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan 开始一个带属性的 span
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Start 使用默认追踪器开始 span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return defaultTracer.StartSpan(ctx, name, attrs...)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddEvent 添加事件到当前 span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes 设置当前 span 属性
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// 常用属性键
var (
	AttrTransactionID = attribute.Key("payment.transaction_id")
	AttrBookingNo     = attribute.Key("booking.no")
	AttrPaymentMethod = attribute.Key("payment.method")
	AttrCurrency      = attribute.Key("payment.currency")
	AttrOperation     = attribute.Key("operation")
)

// WithTransactionID 交易号属性
func WithTransactionID(id string) attribute.KeyValue {
	return AttrTransactionID.String(id)
}

// WithBookingNo 预订号属性
func WithBookingNo(no string) attribute.KeyValue {
	return AttrBookingNo.String(no)
}

// WithOperation 操作属性
func WithOperation(op string) attribute.KeyValue {
	return AttrOperation.String(op)
}
