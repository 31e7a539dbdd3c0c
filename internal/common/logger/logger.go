// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/config"
)

// 输出目标
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

var log *zap.Logger

// Init 初始化日志
//
// file 与 both 模式写入 lumberjack 轮转文件，未配置 FilePath 时退回 stdout。
func Init(cfg *config.LoggerConfig) error {
	sinks, err := writers(cfg)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(encoder(cfg.Format), zapcore.NewMultiWriteSyncer(sinks...), parseLevel(cfg.Level))

	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	Replace(zap.New(core, options...))
	return nil
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func writers(cfg *config.LoggerConfig) ([]zapcore.WriteSyncer, error) {
	output := cfg.Output
	if output == "" {
		output = OutputStdout
	}
	if output != OutputStdout && cfg.FilePath == "" {
		output = OutputStdout
	}

	var ws []zapcore.WriteSyncer
	switch output {
	case OutputStdout:
		ws = append(ws, zapcore.AddSync(os.Stdout))
	case OutputFile:
		ws = append(ws, zapcore.AddSync(rotating(cfg)))
	case OutputBoth:
		ws = append(ws, zapcore.AddSync(os.Stdout), zapcore.AddSync(rotating(cfg)))
	default:
		return nil, fmt.Errorf("logger: unknown output %q", cfg.Output)
	}
	return ws, nil
}

func rotating(cfg *config.LoggerConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

// Replace 替换全局日志器，测试中用于注入 observer
func Replace(l *zap.Logger) {
	log = l
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// GetLogger 获取全局日志器，未初始化时使用开发配置
func GetLogger() *zap.Logger {
	if log == nil {
		l, _ := zap.NewDevelopment()
		Replace(l)
	}
	return log
}

// Sync 同步日志
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}

// FromContext 带上当前 span 的 trace_id 和 span_id
func FromContext(ctx context.Context) *zap.Logger {
	l := GetLogger()
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { GetLogger().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { GetLogger().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// Named 返回命名日志器
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// 业务字段

func RequestID(id string) zap.Field { return zap.String("request_id", id) }

func BookingNo(no string) zap.Field { return zap.String("booking_no", no) }

func TransactionID(id string) zap.Field { return zap.String("transaction_id", id) }

func PaymentStatus(status string) zap.Field { return zap.String("payment_status", status) }

// Amount 金额按字符串记录，避免浮点误差
func Amount(amount decimal.Decimal, currency string) zap.Field {
	return zap.String("amount", amount.String()+" "+currency)
}

// HTTP 字段

func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }

func StatusCode(code int) zap.Field { return zap.Int("status_code", code) }

func Method(method string) zap.Field { return zap.String("method", method) }

func Path(path string) zap.Field { return zap.String("path", path) }

func IP(ip string) zap.Field { return zap.String("ip", ip) }
