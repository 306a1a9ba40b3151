package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, levelStr string) *Logger {
	level := getLogLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text for development, JSON for everything else
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewDiscard returns a logger that drops everything
func NewDiscard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Ticket lifecycle logging methods

// LogTicketsReserved logs a successful reservation batch
func (l *Logger) LogTicketsReserved(ctx context.Context, batchID, holderID string, numbers []string, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Tickets Reserved",
		slog.String("batch_id", batchID),
		slog.String("holder_id", holderID),
		slog.Any("numbers", numbers),
		slog.Time("expires_at", expiresAt),
	)
}

// LogTicketsSold logs tickets finalized as sold
func (l *Logger) LogTicketsSold(ctx context.Context, paymentID, holderID string, numbers []string) {
	l.Logger.InfoContext(ctx,
		"Tickets Sold",
		slog.String("payment_id", paymentID),
		slog.String("holder_id", holderID),
		slog.Any("numbers", numbers),
	)
}

// LogTicketsReleased logs tickets returned to the available pool
func (l *Logger) LogTicketsReleased(ctx context.Context, batchID, reason string, numbers []string) {
	l.Logger.InfoContext(ctx,
		"Tickets Released",
		slog.String("batch_id", batchID),
		slog.String("reason", reason),
		slog.Any("numbers", numbers),
	)
}

// LogPaymentConflict logs an approval that arrived after its hold was lost
func (l *Logger) LogPaymentConflict(ctx context.Context, paymentID, holderID string, lost []string) {
	l.Logger.WarnContext(ctx,
		"Payment Approved After Hold Lost",
		slog.String("payment_id", paymentID),
		slog.String("holder_id", holderID),
		slog.Any("numbers", lost),
	)
}

// LogGatewayError logs a failed call to the payment processor
func (l *Logger) LogGatewayError(ctx context.Context, operation string, err error) {
	l.Logger.ErrorContext(ctx,
		"Payment Gateway Error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// Security logging methods

// LogAccessDenied logs a failed password check
func (l *Logger) LogAccessDenied(ctx context.Context, ip string) {
	l.Logger.WarnContext(ctx,
		"Access Denied",
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
