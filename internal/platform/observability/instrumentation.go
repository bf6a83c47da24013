package observability

import (
	"context"
	"log/slog"
	"time"
)

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// StartSpan records a lightweight span lifecycle around an operation. The
// returned function ends the span; a non-nil error marks it failed.
func StartSpan(ctx context.Context, component, operation string, attrs ...slog.Attr) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	base := append([]slog.Attr{
		slog.String("component", component),
		slog.String("operation", operation),
	}, attrs...)
	logger.LogAttrs(ctx, slog.LevelDebug, "obs span start", base...)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		level := slog.LevelDebug
		switch {
		case err != nil:
			level = slog.LevelError
		case cfg.SlowThreshold > 0 && elapsed >= cfg.SlowThreshold:
			level = slog.LevelWarn
		}

		end := append(append([]slog.Attr{}, base...), slog.Duration("duration", elapsed))
		if err != nil {
			end = append(end, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", end...)
	}
}

// RecordMetric emits a best-effort metric datapoint via the configured logger.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
