package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hwuu/sitedeploy/internal/logfields"
)

// Notifier 接收进度事件
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, evt Event) error

func (f NotifierFunc) Notify(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// MultiNotifier 依次通知所有接收方，某一个失败不影响其余
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier 把事件写入结构化日志
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, evt Event) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelInfo
	if evt.Status == StatusFail {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		logfields.WebsiteID(evt.WebsiteID),
		logfields.RunID(evt.RunID),
		logfields.Status(string(evt.Status)),
		logfields.Step(string(evt.Step)),
	}
	if evt.Reason != "" {
		attrs = append(attrs, slog.String("reason", evt.Reason))
	}
	logger.LogAttrs(ctx, level, "Generation status changed", attrs...)
	return nil
}
