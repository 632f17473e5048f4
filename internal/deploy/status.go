package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hwuu/sitedeploy/internal/generation"
)

// HistoryReader 生成历史查询接口，由 generation.HistoryStore 实现
type HistoryReader interface {
	Latest(ctx context.Context, websiteID string) (*generation.Event, error)
	List(ctx context.Context, websiteID string, limit int) ([]generation.Event, error)
	RunEvents(ctx context.Context, runID string) ([]generation.Event, error)
}

// StatusRunner 状态查询器
type StatusRunner struct {
	History HistoryReader
	Output  io.Writer
}

func (s *StatusRunner) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.Output, format, args...)
}

// Run 输出网站最近一次任务的状态
func (s *StatusRunner) Run(ctx context.Context, websiteID string) error {
	evt, err := s.History.Latest(ctx, websiteID)
	if errors.Is(err, generation.ErrNoHistory) {
		s.printf("未找到网站 %s 的生成记录。请先运行 sitedeploy generate\n", websiteID)
		return nil
	}
	if err != nil {
		return err
	}

	s.printf("网站 %s 生成状态\n", websiteID)
	s.printf("─────────────────────────────────────────\n")
	s.printf("  %-10s %s\n", "任务", evt.RunID)
	s.printf("  %-10s %s\n", "状态", statusLabel(evt.Status))
	s.printf("  %-10s %s\n", "阶段", evt.Step)
	s.printf("  %-10s %s\n", "开始时间", formatTime(evt.StartTime))
	if evt.EndTime != nil {
		s.printf("  %-10s %s (耗时 %s)\n", "结束时间", formatTime(*evt.EndTime), evt.EndTime.Sub(evt.StartTime).Round(time.Millisecond))
	}
	if evt.Reason != "" {
		s.printf("  %-10s %s\n", "原因", evt.Reason)
	}
	if !evt.Terminal() {
		s.printf("\n任务尚未结束（或进程已中断）。\n")
	}
	return nil
}

// PrintHistory 按时间顺序输出最近 limit 条事件
func (s *StatusRunner) PrintHistory(ctx context.Context, websiteID string, limit int) error {
	events, err := s.History.List(ctx, websiteID, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		s.printf("未找到网站 %s 的生成记录。\n", websiteID)
		return nil
	}

	for _, evt := range events {
		s.printEventLine(evt)
	}
	return nil
}

// PrintRun 输出一次任务的全部事件
func (s *StatusRunner) PrintRun(ctx context.Context, runID string) error {
	events, err := s.History.RunEvents(ctx, runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		s.printf("未找到任务 %s。\n", runID)
		return nil
	}

	s.printf("网站 %s 任务 %s\n", events[0].WebsiteID, runID)
	for _, evt := range events {
		s.printEventLine(evt)
	}
	if !events[len(events)-1].Terminal() {
		s.printf("\n任务尚未结束（或进程已中断）。\n")
	}
	return nil
}

func (s *StatusRunner) printEventLine(evt generation.Event) {
	line := fmt.Sprintf("%s  %-8.8s  %-10s %-6s", formatTime(evt.StartTime), evt.RunID, evt.Status, evt.Step)
	if evt.Reason != "" {
		line += "  " + evt.Reason
	}
	s.printf("%s\n", line)
}

func statusLabel(status generation.Status) string {
	switch status {
	case generation.StatusSuccess:
		return "✅ SUCCESS"
	case generation.StatusFail:
		return "❌ FAIL"
	case generation.StatusProcessing:
		return "⏳ PROCESSING"
	default:
		return string(status)
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
