package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hwuu/sitedeploy/internal/builder"
	"github.com/hwuu/sitedeploy/internal/config"
	"github.com/hwuu/sitedeploy/internal/logfields"
)

// Pipeline 构建编排器，由 builder.Builder 实现
type Pipeline interface {
	Build(ctx context.Context, logger *slog.Logger, website *config.Website, tpl *config.Template) error
	Upload(ctx context.Context, logger *slog.Logger, website *config.Website, outputSubdir string) (*builder.UploadResult, error)
	Clean(ctx context.Context, logger *slog.Logger, website *config.Website) error
}

// Runner 执行一次生成或删除任务并发出进度事件。
// 同一网站的并发任务不做互斥，由调用方保证。
type Runner struct {
	Pipeline Pipeline
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  Recorder
	Now      func() time.Time
	NewRunID func() string
}

// NewRunner 创建使用默认依赖的 Runner
func NewRunner(p Pipeline, n Notifier, logger *slog.Logger) *Runner {
	return &Runner{Pipeline: p, Notifier: n, Logger: logger}
}

// run 单次任务的上下文
type run struct {
	r       *Runner
	id      string
	kind    string
	website *config.Website
	start   time.Time
	logger  *slog.Logger
}

// Generate 构建并上传网站。
// 事件序列：PROCESSING/BUILD → PROCESSING/UPLOAD → SUCCESS/IDLE；
// 任一阶段失败则发出 FAIL/<阶段> 并返回 *StepError。
func (r *Runner) Generate(ctx context.Context, website *config.Website, tpl *config.Template) error {
	run := r.begin("generate", website)
	run.logger.Info("Website generation started")

	err := run.phase(ctx, StepBuild, func(logger *slog.Logger) error {
		return r.Pipeline.Build(ctx, logger, website, tpl)
	})
	if err != nil {
		return err
	}

	// 没有模板时直接上传网站目录
	outputSubdir := ""
	if tpl != nil {
		outputSubdir = tpl.Build.Directory
	}
	err = run.phase(ctx, StepUpload, func(logger *slog.Logger) error {
		result, err := r.Pipeline.Upload(ctx, logger, website, outputSubdir)
		if result != nil {
			logger.Info("Upload summary", logfields.Files(result.Files), slog.Int64("bytes", result.Bytes))
		}
		return err
	})
	if err != nil {
		return err
	}

	run.succeed(ctx)
	return nil
}

// Delete 清理网站本地工作目录：PROCESSING/CLEAN → SUCCESS/IDLE
func (r *Runner) Delete(ctx context.Context, website *config.Website) error {
	run := r.begin("delete", website)
	run.logger.Info("Website deletion started")

	err := run.phase(ctx, StepClean, func(logger *slog.Logger) error {
		return r.Pipeline.Clean(ctx, logger, website)
	})
	if err != nil {
		return err
	}

	run.succeed(ctx)
	return nil
}

func (r *Runner) begin(kind string, website *config.Website) *run {
	id := r.newRunID()
	return &run{
		r:       r,
		id:      id,
		kind:    kind,
		website: website,
		start:   r.now(),
		logger:  logfields.Website(r.Logger, website.ID, website.Name).With(logfields.RunID(id)),
	}
}

// phase 执行一个阶段：先发出 PROCESSING/<step>，失败时发出 FAIL/<step> 并包装为 StepError
func (run *run) phase(ctx context.Context, step Step, fn func(logger *slog.Logger) error) error {
	run.emit(ctx, StatusProcessing, step, "", false)

	started := run.r.now()
	err := fn(run.logger)
	elapsed := run.r.now().Sub(started)

	metrics := run.r.metrics()
	metrics.ObservePhaseDuration(step, elapsed)
	metrics.IncPhaseResult(step, err == nil)

	if err != nil {
		run.logger.Error("Website generation failed",
			logfields.Step(string(step)),
			logfields.Duration(elapsed),
			logfields.Error(err))
		run.emit(ctx, StatusFail, step, err.Error(), true)
		metrics.IncRunOutcome(run.kind, StatusFail)
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (run *run) succeed(ctx context.Context) {
	run.emit(ctx, StatusSuccess, StepIdle, "", true)
	run.r.metrics().IncRunOutcome(run.kind, StatusSuccess)
	run.logger.Info("Website generation finished", logfields.Duration(run.r.now().Sub(run.start)))
}

// emit 发出事件；通知失败只记录日志，不影响任务结果
func (run *run) emit(ctx context.Context, status Status, step Step, reason string, final bool) {
	evt := Event{
		WebsiteID: run.website.ID,
		RunID:     run.id,
		Status:    status,
		Step:      step,
		Reason:    reason,
		StartTime: run.start,
	}
	if final {
		end := run.r.now()
		evt.EndTime = &end
	}

	run.logger.Debug("Generation event",
		logfields.Status(string(status)),
		logfields.Step(string(step)))

	if run.r.Notifier == nil {
		return
	}
	// 任务被取消时仍要把 FAIL 事件送达各接收方
	if err := run.r.Notifier.Notify(context.WithoutCancel(ctx), evt); err != nil {
		run.logger.Warn("Failed to publish generation event", logfields.Error(err))
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) newRunID() string {
	if r.NewRunID != nil {
		return r.NewRunID()
	}
	return uuid.NewString()
}

func (r *Runner) metrics() Recorder {
	if r.Metrics != nil {
		return r.Metrics
	}
	return NoopRecorder{}
}
