package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-etl/internal/domain/run"
	apperrors "user-etl/pkg/errors"
	"user-etl/pkg/logger"
)

// Pipeline runs generate, transform and load in sequence.
type Pipeline struct {
	generator   *Generator
	transformer *Transformer
	loader      *Loader
	opts        Options
	log         *zap.Logger
	now         func() time.Time
}

// NewPipeline wires the three stages.
func NewPipeline(g *Generator, t *Transformer, l *Loader, opts Options, log *zap.Logger) *Pipeline {
	return &Pipeline{
		generator:   g,
		transformer: t,
		loader:      l,
		opts:        opts,
		log:         log,
		now:         time.Now,
	}
}

// stageFunc runs one stage and reports rows produced and rows dropped.
type stageFunc func(ctx context.Context) (rows, dropped int, err error)

// Run executes the pipeline once. A failed generate or transform stage skips
// the stages after it; a failed load is recorded and the run still
// completes. Stage failures never surface as a returned error, only in the
// report.
func (p *Pipeline) Run(ctx context.Context) *run.Report {
	ctx, runID := logger.StartRun(ctx)
	log := logger.WithContext(ctx, p.log)

	report := &run.Report{RunID: runID, StartedAt: p.now()}
	log.Info("pipeline started",
		zap.Int("num_records", p.opts.NumRecords),
		zap.String("raw_file", p.opts.RawFile),
		zap.String("transformed_file", p.opts.TransformedFile),
	)

	stages := []struct {
		stage run.Stage
		fn    stageFunc
	}{
		{run.StageGenerate, func(ctx context.Context) (int, int, error) {
			res, err := p.generator.Generate(ctx, p.opts.NumRecords, p.opts.RawFile)
			if err != nil {
				return 0, 0, err
			}
			return res.Written, 0, nil
		}},
		{run.StageTransform, func(ctx context.Context) (int, int, error) {
			res, err := p.transformer.Transform(ctx, p.opts.RawFile, p.opts.TransformedFile)
			if err != nil {
				return 0, 0, err
			}
			return res.Kept, res.Dropped, nil
		}},
		{run.StageLoad, func(ctx context.Context) (int, int, error) {
			res, err := p.loader.Load(ctx, p.opts.TransformedFile)
			if err != nil {
				return 0, 0, err
			}
			return res.Inserted, 0, nil
		}},
	}

	failed := false
	for _, s := range stages {
		if failed {
			report.Stages = append(report.Stages, run.Skipped(s.stage))
			continue
		}

		res := p.runStage(ctx, s.stage, s.fn)
		report.Stages = append(report.Stages, res)

		// Load is last, so only earlier failures have stages to skip.
		if res.Status == run.StatusFailed {
			failed = true
		}
	}

	report.FinishedAt = p.now()

	fields := []zap.Field{
		zap.Bool("succeeded", report.Succeeded()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	}
	if f, ok := report.FirstFailure(); ok {
		fields = append(fields,
			zap.String("failed_stage", string(f.Stage)),
			zap.String("failure_kind", string(f.Kind)),
		)
		log.Warn("pipeline finished with failures", fields...)
	} else {
		log.Info("pipeline finished", fields...)
	}

	return report
}

// runStage executes fn, converting errors and panics into a failed result.
func (p *Pipeline) runStage(ctx context.Context, stage run.Stage, fn stageFunc) (res run.StageResult) {
	ctx = logger.WithStage(ctx, string(stage))
	log := logger.WithContext(ctx, p.log)
	start := p.now()

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewUnexpectedError(string(stage), "panic", fmt.Errorf("%v", r))
			log.Error("stage panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = run.Failed(stage, err, p.now().Sub(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		return run.Failed(stage, apperrors.NewUnexpectedError(string(stage), "interrupted", err), 0)
	}

	log.Info("stage started")

	rows, dropped, err := fn(ctx)
	elapsed := p.now().Sub(start)
	if err != nil {
		log.Error("stage failed", zap.Error(err), zap.String("kind", string(apperrors.KindOf(err))))
		return run.Failed(stage, err, elapsed)
	}

	log.Info("stage succeeded", zap.Int("rows", rows), zap.Duration("elapsed", elapsed))
	return run.StageResult{
		Stage:    stage,
		Status:   run.StatusSucceeded,
		Rows:     rows,
		Dropped:  dropped,
		Duration: elapsed,
	}
}
