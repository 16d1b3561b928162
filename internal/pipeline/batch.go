package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/addrcluster/internal/config"
	"github.com/nao1215/addrcluster/internal/model"
)

// BatchProcessor handles concurrent processing of multiple record files.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Each file gets a fresh pipeline from the factory, so no address index or
// union-find forest is ever shared between goroutines.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for one record file.
	pipelineFactory func(source string) (*Pipeline, error)

	// concurrency is the maximum number of files processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed runs. Access is synchronized via mutex.
	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of files processed at once.
// Default is config.DefaultBatchSize.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The factory is called once per record file. A factory error is recorded
// on that file's run and does not stop the other files.
func NewBatchProcessor(pipelineFactory func(source string) (*Pipeline, error), opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     config.DefaultBatchSize,
		results:         make([]*model.Run, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch processes the record files concurrently.
//
// Runs are returned in the order of sources, including runs that failed;
// a failed run carries its error. Sources not started because the context
// was cancelled have a nil run. The error return is the context error, if any.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_files", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	bp.results = make([]*model.Run, len(sources))

	err := bp.process(ctx, sources, func(run *model.Run, index int) {
		bp.mu.Lock()
		bp.results[index] = run
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_files", len(sources),
		"elapsed", time.Since(startTime),
	)
	return bp.results, err
}

// ProcessBatchWithCallback processes the record files and calls callback
// for each finished run. The callback is called from the goroutine that
// finished the run, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_files", len(sources),
		"concurrency", bp.concurrency,
	)
	return bp.process(ctx, sources, callback)
}

// process runs one pipeline per source under the concurrency limit.
func (bp *BatchProcessor) process(ctx context.Context, sources []string, done func(*model.Run, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing file",
				"source", source,
				"index", i+1,
				"total", len(sources),
			)

			run := model.NewRun(source)
			p, err := bp.pipelineFactory(source)
			if err == nil {
				err = p.Execute(ctx, run)
			} else {
				run.Error = err
				run.ErrorMessage = err.Error()
				run.FinishedAt = time.Now()
			}

			done(run, i)

			if err != nil {
				// The error is recorded on the run; other files continue.
				bp.logger.Warn("file failed", "source", source, "error", err)
				return nil
			}
			bp.logger.Info("file completed", "source", source)
			return nil
		})
	}
	return g.Wait()
}
