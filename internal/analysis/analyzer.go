package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/threadscope/threadscope/internal/metrics"
	"github.com/threadscope/threadscope/pkg/model"
)

// minAnalyzableLen is the shortest cleaned comment, in characters, worth
// sending to the model.
const minAnalyzableLen = 5

// LLM is the subset of the Ollama client the engine depends on.
type LLM interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	CheckModel(ctx context.Context, model string) error
}

// RunStore persists analysis runs and loads snapshot material.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.AnalysisRun) error
	GetRun(ctx context.Context, id string) (*model.AnalysisRun, error)
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
}

// EventPublisher emits run lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Config tunes the batch engine.
type Config struct {
	DefaultModel  string
	Workers       int           // concurrent LLM requests per run
	Delay         time.Duration // pause after each request, per worker
	ProgressEvery int           // NATS progress event cadence (comments)
}

// Engine runs batch comment analyses over snapshots. Runs execute in the
// background on the service context so they survive the triggering HTTP
// request.
type Engine struct {
	ctx       context.Context
	cfg       Config
	logger    *zap.Logger
	llm       LLM
	store     RunStore
	publisher EventPublisher
	hub       *ProgressHub
}

// NewEngine constructs a fully wired analysis engine.
func NewEngine(
	ctx context.Context,
	cfg Config,
	logger *zap.Logger,
	llm LLM,
	store RunStore,
	pub EventPublisher,
	hub *ProgressHub,
) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = 10
	}
	return &Engine{
		ctx:       ctx,
		cfg:       cfg,
		logger:    logger,
		llm:       llm,
		store:     store,
		publisher: pub,
		hub:       hub,
	}
}

// Hub exposes the progress hub for subscribers.
func (e *Engine) Hub() *ProgressHub {
	return e.hub
}

// AnalyzeComment analyzes a single comment. Comments whose cleaned body is
// too short skip the model entirely; model failures degrade to the neutral
// default so one bad response cannot sink a batch.
func (e *Engine) AnalyzeComment(ctx context.Context, modelName string, comment model.Comment) model.CommentAnalysis {
	cleaned := CleanText(comment.Body)

	if utf8.RuneCountInString(cleaned) < minAnalyzableLen {
		metrics.IncCommentAnalyzed("skipped")
		return model.CommentAnalysis{
			CommentID:  comment.ID,
			Sentiment:  model.SentimentNeutral,
			Confidence: 0.0,
			Toxicity:   model.ToxicityLow,
			Emotion:    "neutral",
			Summary:    "comment too short to analyze",
		}
	}

	response, err := e.llm.Generate(ctx, modelName, BuildPrompt(cleaned))
	if err != nil {
		e.logger.Warn("analysis.generate_failed",
			zap.String("comment_id", comment.ID),
			zap.Error(err))
		metrics.IncCommentAnalyzed("error")
		return model.CommentAnalysis{
			CommentID:  comment.ID,
			Sentiment:  model.SentimentNeutral,
			Confidence: 0.0,
			Toxicity:   model.ToxicityLow,
			Emotion:    "neutral",
			Summary:    "analysis failed",
		}
	}

	metrics.IncCommentAnalyzed("ok")
	return ParseResponse(response, comment.ID)
}

// StartRun validates the request, registers a pending run, and launches the
// batch in the background. The returned run is a copy of the pending record;
// the live record belongs to the batch goroutine from here on.
func (e *Engine) StartRun(ctx context.Context, snapshotID, modelName string, delay *time.Duration) (*model.AnalysisRun, error) {
	snap, err := e.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}

	if modelName == "" {
		modelName = e.cfg.DefaultModel
	}
	if err := e.llm.CheckModel(ctx, modelName); err != nil {
		return nil, err
	}

	comments := snap.AllComments()
	if len(comments) == 0 {
		return nil, fmt.Errorf("snapshot %s has no comments to analyze", snapshotID)
	}

	run := &model.AnalysisRun{
		ID:         uuid.NewString(),
		SnapshotID: snapshotID,
		Model:      modelName,
		Status:     model.RunPending,
		Total:      len(comments),
		StartedAt:  time.Now().UTC(),
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("register run: %w", err)
	}

	runDelay := e.cfg.Delay
	if delay != nil {
		runDelay = *delay
	}

	pending := *run

	// Execute on the engine's context, not the request context, so the batch
	// survives after the HTTP response is sent.
	go e.execute(e.ctx, run, comments, runDelay)

	e.logger.Info("analysis.run_started",
		zap.String("run_id", pending.ID),
		zap.String("snapshot_id", snapshotID),
		zap.String("model", modelName),
		zap.Int("comments", pending.Total))
	return &pending, nil
}

// GetRun loads a run by ID.
func (e *Engine) GetRun(ctx context.Context, id string) (*model.AnalysisRun, error) {
	return e.store.GetRun(ctx, id)
}

// execute runs the batch: a bounded worker pool over the comments, results
// kept in comment order, progress fanned out as workers finish.
func (e *Engine) execute(ctx context.Context, run *model.AnalysisRun, comments []model.Comment, delay time.Duration) {
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	run.Status = model.RunRunning
	if err := e.store.SaveRun(ctx, run); err != nil {
		e.logger.Warn("analysis.save_run_failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	e.publishEvent(ctx, model.SubjectAnalysisStarted, map[string]any{
		"run_id":      run.ID,
		"snapshot_id": run.SnapshotID,
		"model":       run.Model,
		"total":       run.Total,
	})

	results := make([]model.CommentAnalysis, len(comments))
	var done atomic.Int64

	// Workers read only these; run itself is touched by this goroutine alone.
	runID, modelName, total := run.ID, run.Model, run.Total

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i, comment := range comments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = e.AnalyzeComment(gctx, modelName, comment)

			n := int(done.Add(1))
			e.reportProgress(gctx, runID, n, total)

			if delay > 0 && n < len(comments) {
				select {
				case <-time.After(delay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	finished := time.Now().UTC()
	if err := g.Wait(); err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
		run.FinishedAt = &finished
		run.Done = int(done.Load())
		if saveErr := e.store.SaveRun(ctx, run); saveErr != nil {
			e.logger.Warn("analysis.save_run_failed", zap.String("run_id", run.ID), zap.Error(saveErr))
		}
		e.hub.Publish(e.progressOf(run))
		e.publishEvent(context.WithoutCancel(ctx), model.SubjectAnalysisFailed, map[string]any{
			"run_id": run.ID,
			"error":  err.Error(),
		})
		e.logger.Error("analysis.run_failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
		return
	}

	run.Status = model.RunCompleted
	run.Done = len(results)
	run.FinishedAt = &finished
	run.Results = results
	run.Stats = Summarize(results)
	if err := e.store.SaveRun(ctx, run); err != nil {
		e.logger.Warn("analysis.save_run_failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	e.hub.Publish(e.progressOf(run))
	e.publishEvent(ctx, model.SubjectAnalysisCompleted, map[string]any{
		"run_id":      run.ID,
		"snapshot_id": run.SnapshotID,
		"total":       run.Total,
		"stats":       run.Stats,
		"duration_ms": finished.Sub(run.StartedAt).Milliseconds(),
	})

	e.logger.Info("analysis.run_complete",
		zap.String("run_id", run.ID),
		zap.Int("comments", run.Total),
		zap.Duration("duration", finished.Sub(run.StartedAt)))
}

// reportProgress fans a progress update out to hub subscribers and mirrors
// every Nth update to NATS. Workers call it concurrently, so it works from
// the values passed in and never writes the run record.
func (e *Engine) reportProgress(ctx context.Context, runID string, done, total int) {
	p := model.Progress{
		RunID:   runID,
		Done:    done,
		Total:   total,
		Percent: percentOf(done, total),
		Status:  model.RunRunning,
	}
	e.hub.Publish(p)

	if done%e.cfg.ProgressEvery == 0 || done == total {
		e.publishEvent(ctx, model.SubjectAnalysisProgress, p)
		e.logger.Info("analysis.progress",
			zap.String("run_id", runID),
			zap.Int("done", done),
			zap.Int("total", total),
			zap.Float64("percent", p.Percent))
	}
}

func (e *Engine) progressOf(run *model.AnalysisRun) model.Progress {
	return model.Progress{
		RunID:   run.ID,
		Done:    run.Done,
		Total:   run.Total,
		Percent: percentOf(run.Done, run.Total),
		Status:  run.Status,
	}
}

func percentOf(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func (e *Engine) publishEvent(ctx context.Context, subject string, payload any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, subject, payload); err != nil {
		e.logger.Debug("nats.publish_failed",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
