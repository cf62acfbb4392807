// Package digest runs one end-to-end update of the news collection.
package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/harvest"
	"github.com/Adda-Baaj/khobor-digest/internal/history"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
	"github.com/Adda-Baaj/khobor-digest/internal/pipeline"
	"github.com/Adda-Baaj/khobor-digest/internal/store"
	"github.com/Adda-Baaj/khobor-digest/pkg/publishers"
)

// Loader returns the persisted collection at path.
type Loader interface {
	Load(ctx context.Context, path string) domain.Collection
}

// Persister writes a collection to both sinks.
type Persister interface {
	Persist(ctx context.Context, c domain.Collection, primary, secondary store.Sink) error
}

// Recorder appends a completed run to the history log.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Deps are the collaborators a Runner drives.
type Deps struct {
	Loader     Loader
	Acquirer   harvest.Acquirer
	Pipeline   *pipeline.Pipeline
	Persister  Persister
	Primary    store.Sink
	Published  store.Sink
	History    Recorder
	Publishers []publishers.Publisher
	Log        logger.Logger
	Now        func() time.Time
}

// Runner performs load, acquire, pipeline, persist, then the post-commit steps.
type Runner struct {
	deps Deps
	log  logger.Logger
	now  func() time.Time
}

// Result describes a finished run.
type Result struct {
	Run        history.Run
	Collection domain.Collection
}

// NewRunner validates deps and builds a Runner. History and Publishers are optional.
func NewRunner(deps Deps) (*Runner, error) {
	switch {
	case deps.Loader == nil:
		return nil, errors.New("digest runner needs a loader")
	case deps.Acquirer == nil:
		return nil, errors.New("digest runner needs an acquirer")
	case deps.Pipeline == nil:
		return nil, errors.New("digest runner needs a pipeline")
	case deps.Persister == nil:
		return nil, errors.New("digest runner needs a persister")
	case deps.Primary == nil || deps.Published == nil:
		return nil, errors.New("digest runner needs primary and published sinks")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{deps: deps, log: logger.Ensure(deps.Log), now: now}, nil
}

// Run updates the collection for targetDate. Acquisition and persistence
// failures abort the run; history and notification failures only get logged.
func (r *Runner) Run(ctx context.Context, targetDate string) (Result, error) {
	started := r.now().UTC()
	runID := uuid.NewString()

	r.log.InfoObj("digest run started", "run_start", map[string]any{
		"run_id":      runID,
		"target_date": targetDate,
		"primary":     r.deps.Primary.Location(),
		"published":   r.deps.Published.Location(),
	})

	persisted := r.deps.Loader.Load(ctx, r.deps.Primary.Location())

	candidates, err := r.deps.Acquirer.Acquire(ctx, targetDate)
	if err != nil {
		r.log.ErrorObj("acquisition failed, nothing written", "run_failed", map[string]any{
			"run_id": runID,
			"stage":  "acquire",
			"error":  err.Error(),
		})
		return Result{}, fmt.Errorf("acquire candidates: %w", err)
	}

	collection, stats := r.deps.Pipeline.Process(persisted, candidates, targetDate)

	if err := r.deps.Persister.Persist(ctx, collection, r.deps.Primary, r.deps.Published); err != nil {
		r.log.ErrorObj("persist failed", "run_failed", map[string]any{
			"run_id": runID,
			"stage":  "persist",
			"error":  err.Error(),
		})
		return Result{}, fmt.Errorf("persist collection: %w", err)
	}

	finished := r.now().UTC()
	run := history.Run{
		ID:          runID,
		TargetDate:  targetDate,
		LastUpdated: collection.LastUpdated,
		StartedAt:   started,
		FinishedAt:  finished,
		Persisted:   stats.Persisted,
		Candidates:  stats.Candidates,
		Unique:      stats.Unique,
		Matched:     stats.Matched,
		Primary:     r.deps.Primary.Location(),
		Published:   r.deps.Published.Location(),
	}

	r.afterCommit(ctx, run, collection)

	r.log.InfoObj("digest run finished", "run_done", map[string]any{
		"run_id":      runID,
		"target_date": targetDate,
		"matched":     stats.Matched,
		"duration_ms": finished.Sub(started).Milliseconds(),
	})
	return Result{Run: run, Collection: collection}, nil
}

func (r *Runner) afterCommit(ctx context.Context, run history.Run, c domain.Collection) {
	if r.deps.History != nil {
		if err := r.deps.History.Record(ctx, run); err != nil {
			r.log.WarnObj("run history not recorded", "history_failed", map[string]any{
				"run_id": run.ID,
				"error":  err.Error(),
			})
		}
	}

	if len(r.deps.Publishers) == 0 {
		return
	}
	evt := publishers.NewDigestEvent(c, run.TargetDate, run.Published, run.FinishedAt)
	if err := publishers.PublishAll(ctx, r.deps.Publishers, evt, r.log); err != nil {
		r.log.WarnObj("some notifications were not delivered", "notify_failed", map[string]any{
			"run_id":   run.ID,
			"event_id": evt.ID,
			"error":    err.Error(),
		})
	}
}
