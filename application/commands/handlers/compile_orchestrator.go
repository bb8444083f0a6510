package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cnlgraph/application/commands"
	"cnlgraph/application/ports"
	"cnlgraph/domain/compiler"
	"cnlgraph/domain/schema"
	"cnlgraph/pkg/observability"

	"go.uber.org/zap"
)

// CompileOutcome is what a compile submission returns to the caller:
// either an applied change summary or the full ordered error list,
// never partially applied state.
type CompileOutcome struct {
	GraphID string                 `json:"graph_id"`
	Applied bool                   `json:"applied"`
	Creates int                    `json:"creates"`
	Updates int                    `json:"updates"`
	Deletes int                    `json:"deletes"`
	Derived int                    `json:"derived"`
	Errors  compiler.ErrorList     `json:"errors,omitempty"`
	Skipped []compiler.SkippedDecl `json:"skipped,omitempty"`
}

// CompileOrchestrator coordinates one compile submission end to end:
// per-graph lock, pinned schema snapshot, prior snapshot, pure compile,
// apply, event publication.
type CompileOrchestrator struct {
	schemaStore ports.SchemaStore
	graphStore  ports.GraphStore
	lock        ports.CompileLock
	eventBus    ports.EventBus
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	logger      *zap.Logger
	lockTTL     time.Duration
}

// NewCompileOrchestrator wires the orchestrator. eventBus, metrics and
// tracer may be nil when the corresponding feature is disabled.
func NewCompileOrchestrator(
	schemaStore ports.SchemaStore,
	graphStore ports.GraphStore,
	lock ports.CompileLock,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
	lockTTL time.Duration,
) *CompileOrchestrator {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &CompileOrchestrator{
		schemaStore: schemaStore,
		graphStore:  graphStore,
		lock:        lock,
		eventBus:    eventBus,
		metrics:     metrics,
		tracer:      tracer,
		logger:      logger,
		lockTTL:     lockTTL,
	}
}

// Handle runs one compile submission. Submissions for the same graph id
// are serialized by the compile lock for the whole read-compile-apply
// window; submissions for different graphs run in parallel.
func (h *CompileOrchestrator) Handle(ctx context.Context, cmd commands.CompileGraphCommand) (*CompileOutcome, error) {
	start := time.Now()

	lease, err := h.lock.Acquire(ctx, cmd.GraphID, cmd.UserID, h.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("graph %s is being compiled by another submission: %w", cmd.GraphID, err)
	}
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			h.logger.Warn("failed to release compile lock",
				zap.String("graphID", cmd.GraphID),
				zap.Error(releaseErr),
			)
		}
	}()

	// The schema snapshot is pinned here; concurrent schema edits
	// produce a new snapshot and cannot affect this compilation.
	snap, err := h.schemaStore.LoadSnapshot(ctx)
	if err != nil {
		var cycleErr *schema.CycleError
		if errors.As(err, &cycleErr) {
			outcome := &CompileOutcome{GraphID: cmd.GraphID}
			outcome.Errors = append(outcome.Errors, compiler.Error{
				Kind:    compiler.ErrCyclicTypeHierarchy,
				Message: cycleErr.Error(),
			})
			return outcome, nil
		}
		return nil, fmt.Errorf("load schema snapshot: %w", err)
	}

	prior, err := h.graphStore.LoadSnapshot(ctx, cmd.GraphID)
	if err != nil {
		return nil, fmt.Errorf("load prior graph snapshot: %w", err)
	}

	names, err := h.graphStore.LoadNodeNames(ctx)
	if err != nil {
		h.logger.Warn("cross-graph node index unavailable", zap.Error(err))
		names = nil
	}

	opts := compiler.Options{Strict: cmd.Strict, AllowImplicitTargets: cmd.AllowImplicitTargets}
	var result *compiler.Result
	compile := func(ctx context.Context) error {
		result = compiler.Compile(cmd.GraphID, cmd.Text, opts, snap, prior, nameIndex(names))
		return nil
	}
	if h.tracer != nil {
		_ = h.tracer.TraceFunction(ctx, "compile", compile)
	} else {
		_ = compile(ctx)
	}

	outcome := &CompileOutcome{
		GraphID: cmd.GraphID,
		Errors:  result.Errors,
		Skipped: result.Skipped,
		Derived: len(result.Derived),
	}

	if result.Failed() {
		h.logger.Info("compilation rejected",
			zap.String("graphID", cmd.GraphID),
			zap.Int("errors", len(result.Errors)),
			zap.Bool("strict", cmd.Strict),
		)
		h.recordMetrics(ctx, outcome, time.Since(start))
		return outcome, nil
	}

	if err := h.graphStore.ApplyChangeList(ctx, cmd.GraphID, result.Changes); err != nil {
		return nil, fmt.Errorf("apply change list: %w", err)
	}

	outcome.Applied = true
	outcome.Creates, outcome.Updates, outcome.Deletes = result.Changes.Counts()

	h.logger.Info("compilation applied",
		zap.String("graphID", cmd.GraphID),
		zap.Int("creates", outcome.Creates),
		zap.Int("updates", outcome.Updates),
		zap.Int("deletes", outcome.Deletes),
		zap.Int("derived", outcome.Derived),
		zap.Duration("duration", time.Since(start)),
	)

	if h.eventBus != nil {
		event := ports.CompiledEvent{
			GraphID:   cmd.GraphID,
			UserID:    cmd.UserID,
			Creates:   outcome.Creates,
			Updates:   outcome.Updates,
			Deletes:   outcome.Deletes,
			Derived:   outcome.Derived,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.eventBus.PublishCompiled(ctx, event); err != nil {
			// The compile already applied; event delivery is best effort.
			h.logger.Warn("failed to publish compile event", zap.Error(err))
		}
	}

	h.recordMetrics(ctx, outcome, time.Since(start))
	return outcome, nil
}

func (h *CompileOrchestrator) recordMetrics(ctx context.Context, outcome *CompileOutcome, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordCompile(ctx, observability.CompileSample{
		GraphID:  outcome.GraphID,
		Applied:  outcome.Applied,
		Errors:   len(outcome.Errors),
		Changes:  outcome.Creates + outcome.Updates + outcome.Deletes,
		Duration: elapsed,
	})
}

// nameIndex adapts the preloaded cross-graph name set to the compiler's
// read-only index interface.
type nameIndex map[string]bool

func (n nameIndex) HasNode(baseName string) bool { return n[baseName] }
