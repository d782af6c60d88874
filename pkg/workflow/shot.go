package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/csp"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
)

// Process names of the shot-creation state machine, at base+0 through base+2.
const (
	ProcShotRequest = "Request"
	ProcShotCreate  = "Create"
	ProcShotIdle    = "Idle"
)

// ShotEntity is the affinity entity of shot transactions.
const ShotEntity = "/Sequencer/Shots"

// Shot is a named frame range on the sequencer.
type Shot struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Validate checks the shot has a name and a non-empty range.
func (s Shot) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("shot name is required")
	}
	if s.End < s.Start {
		return fmt.Errorf("shot %q: end frame %d before start frame %d", s.Name, s.End, s.Start)
	}
	return nil
}

// ShotOption configures a ShotWorkflow.
type ShotOption func(*ShotWorkflow)

// WithShotLogger sets the structured logger.
func WithShotLogger(logger *slog.Logger) ShotOption {
	return func(w *ShotWorkflow) { w.logger = logger }
}

// WithShotCreated is called from the Idle process after a shot transaction was queued.
func WithShotCreated(fn func(Shot)) ShotOption {
	return func(w *ShotWorkflow) { w.onCreated = fn }
}

// ShotWorkflow turns shot requests into undoable transactions. The transaction is
// applied later by the orchestrator on its own goroutine.
type ShotWorkflow struct {
	module    *csp.Module
	sink      ports.TransactionSink
	shots     ports.ShotCreator
	onCreated func(Shot)
	logger    *slog.Logger
}

// NewShotWorkflow creates the workflow with processes numbered base..base+2.
func NewShotWorkflow(name string, base int, sink ports.TransactionSink, shots ports.ShotCreator, opts ...ShotOption) *ShotWorkflow {
	w := &ShotWorkflow{
		sink:   sink,
		shots:  shots,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.logger, "workflow").With("workflow", name)

	w.module = csp.NewModule(name,
		csp.Process{ID: base, Name: ProcShotRequest, Behavior: w.request},
		csp.Process{ID: base + 1, Name: ProcShotCreate, Behavior: w.create},
		csp.Process{ID: base + 2, Name: ProcShotIdle, Behavior: w.idle},
	)
	return w
}

// Module returns the csp module to register on an engine.
func (w *ShotWorkflow) Module() *csp.Module { return w.module }

// Request asks for a shot to be created.
func (w *ShotWorkflow) Request(ctx context.Context, shot Shot) error {
	payload, err := json.Marshal(shot)
	if err != nil {
		return fmt.Errorf("encode shot: %w", err)
	}
	return w.module.EmitPayload(ctx, ProcShotRequest, payload)
}

func (w *ShotWorkflow) request(ctx context.Context, msg domain.Message) {
	var shot Shot
	if err := json.Unmarshal(msg.Payload, &shot); err != nil {
		w.logger.Error("invalid shot request", "err", err)
		w.emit(ctx, ProcShotIdle, nil)
		return
	}
	if err := shot.Validate(); err != nil {
		w.logger.Warn("shot rejected", "err", err)
		w.emit(ctx, ProcShotIdle, nil)
		return
	}
	w.emit(ctx, ProcShotCreate, msg.Payload)
}

func (w *ShotWorkflow) create(ctx context.Context, msg domain.Message) {
	var shot Shot
	if err := json.Unmarshal(msg.Payload, &shot); err != nil {
		w.logger.Error("invalid shot payload", "err", err)
		w.emit(ctx, ProcShotIdle, nil)
		return
	}

	// A request for an existing name replaces its range; undo puts the old one back.
	var prev Shot
	var existed bool
	tx := domain.NewTransaction("create shot "+shot.Name,
		func() {
			prev.Name = shot.Name
			prev.Start, prev.End, existed = w.shots.FindShot(shot.Name)
			w.shots.CreateShot(shot.Name, shot.Start, shot.End)
		},
		domain.WithUndo(func() {
			if existed {
				w.shots.CreateShot(prev.Name, prev.Start, prev.End)
				return
			}
			w.shots.DeleteShot(shot.Name)
		}),
		domain.WithAffinity(ShotEntity, shot.Name),
	)
	w.sink.EnqueueTransaction(tx)
	w.logger.Debug("shot transaction queued", "shot", shot.Name, "tx", tx.ID)
	w.emit(ctx, ProcShotIdle, msg.Payload)
}

func (w *ShotWorkflow) idle(_ context.Context, msg domain.Message) {
	if w.onCreated == nil || len(msg.Payload) == 0 {
		return
	}
	var shot Shot
	if err := json.Unmarshal(msg.Payload, &shot); err == nil {
		w.onCreated(shot)
	}
}

func (w *ShotWorkflow) emit(ctx context.Context, process string, payload []byte) {
	if err := w.module.EmitPayload(ctx, process, payload); err != nil {
		w.logger.Error("workflow step dropped", "process", process, "err", err)
	}
}
