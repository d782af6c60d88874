package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/csp"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/ports"
)

// Process names of the file-open state machine, at base+0 through base+4.
const (
	ProcOpenRequest = "OpenRequest"
	ProcOpening     = "Opening"
	ProcError       = "Error"
	ProcOpenFile    = "OpenFile"
	ProcIdle        = "Idle"
)

type openState int

const (
	stateIdle openState = iota
	stateRequested
	stateOpening
)

// Result describes how a file-open workflow ended.
type Result struct {
	Path   string
	Status ports.PollStatus
	Err    error
}

// OpenFileOption configures an OpenFile workflow.
type OpenFileOption func(*OpenFile)

// WithTitle sets the dialog title.
func WithTitle(title string) OpenFileOption {
	return func(w *OpenFile) { w.title = title }
}

// WithExtensions restricts the dialog to the given file extensions.
func WithExtensions(exts ...string) OpenFileOption {
	return func(w *OpenFile) { w.extensions = exts }
}

// WithPollInterval delays each re-poll of a pending dialog. Zero re-polls on the
// next engine iteration.
func WithPollInterval(d time.Duration) OpenFileOption {
	return func(w *OpenFile) { w.pollInterval = d }
}

// WithOnFinish is called from the Idle process with the outcome of the workflow.
func WithOnFinish(fn func(Result)) OpenFileOption {
	return func(w *OpenFile) { w.onFinish = fn }
}

// WithWorkflowLogger sets the structured logger.
func WithWorkflowLogger(logger *slog.Logger) OpenFileOption {
	return func(w *OpenFile) { w.logger = logger }
}

// OpenFile is the "kick off, poll until resolved, branch, reset" workflow that
// asks a FileDialog for a path and hands it to a FileLoader.
// At most one request is in flight at a time.
type OpenFile struct {
	module       *csp.Module
	dialog       ports.FileDialog
	loader       ports.FileLoader
	title        string
	extensions   []string
	pollInterval time.Duration
	onFinish     func(Result)
	logger       *slog.Logger

	mu      sync.Mutex
	state   openState
	request ports.RequestID
	result  Result
}

// NewOpenFile creates the workflow with processes numbered base..base+4.
func NewOpenFile(name string, base int, dialog ports.FileDialog, loader ports.FileLoader, opts ...OpenFileOption) *OpenFile {
	w := &OpenFile{
		dialog: dialog,
		loader: loader,
		title:  "Open File",
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.logger, "workflow").With("workflow", name)

	w.module = csp.NewModule(name,
		csp.Process{ID: base, Name: ProcOpenRequest, Behavior: w.openRequest},
		csp.Process{ID: base + 1, Name: ProcOpening, Behavior: w.opening},
		csp.Process{ID: base + 2, Name: ProcError, Behavior: w.fail},
		csp.Process{ID: base + 3, Name: ProcOpenFile, Behavior: w.openFile},
		csp.Process{ID: base + 4, Name: ProcIdle, Behavior: w.idle},
	)
	return w
}

// Module returns the csp module to register on an engine.
func (w *OpenFile) Module() *csp.Module { return w.module }

// Pending reports whether a request is in flight.
func (w *OpenFile) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != stateIdle
}

// Request returns the dialog handle being polled, or zero.
func (w *OpenFile) Request() ports.RequestID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.request
}

// Start begins a new request. If one is already in flight the call is logged
// and ignored, and ErrRequestInFlight is returned.
func (w *OpenFile) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.state != stateIdle {
		w.mu.Unlock()
		w.logger.Error("open request ignored", "err", domain.ErrRequestInFlight)
		return domain.ErrRequestInFlight
	}
	w.state = stateRequested
	w.result = Result{}
	w.mu.Unlock()

	if err := w.module.Emit(ctx, ProcOpenRequest); err != nil {
		w.reset()
		return fmt.Errorf("start %s: %w", w.module.Name(), err)
	}
	return nil
}

func (w *OpenFile) openRequest(ctx context.Context, _ domain.Message) {
	id, err := w.dialog.RequestOpenFile(w.title, w.extensions)
	if err != nil {
		w.setResult(Result{Err: fmt.Errorf("request dialog: %w", err)})
		w.next(ctx, ProcError, nil)
		return
	}

	w.mu.Lock()
	w.request = id
	w.state = stateOpening
	w.mu.Unlock()
	w.logger.Debug("dialog requested", "request", id)
	w.next(ctx, ProcOpening, nil)
}

func (w *OpenFile) opening(ctx context.Context, _ domain.Message) {
	req := w.Request()
	if req == 0 {
		// Reset from outside; drop the stale poll.
		return
	}

	path, status := w.dialog.PollOpenFile(req)
	switch status {
	case ports.PollNotReady:
		if w.pollInterval > 0 {
			if err := w.module.EmitAfter(ProcOpening, w.pollInterval); err != nil {
				w.abort(err)
			}
			return
		}
		w.next(ctx, ProcOpening, nil)
	case ports.PollReady:
		w.setResult(Result{Path: path, Status: status})
		w.next(ctx, ProcOpenFile, []byte(path))
	default:
		w.setResult(Result{Status: status})
		w.next(ctx, ProcError, nil)
	}
}

func (w *OpenFile) fail(ctx context.Context, _ domain.Message) {
	w.mu.Lock()
	res := w.result
	w.mu.Unlock()
	w.logger.Warn("open file did not complete", "status", res.Status.String(), "err", res.Err)
	w.next(ctx, ProcIdle, nil)
}

func (w *OpenFile) openFile(ctx context.Context, msg domain.Message) {
	path := string(msg.Payload)
	if err := w.loader.Load(ctx, path); err != nil {
		w.logger.Error("failed to load file", "path", path, "err", err)
		w.mu.Lock()
		w.result.Err = err
		w.mu.Unlock()
	} else {
		w.logger.Info("file loaded", "path", path)
	}
	w.next(ctx, ProcIdle, nil)
}

func (w *OpenFile) idle(_ context.Context, _ domain.Message) {
	w.mu.Lock()
	res := w.result
	w.mu.Unlock()
	w.reset()
	if w.onFinish != nil {
		w.onFinish(res)
	}
}

func (w *OpenFile) setResult(r Result) {
	w.mu.Lock()
	w.result = r
	w.mu.Unlock()
}

func (w *OpenFile) reset() {
	w.mu.Lock()
	w.state = stateIdle
	w.request = 0
	w.mu.Unlock()
}

func (w *OpenFile) next(ctx context.Context, process string, payload []byte) {
	if err := w.module.EmitPayload(ctx, process, payload); err != nil {
		w.abort(err)
	}
}

// abort leaves the workflow idle when the engine can no longer carry it.
func (w *OpenFile) abort(err error) {
	w.logger.Error("workflow aborted", "err", err)
	w.reset()
}
