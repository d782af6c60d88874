package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is cancelled on SIGINT or SIGTERM and remembers which signal fired.
type SignalContext struct {
	context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext derives a SignalContext from parent.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case s := <-ch:
			sc.mu.Lock()
			sc.sig = s
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Cancel releases the context and stops listening for signals.
func (sc *SignalContext) Cancel() { sc.cancel() }

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}
