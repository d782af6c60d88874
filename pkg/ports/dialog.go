package ports

import (
	"context"

	"github.com/aretw0/studio/pkg/domain"
)

// RequestID identifies an in-flight dialog request. Zero means "no request".
type RequestID uint64

// PollStatus is the tri-state outcome of polling a dialog request.
type PollStatus int

const (
	PollNotReady PollStatus = iota
	PollReady
	PollCanceled
	PollExpired
)

func (s PollStatus) String() string {
	switch s {
	case PollNotReady:
		return "not_ready"
	case PollReady:
		return "ready"
	case PollCanceled:
		return "canceled"
	case PollExpired:
		return "expired"
	}
	return "unknown"
}

// FileDialog is a non-blocking file picker.
type FileDialog interface {
	RequestOpenFile(title string, extensions []string) (RequestID, error)
	PollOpenFile(id RequestID) (string, PollStatus)
}

// FileLoader performs the side effect once a file has been chosen
// (stage, animation or texture loading).
type FileLoader interface {
	Load(ctx context.Context, path string) error
}

// FileLoaderFunc adapts a function to FileLoader.
type FileLoaderFunc func(ctx context.Context, path string) error

func (f FileLoaderFunc) Load(ctx context.Context, path string) error {
	return f(ctx, path)
}

// ShotCreator edits the shot list of the sequencer.
type ShotCreator interface {
	CreateShot(name string, start, end int)
	DeleteShot(name string)
	// FindShot reports the range of an existing shot.
	FindShot(name string) (start, end int, ok bool)
}

// TransactionSink accepts deferred transactions.
type TransactionSink interface {
	EnqueueTransaction(tx domain.Transaction)
}

// ChainLoaders returns a FileLoader that runs loaders in order and stops at
// the first error.
func ChainLoaders(loaders ...FileLoader) FileLoader {
	return FileLoaderFunc(func(ctx context.Context, path string) error {
		for _, l := range loaders {
			if err := l.Load(ctx, path); err != nil {
				return err
			}
		}
		return nil
	})
}
