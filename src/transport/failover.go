package transport

import (
	"context"
	"sync"

	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------
// FailoverTransport fans a single transport surface out over several feed
// endpoints. Opens go to the last endpoint that worked, the rest serve as
// fallbacks in order.
// -----------------------------------------------------------------------------

type FailoverTransport struct {
	targets    []string
	transports []interfaces.IStreamTransport
	Logger     *logger.Logger
	mu         sync.RWMutex
	active     int
}

// -----------------------------------------------------------------------------

// NewFailoverTransport builds one gRPC transport per target. The first
// target is the primary.
func NewFailoverTransport(targets []string, log *logger.Logger) *FailoverTransport {
	f := &FailoverTransport{
		targets: targets,
		Logger:  log,
	}

	for _, target := range targets {
		f.transports = append(f.transports, NewGrpcStreamTransport(target, log))
	}

	return f
}

// -----------------------------------------------------------------------------

// Ready reports whether any endpoint holds a usable connection.
func (f *FailoverTransport) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, tr := range f.transports {
		if tr.Ready() {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// OpenStream tries the active endpoint first, then the remaining endpoints
// in configuration order. The endpoint that accepts the stream becomes the
// active one for the next open.
func (f *FailoverTransport) OpenStream(ctx context.Context, params models.MSubscriptionParams) (interfaces.IRecordStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.transports) == 0 {
		return nil, helpers.ErrTransportUninitialized
	}

	var lastErr error = helpers.ErrTransportUninitialized

	for attempt := 0; attempt < len(f.transports); attempt++ {
		idx := (f.active + attempt) % len(f.transports)
		tr := f.transports[idx]

		if !tr.Ready() {
			f.Logger.Warning("Feed %s is not ready, skipping", f.targets[idx])
			continue
		}

		stream, err := tr.OpenStream(ctx, params)
		if err != nil {
			f.Logger.Warning("Feed %s rejected the stream: %v", f.targets[idx], err)
			lastErr = err
			continue
		}

		if idx != f.active {
			f.Logger.Info("Failing over to feed %s", f.targets[idx])
			f.active = idx
		}
		return stream, nil
	}

	return nil, lastErr
}

// -----------------------------------------------------------------------------

// ActiveTarget returns the endpoint the next open will try first.
func (f *FailoverTransport) ActiveTarget() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.active < len(f.targets) {
		return f.targets[f.active]
	}
	return ""
}

// -----------------------------------------------------------------------------

// Close releases every endpoint connection.
func (f *FailoverTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lastErr error
	for i, tr := range f.transports {
		if err := tr.Close(); err != nil {
			f.Logger.Warning("Failed to close feed %s: %v", f.targets[i], err)
			lastErr = err
		}
	}
	return lastErr
}
