package interfaces

import (
	"context"

	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------
// IStreamTransport interface for opening subscription streams against the feed.
// -----------------------------------------------------------------------------

type IStreamTransport interface {

	// Ready reports whether the transport holds a usable connection. Connect
	// attempts against a transport that is not ready fail immediately.
	Ready() bool

	// -----------------------------------------------------------------------------

	// OpenStream sends the subscription request and returns the live stream.
	// ctx: controls the lifecycle (cancellation tears the stream down)
	OpenStream(ctx context.Context, params models.MSubscriptionParams) (IRecordStream, error)

	// -----------------------------------------------------------------------------

	// Close releases the underlying connection.
	Close() error
}

// -----------------------------------------------------------------------------
// IRecordStream is one open subscription delivering batches in order.
// -----------------------------------------------------------------------------

type IRecordStream interface {

	// Recv blocks until the next batch, the end of the stream (io.EOF) or a
	// delivery failure.
	Recv() (*models.MRecordBatch, error)
}
