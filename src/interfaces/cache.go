package interfaces

import (
	"context"

	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotCache mirrors the latest state into an external cache so other
// processes can read it without holding a websocket.
// -----------------------------------------------------------------------------

type ISnapshotCache interface {

	// PublishSnapshot stores the snapshot and announces it on the channel.
	PublishSnapshot(ctx context.Context, snapshot *models.MLatestData) error

	// -----------------------------------------------------------------------------

	// Close releases the cache connection.
	Close() error
}
