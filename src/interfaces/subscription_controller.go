package interfaces

import "github.com/ahfrd/grpc-stream-client-side/src/models"

// -----------------------------------------------------------------------------
// ISubscriptionController is the lifecycle surface the API server drives.
// -----------------------------------------------------------------------------

type ISubscriptionController interface {

	// Connect opens a session with the current parameters. No-op when a
	// session is already active.
	Connect() error

	// -----------------------------------------------------------------------------

	// Disconnect stops the active session, if any. Never an error.
	Disconnect()

	// -----------------------------------------------------------------------------

	// SetParameters stores new parameters and, when a session is active,
	// schedules a debounced restart with the latest values.
	SetParameters(params models.MSubscriptionParams) error

	// -----------------------------------------------------------------------------

	// State returns a copy of the current connection state.
	State() models.MConnectionState

	// -----------------------------------------------------------------------------

	// Snapshot returns the full observable state including the last batch.
	Snapshot() models.MLatestData

	// -----------------------------------------------------------------------------

	// History returns up to n retained summary points, oldest first. n <= 0
	// returns everything retained.
	History(n int) []models.MSummaryPoint

	// -----------------------------------------------------------------------------

	// Close terminates the controller. Further Connect calls fail.
	Close()
}
