package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing state with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a state snapshot to all websocket observers.
	// We use interface{} to be generic (matching FastAPIServer implementation)
	Broadcast(payload interface{})

	// -----------------------------------------------------------------------------
	// UpdateSnapshot refreshes the cached state served to newly joined
	// observers without broadcasting
	UpdateSnapshot(data interface{})

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
