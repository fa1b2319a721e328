package server

import (
	"encoding/json"
	"net/http"

	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			// Shutdown: drop every observer
			for client := range s.clients {
				delete(s.clients, client)
				client.shut()
			}
			s.clientCount.Store(0)
			s.Metrics.SetWebsocketClients(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.clientCount.Store(int64(len(s.clients)))
			s.Metrics.SetWebsocketClients(len(s.clients))

			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				initial := *s.latestState
				initial.Type = "INITIAL"
				client.enqueue(&initial)
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.shut()
				s.clientCount.Store(int64(len(s.clients)))
				s.Metrics.SetWebsocketClients(len(s.clients))
			}

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			// Broadcast to all clients
			for client := range s.clients {
				if !client.enqueue(message) {
					// Client too slow, disconnect to prevent Hub blocking
					// This ensures reliable 24/7 operation by pruning dead/slow consumers
					delete(s.clients, client)
					client.shut()
				}
			}
			s.clientCount.Store(int64(len(s.clients)))
			s.Metrics.SetWebsocketClients(len(s.clients))
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateSnapshot - refreshes the cached state without broadcasting
func (s *FastAPIServer) UpdateSnapshot(data interface{}) {
	state, ok := asLatestData(data)
	if !ok {
		s.Logger.Info("UpdateSnapshot expected models.MLatestData, got %T", data)
		return
	}

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	s.latestState = state
}

// -----------------------------------------------------------------------------

// Broadcast - hands the snapshot to the Hub loop (Queue)
func (s *FastAPIServer) Broadcast(message interface{}) {
	state, ok := asLatestData(message)
	if !ok {
		// Log error but don't crash
		s.Logger.Info("Broadcast expected models.MLatestData, got %T", message)
		return
	}

	// The producer already built the typed snapshot, the Hub only fans out.
	// With a large buffer, blocking is rare.
	select {
	case s.broadcast <- state:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------

func asLatestData(v interface{}) (*models.MLatestData, bool) {
	switch data := v.(type) {
	case *models.MLatestData:
		return data, true
	case models.MLatestData:
		return &data, true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:        s,
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	s.Logger.Info("Observer %s connected", client.remoteAddr)

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage drives the subscription lifecycle from websocket
// commands. Observers that only watch never send anything.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MControlCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "connect":
		if err := s.Controller.Connect(); err != nil {
			s.Logger.Warning("Websocket connect command failed: %v", err)
		}
	case "disconnect":
		s.Controller.Disconnect()
	case "parameters":
		params := models.MSubscriptionParams{Filter: cmd.Filter, SortKey: cmd.SortKey}
		if err := s.Controller.SetParameters(params); err != nil {
			s.Logger.Warning("Websocket parameters command rejected: %v", err)
		}
	default:
		return
	}

	// Answer with the current snapshot so the sender sees the effect without
	// waiting for the next broadcast.
	snap := s.Controller.Snapshot()
	client.enqueue(&snap)
}
