package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	// Inbound traffic is limited to control commands, which are tiny JSON
	// objects. Anything larger is a misbehaving peer.
	maxCommandSize = 4 * 1024

	writeWait  = 2 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// -----------------------------------------------------------------------------
// Observer Connection
// -----------------------------------------------------------------------------

// Client is a single websocket observer. Every observer receives the state
// stream; some also steer the subscription through control commands.
type Client struct {
	hub        *FastAPIServer
	conn       *websocket.Conn
	remoteAddr string

	// send carries state snapshots from the Hub. Each snapshot supersedes the
	// previous one, so the write pump may skip entries when the peer lags.
	// closed guards the channel against sends racing the Hub's eviction.
	mu     sync.Mutex
	closed bool
	send   chan interface{}
}

// -----------------------------------------------------------------------------

// enqueue offers a message without blocking. False means the observer fell
// behind or was already dropped.
func (c *Client) enqueue(v interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

// shut closes the send channel exactly once. The write pump answers with a
// close frame and tears the connection down.
func (c *Client) shut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// -----------------------------------------------------------------------------
// readPump - consumes control commands, doubles as the connection watchdog
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Info("Observer %s disconnected", c.remoteAddr)
	}()

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Observer %s read error: %v", c.remoteAddr, err)
			}
			return
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - pushes snapshots to the observer, collapsing any backlog
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub evicted this observer
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			// A slow peer should see the newest state, not replay the queue.
			message = c.coalesce(message)

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Observer %s write error: %v", c.remoteAddr, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// coalesce drains whatever queued up behind message and returns the newest
// entry. The channel may close mid-drain; the last value read still wins.
func (c *Client) coalesce(message interface{}) interface{} {
	for {
		select {
		case next, ok := <-c.send:
			if !ok {
				return message
			}
			message = next
		default:
			return message
		}
	}
}
