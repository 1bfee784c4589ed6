package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsClient adapts one websocket connection to the coordinator's Client
// interface. A single writer goroutine drains the send channel; Reliable
// blocks until the message is queued, BestEffort drops when the buffer is
// full so cosmetic spam (crosshair updates) can never stall game traffic.
type wsClient struct {
	conn *websocket.Conn
	send chan envelope

	once sync.Once
	done chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan envelope, 32),
		done: make(chan struct{}),
	}
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Unblock pending senders and kick the read loop out so the
				// handler tears the connection down.
				c.shutdown()
				c.conn.Close()
				return
			}
		}
	}
}

func (c *wsClient) Reliable(event string, payload any) {
	select {
	case c.send <- envelope{Type: event, Payload: payload}:
	case <-c.done:
	}
}

func (c *wsClient) BestEffort(event string, payload any) {
	select {
	case c.send <- envelope{Type: event, Payload: payload}:
	case <-c.done:
	default:
	}
}

func (c *wsClient) shutdown() {
	c.once.Do(func() { close(c.done) })
}
