// ABOUTME: WebSocket client for the remote control surface
// ABOUTME: Handles connection, handshake, command sending and status routing
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	URL      string // ws://host:port/path
	ClientID string
	Name     string
}

// Client connects to a player's control server
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	mu     sync.RWMutex
	hello  ServerHello

	// Message channels
	Statuses chan Status
	Errors   chan ErrorMessage

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new control client
func NewClient(config ClientConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		Statuses: make(chan Status, 16),
		Errors:   make(chan ErrorMessage, 16),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect dials the player and performs the handshake
func (c *Client) Connect() error {
	log.Printf("Connecting to %s", c.config.URL)

	conn, _, err := websocket.DefaultDialer.Dial(c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
	}
	if err := c.Send(TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case TypeServerHello:
		var serverHello ServerHello
		if err := decodePayload(msg.Payload, &serverHello); err != nil {
			return err
		}
		c.mu.Lock()
		c.hello = serverHello
		c.mu.Unlock()
	case TypeError:
		var rejected ErrorMessage
		decodePayload(msg.Payload, &rejected)
		return fmt.Errorf("server rejected connection: %s: %s", rejected.Error, rejected.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	log.Printf("Handshake complete with %s", c.hello.Name)
	return nil
}

// Send writes a message to the server
func (c *Client) Send(msgType string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(Message{Type: msgType, Payload: payload})
}

// readMessages routes incoming messages until the connection drops
func (c *Client) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes one server message
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case TypeStatus:
		var status Status
		if err := decodePayload(msg.Payload, &status); err != nil {
			log.Printf("Bad status: %v", err)
			return
		}
		// Keep only the freshest telemetry when the consumer lags
		select {
		case c.Statuses <- status:
		default:
			select {
			case <-c.Statuses:
			default:
			}
			select {
			case c.Statuses <- status:
			default:
			}
		}

	case TypeError:
		var e ErrorMessage
		decodePayload(msg.Payload, &e)
		select {
		case c.Errors <- e:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// Server returns the server/hello received during the handshake
func (c *Client) Server() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
