// ABOUTME: WebSocket control surface for a running player
// ABOUTME: Manages remote connections, routes commands and broadcasts status
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cassette-audio/cassette-go/internal/discovery"
	"github.com/cassette-audio/cassette-go/internal/version"
	"github.com/cassette-audio/cassette-go/pkg/playback"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPort is the control surface port
	DefaultPort = 8928

	// DefaultTelemetryInterval is how often status is broadcast
	DefaultTelemetryInterval = 50 * time.Millisecond

	sendBuffer    = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	helloTimeout  = 5 * time.Second
)

// Controller is the player surface driven by remote commands
type Controller interface {
	Play(startMs float64) error
	Stop()
	Toggle(startMs float64) error
	Seek(ms float64) error
	SetSpeed(target float64, g playback.Glide, stopOnEnd bool)
	SetVolume(target float64, g playback.Glide)
	Tape(req playback.TapeRequest) error
	EnableMidpass(centerHz, q, mix, gain float64, g playback.Glide)
	DisableMidpass(g playback.Glide)
	EnableBitcrush(bits, downsample int, mix float64, g playback.Glide)
	DisableBitcrush(g playback.Glide)
	SmoothChannelDelay(d playback.DelayGlide)
	Status() playback.Status
}

// Config holds server configuration
type Config struct {
	Port              int
	Name              string
	Path              string        // default: /cassette
	EnableMDNS        bool
	TelemetryInterval time.Duration // default: 50ms
}

// Server exposes a Controller over websockets
type Server struct {
	config   Config
	serverID string
	ctrl     Controller

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[string]*peer
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager
	wg          sync.WaitGroup
}

// peer is a connected remote
type peer struct {
	ID       string
	Name     string
	Conn     *websocket.Conn
	sendChan chan interface{}
}

// New creates a control server for ctrl
func New(config Config, ctrl Controller) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	if config.Name == "" {
		config.Name = version.Product
	}
	if config.TelemetryInterval <= 0 {
		config.TelemetryInterval = DefaultTelemetryInterval
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		ctrl:     ctrl,
		mux:      http.NewServeMux(),
		clients:  make(map[string]*peer),
		upgrader: websocket.Upgrader{
			// Remotes run on the local network and are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	log.Printf("Remote control listening on %s%s (ID: %s)", addr, s.config.Path, s.serverID)

	return s.Serve(ctx, listener)
}

// Serve runs the control surface on listener until ctx is cancelled or
// serving fails
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			defer s.mdnsManager.Stop()
		}
	}

	httpServer := &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runTelemetry(ctx)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		log.Printf("Remote control shutting down...")
	case err := <-errChan:
		serverErr = err
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	s.closeClients()
	s.wg.Wait()

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// runTelemetry broadcasts player status until ctx is done
func (s *Server) runTelemetry(ctx context.Context) {
	ticker := time.NewTicker(s.config.TelemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastStatus()
		}
	}
}

// broadcastStatus queues the current status for every client
func (s *Server) broadcastStatus() {
	status := StatusFrom(s.ctrl.Status())

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		// Slow remotes miss telemetry rather than stall the others
		s.sendMessage(client, TypeStatus, status)
	}
}

// ClientCount returns the number of connected remotes
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
}

// handleWebSocket upgrades and serves one remote
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New remote connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection performs the handshake and reads commands until disconnect
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		writeError(conn, "bad_hello", err.Error())
		return
	}
	if hello.ClientID == "" {
		hello.ClientID = uuid.New().String()
	}
	if hello.Name == "" {
		hello.Name = "remote"
	}

	client := &peer{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, sendBuffer),
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)
		writeError(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	log.Printf("Remote connected: %s (ID: %s)", client.Name, client.ID)

	writerDone := make(chan struct{})
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		close(client.sendChan)
		s.clientsMu.Unlock()
		<-writerDone
		log.Printf("Remote disconnected: %s", client.Name)
	}()

	go func() {
		defer close(writerDone)
		s.clientWriter(client)
	}()

	s.sendMessage(client, TypeServerHello, ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Product:  version.Product,
		Version:  ProtocolVersion,
	})
	s.sendMessage(client, TypeStatus, StatusFrom(s.ctrl.Status()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		s.handleClientMessage(client, data)
	}
}

// clientWriter serializes all writes to one connection
func (s *Server) clientWriter(client *peer) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				client.Conn.Close()
				// Drain so senders never block on a dead connection
				for range client.sendChan {
				}
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.Conn.Close()
				for range client.sendChan {
				}
				return
			}
		}
	}
}

// handleClientMessage decodes and executes one command
func (s *Server) handleClientMessage(client *peer, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.sendMessage(client, TypeError, ErrorMessage{Error: "bad_message", Message: err.Error()})
		return
	}

	if err := s.execute(msg); err != nil {
		log.Printf("Command %s from %s failed: %v", msg.Type, client.Name, err)
		s.sendMessage(client, TypeError, ErrorMessage{Error: "command_failed", Message: err.Error()})
		return
	}

	// Reflect the change immediately rather than on the next telemetry tick
	s.sendMessage(client, TypeStatus, StatusFrom(s.ctrl.Status()))
}

// execute applies a command to the controller
func (s *Server) execute(msg Message) error {
	switch msg.Type {
	case TypePlay:
		var cmd PlayCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		return s.ctrl.Play(cmd.StartMs)

	case TypeStop:
		s.ctrl.Stop()
		return nil

	case TypeToggle:
		var cmd PlayCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		return s.ctrl.Toggle(cmd.StartMs)

	case TypeSeek:
		var cmd SeekCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		return s.ctrl.Seek(cmd.PositionMs)

	case TypeSpeed:
		var cmd SpeedCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		s.ctrl.SetSpeed(cmd.Target, cmd.glide(), cmd.StopOnEnd)
		return nil

	case TypeVolume:
		var cmd VolumeCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		s.ctrl.SetVolume(cmd.Target, cmd.glide())
		return nil

	case TypeTape:
		var cmd TapeCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		return s.ctrl.Tape(cmd.request())

	case TypeMidpass:
		var cmd MidpassCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		if !cmd.Enabled {
			s.ctrl.DisableMidpass(cmd.glide())
			return nil
		}
		s.ctrl.EnableMidpass(
			orDefault(cmd.CenterHz, 1000),
			orDefault(cmd.Q, 1),
			orDefault(cmd.Mix, 1),
			orDefault(cmd.Gain, 1),
			cmd.glide(),
		)
		return nil

	case TypeBitcrush:
		var cmd BitcrushCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		if !cmd.Enabled {
			s.ctrl.DisableBitcrush(cmd.glide())
			return nil
		}
		bits := cmd.Bits
		if bits == 0 {
			bits = 8
		}
		s.ctrl.EnableBitcrush(bits, max(1, cmd.Downsample), orDefault(cmd.Mix, 1), cmd.glide())
		return nil

	case TypeDelay:
		var cmd DelayCommand
		if err := decodePayload(msg.Payload, &cmd); err != nil {
			return err
		}
		s.ctrl.SmoothChannelDelay(playback.DelayGlide{
			LeftToMs:  cmd.LeftMs,
			RightToMs: cmd.RightMs,
			Duration:  msToDuration(cmd.DurationMs),
			Instant:   cmd.DurationMs <= 0,
			Steps:     cmd.Steps,
		})
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// sendMessage queues a message without blocking
func (s *Server) sendMessage(client *peer, msgType string, payload interface{}) error {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// readHello waits for client/hello
func readHello(conn *websocket.Conn) (ClientHello, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var hello ClientHello

	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("error unmarshaling message: %w", err)
	}
	if msg.Type != TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", TypeClientHello, msg.Type)
	}
	if err := decodePayload(msg.Payload, &hello); err != nil {
		return hello, err
	}
	return hello, nil
}

// writeError sends an error directly, before a writer goroutine exists
func writeError(conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(Message{
		Type:    TypeError,
		Payload: ErrorMessage{Error: code, Message: message},
	})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	conn.WriteMessage(websocket.TextMessage, data)
}

func orDefault(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
