// ABOUTME: WebSocket server publishing playback state to remote clients
// ABOUTME: Streams snapshots as JSON and applies play/pause/seek commands
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/waveplay/internal/playback"
	"github.com/harperreed/waveplay/internal/version"
)

// DefaultPath is the websocket endpoint
const DefaultPath = "/waveplay"

const writeDeadline = 10 * time.Second

// Controller is the playback surface exposed to remote clients
type Controller interface {
	Play() error
	Pause() error
	Toggle() error
	Stop() error
	Seek(offset time.Duration) error
	Subscribe() (<-chan playback.Snapshot, func())
}

// Config configures the feed server
type Config struct {
	// Listen is the host:port to listen on (default: :8927)
	Listen string

	// Name identifies this player to clients
	Name string

	// Path is the websocket endpoint (default: /waveplay)
	Path string

	// OnClientsChange is called with the client count after each connect or disconnect
	OnClientsChange func(count int)
}

// Server serves the remote feed
type Server struct {
	config   Config
	ctrl     Controller
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*client
	clientsMu sync.RWMutex
	stopping  bool

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// client is a connected websocket peer
type client struct {
	ID       string
	Conn     *websocket.Conn
	sendChan chan interface{}
	done     chan struct{}
}

// NewServer creates a feed server for the controller
func NewServer(ctrl Controller, config Config) (*Server, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if config.Listen == "" {
		config.Listen = ":8927"
	}
	if config.Name == "" {
		config.Name = "waveplay"
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}

	s := &Server{
		config: config,
		ctrl:   ctrl,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network feed; browsers on other origins may connect
				return true
			},
		},
		clients: make(map[string]*client),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)

	return s, nil
}

// Handler returns the HTTP handler serving the feed
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	log.Printf("Remote feed listening on ws://%s%s", ln.Addr(), s.config.Path)

	go func() {
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			log.Printf("Remote feed server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the listening TCP port once started
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Path returns the websocket endpoint
func (s *Server) Path() string {
	return s.config.Path
}

// Stop shuts down the server and disconnects all clients
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.clientsMu.Lock()
		s.stopping = true
		s.clientsMu.Unlock()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("Remote feed shutdown error: %v", err)
			}
		}

		s.clientsMu.Lock()
		for _, c := range s.clients {
			c.Conn.Close()
		}
		s.clientsMu.Unlock()

		s.wg.Wait()
		log.Printf("Remote feed stopped")
	})
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleWebSocket joins the wait group before upgrading; once Stop has
// begun, new connections are refused
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.Lock()
	if s.stopping {
		s.clientsMu.Unlock()
		http.Error(w, "feed is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.clientsMu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New remote connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{
		ID:       uuid.New().String(),
		Conn:     conn,
		sendChan: make(chan interface{}, 16),
		done:     make(chan struct{}),
	}

	hello := Message{
		Type: TypeHello,
		Payload: Hello{
			ClientID:   c.ID,
			ServerName: s.config.Name,
			Version:    ProtocolVersion,
			Software:   version.String(),
		},
	}
	if err := s.write(c, hello); err != nil {
		log.Printf("Error sending hello: %v", err)
		return
	}

	snaps, cancel := s.ctrl.Subscribe()
	defer cancel()

	if !s.addClient(c) {
		return
	}
	defer s.removeClient(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c, snaps)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleClientMessage(c, data)
	}

	close(c.done)
	<-writerDone
}

// clientWriter is the only goroutine writing to the connection
func (s *Server) clientWriter(c *client, snaps <-chan playback.Snapshot) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case snap, ok := <-snaps:
			if !ok {
				c.Conn.Close()
				return
			}
			if err := s.write(c, Message{Type: TypeState, Payload: NewState(snap)}); err != nil {
				c.Conn.Close()
				return
			}

		case msg := <-c.sendChan:
			if err := s.write(c, msg); err != nil {
				c.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				c.Conn.Close()
				return
			}
		}
	}
}

func (s *Server) write(c *client, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// handleClientMessage processes messages from clients
func (s *Server) handleClientMessage(c *client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.sendError(c, "malformed message")
		return
	}

	if msg.Type != TypeCommand {
		log.Printf("Unknown message type: %s", msg.Type)
		return
	}

	var cmd Command
	if err := decodePayload(msg.Payload, &cmd); err != nil {
		s.sendError(c, err.Error())
		return
	}

	if err := s.apply(cmd); err != nil {
		log.Printf("Remote command %s from %s failed: %v", cmd.Command, c.ID, err)
		s.sendError(c, err.Error())
	}
}

// apply runs a command against the controller
func (s *Server) apply(cmd Command) error {
	switch cmd.Command {
	case CommandPlay:
		return s.ctrl.Play()
	case CommandPause:
		return s.ctrl.Pause()
	case CommandToggle:
		return s.ctrl.Toggle()
	case CommandStop:
		return s.ctrl.Stop()
	case CommandSeek:
		return s.ctrl.Seek(cmd.Position())
	default:
		return fmt.Errorf("unknown command: %q", cmd.Command)
	}
}

func (s *Server) sendError(c *client, message string) {
	select {
	case c.sendChan <- Message{Type: TypeError, Payload: ErrorPayload{Message: message}}:
	default:
		log.Printf("Dropping error for slow client %s", c.ID)
	}
}

// addClient registers c unless the server is stopping
func (s *Server) addClient(c *client) bool {
	s.clientsMu.Lock()
	if s.stopping {
		s.clientsMu.Unlock()
		return false
	}
	s.clients[c.ID] = c
	count := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("Remote client connected: %s", c.ID)
	if s.config.OnClientsChange != nil {
		s.config.OnClientsChange(count)
	}
	return true
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c.ID)
	count := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("Remote client disconnected: %s", c.ID)
	if s.config.OnClientsChange != nil {
		s.config.OnClientsChange(count)
	}
}
