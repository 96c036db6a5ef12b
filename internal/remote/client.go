// ABOUTME: WebSocket client for the remote playback feed
// ABOUTME: Receives state updates and sends playback commands
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a connection to a remote feed
type Client struct {
	conn  *websocket.Conn
	hello Hello
	mu    sync.Mutex

	states chan State
	errors chan string
	done   chan struct{}
}

// Dial connects to a feed at host:port and waits for the server hello
func Dial(ctx context.Context, addr, path string) (*Client, error) {
	if path == "" {
		path = DefaultPath
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{
		conn:   conn,
		states: make(chan State, 16),
		errors: make(chan string, 4),
		done:   make(chan struct{}),
	}

	if err := c.readHello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return c, nil
}

// readHello waits for the hello message (with timeout)
func (c *Client) readHello() error {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer c.conn.SetReadDeadline(time.Time{})

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal hello: %w", err)
	}
	if msg.Type != TypeHello {
		return fmt.Errorf("expected %s, got %s", TypeHello, msg.Type)
	}

	return decodePayload(msg.Payload, &c.hello)
}

// readMessages routes incoming messages until the connection closes
func (c *Client) readMessages() {
	defer close(c.done)
	defer close(c.states)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		switch msg.Type {
		case TypeState:
			var state State
			if err := decodePayload(msg.Payload, &state); err != nil {
				log.Printf("Bad state payload: %v", err)
				continue
			}
			// Keep the newest state when the reader falls behind
			select {
			case c.states <- state:
			default:
				select {
				case <-c.states:
				default:
				}
				c.states <- state
			}
		case TypeError:
			var payload ErrorPayload
			if err := decodePayload(msg.Payload, &payload); err == nil {
				select {
				case c.errors <- payload.Message:
				default:
				}
			}
		}
	}
}

// ClientID returns the id the server assigned
func (c *Client) ClientID() string {
	return c.hello.ClientID
}

// Software returns the server's product and version string
func (c *Client) Software() string {
	return c.hello.Software
}

// ServerName returns the server's advertised name
func (c *Client) ServerName() string {
	return c.hello.ServerName
}

// States delivers state updates; it is closed when the connection ends
func (c *Client) States() <-chan State {
	return c.states
}

// Errors delivers command rejections from the server
func (c *Client) Errors() <-chan string {
	return c.errors
}

// Send sends a command to the server
func (c *Client) Send(cmd Command) error {
	data, err := json.Marshal(Message{Type: TypeCommand, Payload: cmd})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}
