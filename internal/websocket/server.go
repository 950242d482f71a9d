// Package websocket streams fleet lifecycle transitions to connected
// operator dashboards.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecvirtual/fleetops/internal/fleet"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

const (
	MessageTypeAircraftGrounded = "aircraft_grounded"
	MessageTypeAircraftReleased = "aircraft_released"
)

// Message is a fleet event pushed to every connected client
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client represents one connected dashboard
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	closeOnce sync.Once
}

// Server is the fleet-event broadcast hub
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log.Named("websocket"),
	}
}

// Run processes register/unregister/broadcast events. Call in a goroutine.
func (s *Server) Run() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()
			s.logger.Info("WebSocket client connected",
				logger.Int("total_clients", s.clientCount()))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket client disconnected",
				logger.Int("total_clients", s.clientCount()))

		case msg := <-s.broadcast:
			s.mu.RLock()
			for client := range s.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; drop the message rather than block
					// the hub
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastTransition implements fleet.Broadcaster.
func (s *Server) BroadcastTransition(t fleet.Transition) {
	msgType := MessageTypeAircraftReleased
	if t.Grounded {
		msgType = MessageTypeAircraftGrounded
	}

	data := map[string]any{
		"registration": t.Registration,
		"total_hours":  t.TotalHours,
	}
	if t.Grounded {
		data["reason"] = string(t.Reason)
		if t.Tier != "" {
			data["check"] = string(t.Tier)
		}
		if t.MaintEndAt != nil {
			data["maint_end_at"] = t.MaintEndAt.UTC().Format(time.RFC3339)
		}
	}

	select {
	case s.broadcast <- &Message{Type: msgType, Data: data}:
	default:
		s.logger.Warn("Broadcast channel full, dropping fleet event",
			logger.String("registration", t.Registration))
	}
}

// HandleWebSocket upgrades an HTTP request into a streaming connection
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", logger.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, 16),
		server: s,
	}
	s.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump forwards hub messages to the connection
func (c *Client) writePump() {
	defer c.close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump drains the connection so pings and closes are processed; the
// feed is one-way
func (c *Client) readPump() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.server.unregister <- c
		c.conn.Close()
	})
}
