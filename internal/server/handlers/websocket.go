// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/view"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

// Message types on the view stream
const (
	msgProjection = "projection"
	msgTransition = "transition"
	msgFilter     = "filter"
	msgError      = "error"
)

// serverMessage is sent to dashboards
type serverMessage struct {
	Type       string                     `json:"type"`
	Projection *view.Projection           `json:"projection,omitempty"`
	Event      *complaint.TransitionEvent `json:"event,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Time       time.Time                  `json:"time"`
}

// clientMessage is received from dashboards
type clientMessage struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	IssueType  string `json:"issue_type"`
	Department string `json:"department"`
	Search     string `json:"search"`
}

// filterValues lets a filter message reuse the query string parser
func (m clientMessage) filterValues() url.Values {
	return url.Values{
		"status":     {m.Status},
		"priority":   {m.Priority},
		"issue_type": {m.IssueType},
		"department": {m.Department},
		"search":     {m.Search},
	}
}

// ViewStreamConfig wires a view stream handler
type ViewStreamConfig struct {
	Source    view.Source
	Lookup    ComplaintSource
	Clusterer geo.Clusterer
	// NATSConn and EventsSubject enable transition notifications
	NATSConn      *nats.Conn
	EventsSubject string
	CheckOrigin   func(r *http.Request) bool
	Logger        *slog.Logger
}

// viewClient is one connected dashboard
type viewClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	actor     complaint.Actor
	projector *view.Projector
	natsSub   *nats.Subscription
	config    WebSocketConfig
	logger    *slog.Logger
}

// ViewStreamHandler streams a live projection to each connected dashboard.
// The viewer comes from the actor headers and the initial filter from the
// query string. Clients change their filter with {"type":"filter",...}.
func ViewStreamHandler(cfg ViewStreamConfig) http.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     cfg.CheckOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			respondWithServiceError(w, err)
			return
		}

		spec, err := complaintService.ParseFilterSpec(r.URL.Query())
		if err != nil {
			respondWithServiceError(w, err)
			return
		}

		var clusterer geo.Clusterer
		if withMap, _ := strconv.ParseBool(r.URL.Query().Get("map")); withMap {
			clusterer = cfg.Clusterer
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade to websocket", "error", err)
			return
		}

		client := &viewClient{
			conn:   conn,
			send:   make(chan []byte, 64),
			done:   make(chan struct{}),
			actor:  actor,
			config: DefaultWebSocketConfig(),
			logger: logger,
		}

		client.projector = view.NewProjector(cfg.Source, actor, spec, clusterer, client.sendProjection)

		if cfg.NATSConn != nil && cfg.EventsSubject != "" && cfg.Lookup != nil {
			if err := client.subscribeToTransitions(cfg.NATSConn, cfg.EventsSubject, cfg.Lookup); err != nil {
				logger.Warn("failed to subscribe to transitions", "error", err)
			}
		}

		logger.Info("view stream connected", "actor_id", actor.ID, "role", actor.Role)

		go client.writePump()
		go client.readPump()
	}
}

// sendProjection is the projector's emit callback
func (c *viewClient) sendProjection(p view.Projection) {
	c.enqueue(serverMessage{Type: msgProjection, Projection: &p, Time: time.Now()})
}

// enqueue blocks until the writer takes the message or the client closes
func (c *viewClient) enqueue(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode view message", "error", err)
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	}
}

// subscribeToTransitions forwards lifecycle events for visible complaints
func (c *viewClient) subscribeToTransitions(nc *nats.Conn, subject string, lookup ComplaintSource) error {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var event complaint.TransitionEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		current, ok := lookup.Get(event.ComplaintID)
		if !ok || !view.CanSee(c.actor, current) {
			return
		}
		c.enqueue(serverMessage{Type: msgTransition, Event: &event, Time: time.Now()})
	})
	if err != nil {
		return err
	}
	c.natsSub = sub
	return nil
}

// readPump applies filter messages until the connection drops
func (c *viewClient) readPump() {
	defer c.closeConnection()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", "error", err)
			}
			return
		}

		c.processIncomingMessage(message)
	}
}

// processIncomingMessage processes an incoming WebSocket message
func (c *viewClient) processIncomingMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.enqueue(serverMessage{Type: msgError, Error: "invalid message", Time: time.Now()})
		return
	}

	switch msg.Type {
	case msgFilter:
		spec, err := complaintService.ParseFilterSpec(msg.filterValues())
		if err != nil {
			c.enqueue(serverMessage{Type: msgError, Error: err.Error(), Time: time.Now()})
			return
		}
		c.projector.SetFilter(spec)

	default:
		c.enqueue(serverMessage{Type: msgError, Error: "unknown message type " + msg.Type, Time: time.Now()})
	}
}

// writePump pumps queued messages to the WebSocket connection
func (c *viewClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// closeConnection releases the client. done closes first so a projector
// blocked in enqueue can return before it is unsubscribed.
func (c *viewClient) closeConnection() {
	c.closeOnce.Do(func() {
		close(c.done)

		if c.natsSub != nil {
			c.natsSub.Unsubscribe()
		}
		c.projector.Close()
		c.conn.Close()

		c.logger.Info("view stream closed", "actor_id", c.actor.ID)
	})
}
