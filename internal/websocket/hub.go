// Package websocket connects capture clients to the shared player
// session. A connected client streams sensor telemetry upward and acts
// as the playback surface for commands flowing downward.
package websocket

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spotmusic/server/domain/entities"
	"github.com/spotmusic/server/domain/repositories"
	"github.com/spotmusic/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Single-user deployment behind a local origin.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients, fans server pushes out to all
// of them, and implements the playback surface port by broadcasting
// surface commands.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	player    *usecase.PlayerService
	validator *MessageValidator
	logger    *zap.Logger
}

// NewHub creates a new WebSocket hub and subscribes it to player pushes.
func NewHub(player *usecase.PlayerService, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		player:     player,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
	player.Subscribe(func(update usecase.Update) {
		h.broadcastJSON(CreateUpdateMessage(update.Kind, update.Payload))
	})
	player.AttachSurface(h)
	return h
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// Cue implements the playback surface port.
func (h *Hub) Cue(videoID string) {
	h.broadcastJSON(CreateCommandMessage("cue", videoID))
}

// Load implements the playback surface port.
func (h *Hub) Load(videoID string) {
	h.broadcastJSON(CreateCommandMessage("load", videoID))
}

// Play implements the playback surface port.
func (h *Hub) Play() {
	h.broadcastJSON(CreateCommandMessage("play", ""))
}

// Pause implements the playback surface port.
func (h *Hub) Pause() {
	h.broadcastJSON(CreateCommandMessage("pause", ""))
}

func (h *Hub) broadcastJSON(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		default:
			h.logger.Warn("Dropping message to slow client", zap.String("clientID", client.id))
		}
	}
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Connection ID for this client
	id string

	// Logger
	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     uuid.NewString(),
		logger: logger,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			// Process JSON messages (telemetry, surface events)
			c.processMessage(message)
		case websocket.BinaryMessage:
			// Process binary microphone frames directly
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage processes incoming JSON messages from the client
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", "message rejected", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *SensorMessage:
		c.handleSensor(msg)
	case *SensorErrorMessage:
		c.hub.player.MarkSensorFailed(
			entities.SensorKind(msg.Sensor),
			entities.SensorStatus(msg.Status),
			msg.Message)
	case *VideoFrameMessage:
		c.handleVideoFrame(msg)
	case *LocationMessage:
		c.hub.player.UpdateLocation(entities.Coordinates{
			Latitude:       msg.Latitude,
			Longitude:      msg.Longitude,
			AccuracyMeters: msg.AccuracyMeters,
		})
	case *SurfaceStateMessage:
		c.hub.player.SurfaceStateChanged(repositories.SurfaceState(msg.State), msg.VideoID)
	case *SurfaceErrorMessage:
		c.hub.player.SurfaceFailed(msg.Message)
	case *ProgressMessage:
		c.hub.player.ReportProgress(msg.Position, msg.Duration)
	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.Data))
	}
}

func (c *Client) handleSensor(msg *SensorMessage) {
	kind := entities.SensorKind(msg.Sensor)
	if msg.Type == MessageTypeSensorStop {
		c.hub.player.StopSensor(kind)
		return
	}
	if err := c.hub.player.StartSensor(kind); err != nil {
		c.logger.Warn("Sensor start rejected",
			zap.String("sensor", msg.Sensor),
			zap.Error(err))
		c.sendJSON(CreateErrorMessage("sensor_unavailable", "sensor start rejected", err.Error()))
	}
}

func (c *Client) handleVideoFrame(msg *VideoFrameMessage) {
	frame, err := msg.Frame()
	if err != nil {
		c.logger.Warn("Rejected video frame", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_frame", "frame rejected", err.Error()))
		return
	}
	c.hub.player.ProcessVideoFrame(frame)
}

// processAudioFrame handles binary microphone data: packed little-endian
// float32 samples in [-1, 1].
func (c *Client) processAudioFrame(data []byte) {
	samples, err := DecodeAudioFrame(data)
	if err != nil {
		c.logger.Warn("Rejected audio frame",
			zap.Int("size", len(data)),
			zap.Error(err))
		return
	}
	c.hub.player.ProcessAudioFrame(samples)
}

func (c *Client) sendJSON(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("Failed to marshal response", zap.Error(err))
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping response to slow client", zap.String("clientID", c.id))
	}
}

// DecodeAudioFrame converts a binary frame of little-endian float32
// samples into float64s for the audio pipeline.
func DecodeAudioFrame(data []byte) ([]float64, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errMalformedAudioFrame
	}
	samples := make([]float64, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, nil
}

var errMalformedAudioFrame = errors.New("audio frame length must be a positive multiple of 4 bytes")
