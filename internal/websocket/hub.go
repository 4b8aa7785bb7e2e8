package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Time allowed for a language change, which may release stored audio.
	controlTimeout = 10 * time.Second
)

// ErrHubStopped is returned when a connection arrives after the hub stopped
var ErrHubStopped = errors.New("websocket hub stopped")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients, one translator session each
type Hub struct {
	// Registered clients by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	pipeline          *usecase.TranslationPipeline
	maxRecordingBytes int
	validator         *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. Recordings above maxRecordingBytes are rejected.
func NewHub(pipeline *usecase.TranslationPipeline, maxRecordingBytes int, logger *zap.Logger) *Hub {
	return &Hub{
		clients:           make(map[string]*Client),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		done:              make(chan struct{}),
		pipeline:          pipeline,
		maxRecordingBytes: maxRecordingBytes,
		validator:         NewMessageValidator(),
		logger:            logger,
	}
}

// Run starts the hub's main loop and disconnects every client when ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if previous, ok := h.clients[client.sessionID]; ok {
				// the same token connected again; the newer connection wins
				previous.disconnect("session opened elsewhere")
			}
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.sessionID]; ok && current == client {
				delete(h.clients, client.sessionID)
			}
			h.mu.Unlock()
			client.closeSend()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.disconnect("server shutting down")
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return nil
		}
	}
}

// ActiveClients returns the number of connected clients
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writeData is one outbound frame
type writeData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

type recordingPhase int

const (
	phaseIdle recordingPhase = iota
	phaseRecording
	// phaseRejected drops chunks of a recording that grew too large until it ends
	phaseRejected
)

// Client is a middleman between the websocket connection and its session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send       chan writeData
	sendMu     sync.Mutex
	sendClosed bool

	// Latest state snapshot not yet written. Snapshots replace each other
	// here, so the newest one is delivered even when send is full.
	pendingState []byte
	stateReady   chan struct{}

	sessionID string
	session   *usecase.Session

	logger *zap.Logger

	// Cancelled when the connection goes away.
	ctx    context.Context
	cancel context.CancelFunc

	// Audio capture of the current recording
	mutex    sync.Mutex
	phase    recordingPhase
	mimeType string
	language string
	audio    []byte

	runs sync.WaitGroup
}

// HandleWebSocket upgrades the request and opens a translator session for sessionID
func HandleWebSocket(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan writeData, 256),
		stateReady: make(chan struct{}, 1),
		sessionID:  sessionID,
		logger:     logger.With(zap.String("sessionID", sessionID)),
		ctx:        ctx,
		cancel:     cancel,
	}
	client.session = hub.pipeline.NewSession(ctx, sessionID, client.pushState)

	select {
	case client.hub.register <- client:
	case <-hub.done:
		cancel()
		client.session.Close(context.Background())
		conn.Close()
		return ErrHubStopped
	}

	client.pushState(client.session.State())

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.session.Close(context.Background())
		c.runs.Wait()

		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.closeSend()
		}
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection.
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

		case <-c.stateReady:
			payload := c.takeState()
			if payload == nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write state", zap.Error(err))
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

// processMessage processes a control message from the client
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendJSON(CreateErrorMessage(ErrorCodeInvalidMessage, "Invalid message", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))
	case *LanguageChangeMessage:
		c.handleLanguageChange(m)
	case *RecordingStartMessage:
		c.handleRecordingStart(m)
	case *RecordingEndMessage:
		c.handleRecordingEnd()
	}
}

func (c *Client) handleLanguageChange(msg *LanguageChangeMessage) {
	ctx, cancel := context.WithTimeout(c.ctx, controlTimeout)
	defer cancel()

	if err := c.session.ChangeLanguage(ctx, msg.Language); err != nil {
		code := ErrorCodeUnsupportedLanguage
		if errors.Is(err, usecase.ErrSessionClosed) {
			code = ErrorCodeSessionClosed
		}
		c.logger.Warn("Language change rejected",
			zap.String("language", msg.Language),
			zap.Error(err))
		c.sendJSON(CreateErrorMessage(code, usecase.UserMessage(err), ""))
	}
}

func (c *Client) handleRecordingStart(msg *RecordingStartMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.phase == phaseRecording {
		c.logger.Warn("Recording restarted before it ended", zap.Int("discardedBytes", len(c.audio)))
	}

	c.phase = phaseRecording
	c.mimeType = msg.MIMEType
	c.language = msg.Language
	c.audio = nil

	c.logger.Debug("Recording started",
		zap.String("mimeType", msg.MIMEType),
		zap.String("language", msg.Language))
}

// processAudioChunk appends a binary frame to the current recording
func (c *Client) processAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch c.phase {
	case phaseIdle:
		c.sendJSON(CreateErrorMessage(ErrorCodeRecordingNotStarted, "Send recording_start before audio", ""))
		return
	case phaseRejected:
		return
	}

	if c.hub.maxRecordingBytes > 0 && len(c.audio)+len(data) > c.hub.maxRecordingBytes {
		c.logger.Warn("Recording too large",
			zap.Int("bytes", len(c.audio)+len(data)),
			zap.Int("limit", c.hub.maxRecordingBytes))
		c.phase = phaseRejected
		c.audio = nil
		c.sendJSON(CreateErrorMessage(ErrorCodeRecordingTooLarge, "The recording is too long. Please record a shorter message.", ""))
		return
	}

	c.audio = append(c.audio, data...)
}

// handleRecordingEnd hands the recording to the session. The run happens off
// the read loop so language changes are seen while it is in flight.
func (c *Client) handleRecordingEnd() {
	c.mutex.Lock()
	phase := c.phase
	audio := entities.AudioBlob{Data: c.audio, MIMEType: c.mimeType}
	language := c.language
	c.phase = phaseIdle
	c.audio = nil
	c.mutex.Unlock()

	switch phase {
	case phaseIdle:
		c.sendJSON(CreateErrorMessage(ErrorCodeRecordingNotStarted, "No recording in progress", ""))
		return
	case phaseRejected:
		return
	}

	c.logger.Info("Recording complete",
		zap.Int("bytes", audio.Size()),
		zap.String("mimeType", audio.MIMEType))

	c.runs.Add(1)
	go func() {
		defer c.runs.Done()

		outcome, err := c.session.HandleRecordingComplete(c.ctx, audio, language)
		switch {
		case errors.Is(err, usecase.ErrStaleRun):
			c.logger.Debug("Run superseded", zap.Error(err))
		case errors.Is(err, usecase.ErrSessionClosed):
		case err != nil:
			c.logger.Info("Run failed", zap.String("kind", string(usecase.KindOf(err))))
		default:
			c.logger.Info("Run succeeded", zap.Uint64("generation", outcome.Generation))
		}
	}()
}

// pushState is the session listener. It runs under the session lock, so it
// only records the snapshot for writePump.
func (c *Client) pushState(state entities.SessionState) {
	payload, err := json.Marshal(CreateStateMessage(c.sessionID, state))
	if err != nil {
		c.logger.Error("Failed to marshal state", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.pendingState = payload
	select {
	case c.stateReady <- struct{}{}:
	default:
	}
}

// takeState returns the snapshot waiting to be written, or nil
func (c *Client) takeState() []byte {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	payload := c.pendingState
	c.pendingState = nil
	return payload
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(writeData{Type: websocket.TextMessage, Payload: payload})
}

func (c *Client) enqueue(data writeData) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// disconnect tells the peer why and closes the connection; readPump cleans up
func (c *Client) disconnect(reason string) {
	deadline := time.Now().Add(writeWait)
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, reason), deadline)
	c.conn.Close()
}
