package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Loopback UIs come from arbitrary origins
	},
}

// Message is a client or control message
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Handler manages event stream connections
type Handler struct {
	bus     *events.Bus
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(bus *events.Bus, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		bus:     bus,
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and forwards events until either
// side closes
func (h *Handler) HandleConnection(c *gin.Context) {
	appID := c.Query("app_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	sub := h.bus.Subscribe(events.DefaultBuffer)
	defer sub.Cancel()

	// Writes come from the forward loop and the reader's pong replies
	var writeMu sync.Mutex
	send := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	if err := send(Message{Type: "connected", Message: "Subscribed to library events"}); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readLoop(conn, send, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-sub.C:
			if !ok {
				h.closeConn(conn, &writeMu)
				return
			}
			if appID != "" && e.AppID != "" && e.AppID != appID {
				continue
			}
			if err := send(e); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(conn *websocket.Conn, send func(interface{}) error, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			conn.SetReadDeadline(time.Now().Add(pongWait))
			send(Message{Type: "pong"})
		default:
			send(Message{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Handler) closeConn(conn *websocket.Conn, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
