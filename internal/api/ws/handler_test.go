package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/librarian/internal/domain/events"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type  string `json:"type"`
	AppID string `json:"app_id"`
}

func dial(t *testing.T, bus *events.Bus, metrics *monitoring.Metrics, query string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/events", NewHandler(bus, metrics, nil).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello received
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamsEvents(t *testing.T) {
	metrics := monitoring.NewMetrics()
	bus := events.NewBus(metrics, nil)
	conn := dial(t, bus, metrics, "")

	assert.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))

	bus.Emit(events.InstallCompleted("game1"))
	msg := read(t, conn)
	assert.Equal(t, "install-completed", msg.Type)
	assert.Equal(t, "game1", msg.AppID)
}

func TestFiltersByApp(t *testing.T) {
	bus := events.NewBus(nil, nil)
	conn := dial(t, bus, nil, "?app_id=game2")
	assert.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Emit(events.InstallCompleted("game1"))
	bus.Emit(events.LibraryUpdated(3))
	bus.Emit(events.InstallCompleted("game2"))

	assert.Equal(t, "library-updated", read(t, conn).Type)
	assert.Equal(t, "game2", read(t, conn).AppID)
}

func TestPingAndUnknown(t *testing.T) {
	bus := events.NewBus(nil, nil)
	conn := dial(t, bus, nil, "")

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "shout"}))
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestUnsubscribesOnClose(t *testing.T) {
	bus := events.NewBus(nil, nil)
	conn := dial(t, bus, nil, "")
	assert.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
