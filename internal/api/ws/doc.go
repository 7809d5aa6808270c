// Package ws streams provider events over WebSocket.
//
// Each connection subscribes to the event bus and receives every event as
// one JSON text message. An optional app_id query parameter narrows the
// stream to one app plus the app-less events (auth and library events).
//
// Message Types (Client → Server):
//   - ping: keep-alive, answered with pong
//
// Message Types (Server → Client):
//   - connected: sent once after the upgrade
//   - pong: reply to ping
//   - any event type: install-started, install-progressed, ...
//   - error: unknown client message
//
// Example Usage:
//
//	handler := ws.NewHandler(bus, metrics, logger)
//	router.GET("/api/v1/events", handler.HandleConnection)
package ws
