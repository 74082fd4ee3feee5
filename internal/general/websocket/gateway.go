package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fletea/internal/domain/user"
	"fletea/internal/general/contracts"
	"fletea/internal/general/jwt"
	"fletea/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	readIdleTimeout  = 60 * time.Second
	authTimeout      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway holds authenticated rider and driver WebSocket connections and
// pushes trip feed updates to them. Clients authenticate with a first-frame
// auth message; after that the connection is push-only apart from pings.
type Gateway struct {
	logger     *logger.Logger
	jwtMgr     *jwt.Manager
	writeLocks sync.Map // key: *websocket.Conn -> *sync.Mutex
	riders     sync.Map // key: riderID(string) -> *websocket.Conn
	drivers    sync.Map // key: driverID(string) -> *websocket.Conn

	onConnChange func(role user.Role, delta int) // optional metrics hook
}

// NewGateway creates a feed gateway with JWT auth.
func NewGateway(logger *logger.Logger, jwtMgr *jwt.Manager) *Gateway {
	return &Gateway{logger: logger, jwtMgr: jwtMgr}
}

// OnConnChange registers a callback fired when a client connects (+1) or
// disconnects (-1).
func (gw *Gateway) OnConnChange(fn func(role user.Role, delta int)) {
	gw.onConnChange = fn
}

// ConnectRider handles WebSocket connections from riders with JWT auth.
func (gw *Gateway) ConnectRider(w http.ResponseWriter, r *http.Request) {
	gw.connect(w, r, user.RoleRider, &gw.riders)
}

// ConnectDriver handles WebSocket connections from drivers with JWT auth.
func (gw *Gateway) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	gw.connect(w, r, user.RoleDriver, &gw.drivers)
}

func (gw *Gateway) connect(w http.ResponseWriter, r *http.Request, role user.Role, registry *sync.Map) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	// Teardown order (LIFO on return): forget writer lock, then close socket
	defer conn.Close()
	defer gw.writeLocks.Delete(conn)

	// 2) Set auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		gw.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		gw.sendAuthError(conn, "internal server error")
		return
	}

	// 3) First frame must be the auth message
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			gw.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			gw.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		gw.sendAuthError(conn, "authentication timeout: please send auth message within 10 seconds")
		return
	}

	if msgType != websocket.TextMessage {
		gw.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		gw.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, gw.jwtMgr, role)
	if err != nil {
		gw.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		gw.sendAuthError(conn, "authentication failed: invalid token")
		return
	}
	userID := res.Claims.Subject

	// 4) Send authentication success message
	if err := gw.sendAuthSuccess(conn, role, userID); err != nil {
		gw.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	gw.logger.Info(r.Context(), "ws_connected", "Feed WebSocket connected",
		map[string]any{"user_id": userID, "role": role.String()})

	// 5) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	})

	// 6) Start ping loop (every 30s) using the per-connection writer lock.
	// The done channel stops the pinger when this handler returns; a stopped
	// ticker alone would leave it blocked forever.
	done := make(chan struct{})
	defer close(done)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}

			mu := gw.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = conn.Close()
				gw.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}()

	// 7) Register this client for outbound feed pushes; unregister on exit
	registry.Store(userID, conn)
	if gw.onConnChange != nil {
		gw.onConnChange(role, +1)
	}
	defer func() {
		registry.Delete(userID)
		if gw.onConnChange != nil {
			gw.onConnChange(role, -1)
		}
	}()

	// 8) Drain loop: the feed is push-only, so inbound frames are discarded
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				gw.logger.Error(r.Context(), "ws_unexpected_close", "Connection closed unexpectedly", err, map[string]any{
					"user_id": userID,
				})
				gw.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				gw.logger.Info(r.Context(), "ws_connection_closed", "Connection closed normally", map[string]any{
					"user_id": userID,
				})
				gw.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			return
		}
	}
}

// ----- Outbound pushes -----

// NotifyRider sends a status update to a connected rider.
func (gw *Gateway) NotifyRider(ctx context.Context, riderID string, msg contracts.WSTripStatusUpdate) error {
	return gw.notify(ctx, &gw.riders, riderID, msg)
}

// NotifyDriver sends a status update to a connected driver.
func (gw *Gateway) NotifyDriver(ctx context.Context, driverID string, msg contracts.WSTripStatusUpdate) error {
	return gw.notify(ctx, &gw.drivers, driverID, msg)
}

// BroadcastOffer pushes a new pending trip to every connected driver.
// Individual write failures are logged and skipped.
func (gw *Gateway) BroadcastOffer(ctx context.Context, msg contracts.WSTripOffer) int {
	sent := 0
	gw.drivers.Range(func(key, value any) bool {
		conn, _ := value.(*websocket.Conn)
		if conn == nil {
			return true
		}
		if err := gw.writeJSON(conn, msg); err != nil {
			gw.logger.Error(ctx, "ws_offer_push_failed", "Failed to push trip offer to driver", err, map[string]any{
				"driver_id": key,
			})
			return true
		}
		sent++
		return true
	})
	return sent
}

func (gw *Gateway) notify(ctx context.Context, registry *sync.Map, userID string, msg any) error {
	v, ok := registry.Load(userID)
	if !ok {
		return fmt.Errorf("client %s not connected", userID)
	}
	conn, _ := v.(*websocket.Conn)
	if conn == nil {
		return fmt.Errorf("no connection for client %s", userID)
	}

	if err := gw.writeJSON(conn, msg); err != nil {
		gw.logger.Error(ctx, "ws_write_failed", "Failed to push feed update", err, map[string]any{
			"user_id": userID,
		})
		return err
	}
	return nil
}

// ----- Connection write helpers -----

// sendAuthError sends authentication error message to client
func (gw *Gateway) sendAuthError(conn *websocket.Conn, message string) error {
	errorMsg := map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	}
	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return err
	}
	return gw.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

// sendAuthSuccess sends authentication success message to client
func (gw *Gateway) sendAuthSuccess(conn *websocket.Conn, role user.Role, userID string) error {
	successMsg := map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"role":      role.String(),
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	msgBytes, err := json.Marshal(successMsg)
	if err != nil {
		return err
	}
	return gw.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

// wsWriteClose sends a close control frame with the given code and reason.
func (gw *Gateway) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := gw.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	gw.writeLocks.Delete(conn)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (gw *Gateway) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := gw.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// lockOf returns the mutex for a specific connection
func (gw *Gateway) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := gw.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := gw.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

// writeJSON marshals v and writes a single TextMessage to the given connection.
func (gw *Gateway) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	mu := gw.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
