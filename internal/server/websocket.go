package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/types"
	"github.com/oszuidwest/cranecheck/internal/util"
)

const (
	wsReadLimit    = 16 * 1024
	wsWriteTimeout = 10 * time.Second
)

// upgrader configures the WebSocket upgrader with origin validation for same-origin and local network connections.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowedOrigin(origin, r.Host) {
			return true
		}
		slog.Warn("rejected WebSocket connection", "origin", origin)
		return false
	},
}

// allowedOrigin accepts an empty origin (same-origin requests), the request's
// own host, and loopback or private network addresses.
func allowedOrigin(origin, host string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	name := u.Hostname()
	if strings.EqualFold(name, "localhost") {
		return true
	}
	ip := net.ParseIP(name)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// UpgradeConnection upgrades an HTTP connection to WebSocket. A non-nil
// cookie is sent with the handshake response.
func UpgradeConnection(w http.ResponseWriter, r *http.Request, cookie *http.Cookie) (*websocket.Conn, error) {
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}
	return upgrader.Upgrade(w, r, header)
}

// ServeCommands reads commands from conn until it closes and answers each
// with a reply for the session identified by token. The current state is
// pushed once on connect.
func ServeCommands(conn *websocket.Conn, store *Store, token string, handler *CommandHandler) {
	defer util.SafeClose(conn, "WebSocket connection")
	conn.SetReadLimit(wsReadLimit)

	write := func(msg any) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return false
		}
		if err := conn.WriteJSON(msg); err != nil {
			slog.Debug("WebSocket write failed", "error", err)
			return false
		}
		return true
	}

	reply := func(cmd types.WSCommand) bool {
		var msg any
		if err := store.With(token, func(c *session.Controller) error {
			msg = handler.Handle(c, cmd)
			return nil
		}); err != nil {
			slog.Error("WebSocket command failed", "type", cmd.Type, "error", err)
			return false
		}
		return write(msg)
	}

	if !reply(types.WSCommand{Type: types.CommandState}) {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket closed", "error", err)
			}
			return
		}

		var cmd types.WSCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Warn("invalid WebSocket message", "error", err)
			if !write(commandError("", "invalid message")) {
				return
			}
			continue
		}
		if !reply(cmd) {
			return
		}
	}
}
