package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/teranos/framemark/errors"
)

// newUpgrader creates a WebSocket upgrader that checks origins against allowed.
func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowed)
		},
	}
}

// originAllowed prefix-matches origin against allowed, so any port of an
// allowed host passes. An empty origin (non-browser client) is allowed.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	if len(allowed) == 0 {
		return strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost")
	}
	for _, a := range allowed {
		if strings.HasPrefix(origin, a) {
			return true
		}
	}
	return false
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, the real bind may still fail
	return true
}

// findAvailablePort tries the requested port, then the next ten.
func findAvailablePort(requestedPort int) (int, error) {
	for i := 0; i <= 10; i++ {
		if isPortAvailable(requestedPort + i) {
			return requestedPort + i, nil
		}
	}
	return 0, errors.Newf("no available ports found (tried %d-%d)", requestedPort, requestedPort+10)
}
