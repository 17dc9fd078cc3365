package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocket is an echo endpoint: every text frame comes back prefixed with "Echo: ".
type WebSocket struct {
	addr     string
	server   *http.Server
	ln       net.Listener
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewWebSocket(addr string, logger *logrus.Logger) *WebSocket {
	t := &WebSocket{
		addr:   addr,
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	t.server = &http.Server{Handler: http.HandlerFunc(t.serveWS), ReadHeaderTimeout: 10 * time.Second}
	return t
}

func (t *WebSocket) Kind() Kind { return KindWebSocket }

func (t *WebSocket) Addr() string {
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

func (t *WebSocket) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.ln = ln
	go func() {
		t.logger.Infof("websocket server listening on %s", ln.Addr())
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.WithError(err).Error("websocket server stopped")
		}
	}()
	return nil
}

// Stop closes open sockets with a going-away frame; Shutdown alone doesn't touch hijacked conns.
func (t *WebSocket) Stop(ctx context.Context) error {
	err := t.server.Shutdown(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := time.Now().Add(time.Second)
	for c := range t.conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = c.Close()
		delete(t.conns, c)
	}
	return err
}

func (t *WebSocket) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote a 400
		return
	}
	t.track(conn, true)
	defer func() {
		t.track(conn, false)
		_ = conn.Close()
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.WithError(err).Debug("websocket read failed")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, append([]byte("Echo: "), msg...)); err != nil {
			return
		}
	}
}

func (t *WebSocket) track(c *websocket.Conn, add bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if add {
		t.conns[c] = struct{}{}
		return
	}
	delete(t.conns, c)
}
