package handler

import (
	"net/http"
	"sync"
	"time"

	"pdf-view-session/internal/domain"
	"pdf-view-session/internal/session"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamBuffer     = 16
)

// StreamHandler pushes every session state change to WebSocket clients.
type StreamHandler struct {
	session  SessionController
	upgrader websocket.Upgrader
	logger   domain.Logger

	mu       sync.Mutex
	closing  bool
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewStreamHandler accepts upgrades from the given origins ("*" allows any).
func NewStreamHandler(ctrl SessionController, allowedOrigins []string, logger domain.Logger) *StreamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &StreamHandler{
		session: ctrl,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		shutdown: make(chan struct{}),
	}
}

// ServeHTTP upgrades the connection, sends the current state and then one
// message per change. Slow clients skip intermediate states and always
// receive the newest one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan session.State, streamBuffer)
	unsubscribe := h.session.Subscribe(func(s session.State) {
		// Runs on the control goroutine: never block it.
		select {
		case updates <- s:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	if err := h.send(conn, h.session.State()); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-h.shutdown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case s := <-updates:
			if err := h.send(conn, s); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) send(conn *websocket.Conn, s session.State) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(s); err != nil {
		h.logger.Debug("State stream write failed", "error", err)
		return err
	}
	return nil
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *StreamHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
	}
}

// Close disconnects every stream client and waits for their handlers to return.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	if !h.closing {
		h.closing = true
		close(h.shutdown)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
