package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/projectsync"
	"golang.org/x/net/websocket"
)

const heartbeatInterval = 30 * time.Second

// realtimeHub fans sync progress out to every dashboard socket of a user.
type realtimeHub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newRealtimeHub() *realtimeHub {
	return &realtimeHub{
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *realtimeHub) add(userID string, c *websocket.Conn) {
	if h == nil || c == nil || strings.TrimSpace(userID) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[userID]
	if m == nil {
		m = make(map[*websocket.Conn]struct{})
		h.conns[userID] = m
	}
	m[c] = struct{}{}
}

func (h *realtimeHub) remove(userID string, c *websocket.Conn) {
	if h == nil || c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.conns[userID]
	if m == nil {
		return
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.conns, userID)
	}
}

func (h *realtimeHub) broadcast(userID string, msg []byte) {
	if h == nil || strings.TrimSpace(userID) == "" || len(msg) == 0 {
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := websocket.Message.Send(c, string(msg)); err != nil {
			_ = c.Close()
			h.remove(userID, c)
		}
	}
}

func (h *realtimeHub) count(userID string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

type realtimeEvent struct {
	projectsync.Event
	UserID string `json:"userId"`
	At     string `json:"at"`
}

// Publish implements projectsync.EventSink.
func (h *Handler) Publish(userID string, ev projectsync.Event) {
	if h == nil || h.rt == nil || h.rt.count(userID) == 0 {
		return
	}
	b, err := json.Marshal(realtimeEvent{Event: ev, UserID: userID, At: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		h.logger.Printf("[Realtime] marshal failed userId=%s err=%v", userID, err)
		return
	}
	h.logger.Printf("[Realtime] emit userId=%s type=%s portfolioId=%s subs=%d", userID, ev.Type, ev.PortfolioID, h.rt.count(userID))
	h.rt.broadcast(userID, b)
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil && h != "" {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// wsAllowed admits loopback callers, and others only with X-Internal-WS-Secret.
func (h *Handler) wsAllowed(r *http.Request) bool {
	if isLoopback(r.RemoteAddr) {
		return true
	}
	if h.wsSecret == "" {
		return false
	}
	return strings.TrimSpace(r.Header.Get("X-Internal-WS-Secret")) == h.wsSecret
}

// EventsPing lets a proxy check its websocket credentials without upgrading.
func (h *Handler) EventsPing(w http.ResponseWriter, r *http.Request) {
	ok := h.wsAllowed(r)
	status := http.StatusOK
	if !ok {
		status = http.StatusForbidden
	}
	writeJSON(w, status, map[string]any{
		"ok":        ok,
		"loopback":  isLoopback(r.RemoteAddr),
		"secretSet": h.wsSecret != "",
	})
}

// EventsWebSocket streams sync events for ?userId=.
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.wsAllowed(r) {
		h.logger.Printf("[RealtimeWS] forbidden remote=%s host=%s", r.RemoteAddr, r.Host)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	wsServer := websocket.Server{
		// Origin is not checked; access is decided by wsAllowed.
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(c *websocket.Conn) {
			h.logger.Printf("[RealtimeWS] connect userId=%s remote=%s", userID, r.RemoteAddr)
			h.rt.add(userID, c)
			defer h.rt.remove(userID, c)
			defer h.logger.Printf("[RealtimeWS] disconnect userId=%s remote=%s", userID, r.RemoteAddr)

			hello, _ := json.Marshal(realtimeEvent{Event: projectsync.Event{Type: "hello"}, UserID: userID, At: time.Now().UTC().Format(time.RFC3339)})
			_ = websocket.Message.Send(c, string(hello))

			done := make(chan struct{})
			var doneOnce sync.Once
			closeDone := func() { doneOnce.Do(func() { close(done) }) }
			go func() {
				ticker := time.NewTicker(heartbeatInterval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := websocket.Message.Send(c, `{"type":"heartbeat"}`); err != nil {
							closeDone()
							return
						}
					}
				}
			}()

			for {
				var ignored string
				if err := websocket.Message.Receive(c, &ignored); err != nil {
					closeDone()
					return
				}
			}
		},
	}
	wsServer.ServeHTTP(w, r)
}
