package ws

import (
	"sync"

	"github.com/cwrk-planet/coderjam/pkg/metrics"
)

// Hub tracks open connections so shutdown can close them and stats can
// count them. Room membership lives in the session service.
type Hub struct {
	mu    sync.RWMutex
	conns map[*wsConn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*wsConn]struct{})}
}

func (h *Hub) Add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
	metrics.Connections.Set(float64(len(h.conns)))
}

func (h *Hub) Remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)
	metrics.Connections.Set(float64(len(h.conns)))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every open connection; their read loops then run the
// normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		_ = c.Close() // best-effort
	}
}
