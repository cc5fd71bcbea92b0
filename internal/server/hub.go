package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// hub fans job snapshots out to the websocket subscribers of each job.
// A connection that fails a write is dropped and closed; reconnecting is
// the client's problem.
type hub struct {
	mu   sync.RWMutex
	subs map[string]map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *hub) subscribe(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[jobID][conn] = struct{}{}
}

func (h *hub) unsubscribe(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[jobID], conn)
	if len(h.subs[jobID]) == 0 {
		delete(h.subs, jobID)
	}
}

// publish sends one snapshot to every subscriber of jobID.
func (h *hub) publish(jobID string, view jobView) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[jobID]))
	for conn := range h.subs[jobID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(view); err != nil {
			h.unsubscribe(jobID, conn)
			_ = conn.Close()
		}
	}
}

// closeAll disconnects every subscriber; used during shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for jobID, conns := range h.subs {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(h.subs, jobID)
	}
}
