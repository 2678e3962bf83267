package loadboard

import (
	"sync"
)

const defaultViewerBuffer = 32

type viewerRecorder interface {
	ViewerJoined()
	ViewerLeft()
}

// Viewer is one stream subscription. C is closed when the hub drops the viewer.
type Viewer struct {
	C    <-chan Change
	ch   chan Change
	once sync.Once
}

func (v *Viewer) close() {
	v.once.Do(func() { close(v.ch) })
}

// Hub fans board changes out to stream viewers. A viewer whose buffer is full
// is dropped and has to reconnect for a fresh snapshot.
type Hub struct {
	mu      sync.Mutex
	viewers map[*Viewer]struct{}
	buffer  int
	metrics viewerRecorder
}

func NewHub(buffer int, metrics viewerRecorder) *Hub {
	if buffer <= 0 {
		buffer = defaultViewerBuffer
	}
	return &Hub{viewers: map[*Viewer]struct{}{}, buffer: buffer, metrics: metrics}
}

// Subscribe registers a viewer. The returned func unsubscribes it and is safe to call twice.
func (h *Hub) Subscribe() (*Viewer, func()) {
	ch := make(chan Change, h.buffer)
	v := &Viewer{C: ch, ch: ch}

	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ViewerJoined()
	}
	return v, func() { h.remove(v) }
}

func (h *Hub) Broadcast(c Change) {
	h.mu.Lock()
	var dropped []*Viewer
	for v := range h.viewers {
		select {
		case v.ch <- c:
		default:
			dropped = append(dropped, v)
		}
	}
	h.mu.Unlock()

	for _, v := range dropped {
		h.remove(v)
	}
}

func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Close drops every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	viewers := make([]*Viewer, 0, len(h.viewers))
	for v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()
	for _, v := range viewers {
		h.remove(v)
	}
}

func (h *Hub) remove(v *Viewer) {
	h.mu.Lock()
	_, ok := h.viewers[v]
	delete(h.viewers, v)
	h.mu.Unlock()
	if !ok {
		return
	}
	v.close()
	if h.metrics != nil {
		h.metrics.ViewerLeft()
	}
}
