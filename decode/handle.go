package decode

import "sync"

// Handle lazily creates an engine on first use and shares it across
// concurrent callers, so the native-vs-worker decision is made exactly once
// per handle.
type Handle struct {
	cfg Config

	mu     sync.Mutex
	engine Engine
	closed bool
}

// NewHandle returns a handle that will create its engine on first use.
func NewHandle(cfg Config) *Handle {
	return &Handle{cfg: cfg}
}

// Engine returns the shared engine, creating it if necessary. It returns nil
// once the handle has been closed.
func (h *Handle) Engine() Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if h.engine == nil {
		h.engine = newEngine(h.cfg)
	}
	return h.engine
}

// Close releases the engine if one was created and prevents further creation.
func (h *Handle) Close() error {
	h.mu.Lock()
	h.closed = true
	engine := h.engine
	h.engine = nil
	h.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.Close()
}
