package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// hotSwap holds the handler chain built from the latest settings and swaps it on reload
type hotSwap struct {
	next    http.Handler
	mu      sync.RWMutex
	current http.Handler
}

func (h *hotSwap) swap(handler http.Handler) {
	h.mu.Lock()
	h.current = handler
	h.mu.Unlock()
}

func (h *hotSwap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.current
	h.mu.RUnlock()
	if current != nil {
		current.ServeHTTP(w, r)
		return
	}
	if h.next != nil {
		h.next.ServeHTTP(w, r)
	}
}

// reloadEvery calls load every interval until ctx is cancelled. A non-positive interval disables reloading.
func reloadEvery(ctx context.Context, interval time.Duration, load func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load(ctx)
		}
	}
}
