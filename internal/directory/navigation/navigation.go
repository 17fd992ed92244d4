// Package navigation names the two screens of the directory and records moves between them.
package navigation

import "sync"

// Route identifies a screen.
type Route string

const (
	RouteForm Route = "/form"
	RouteList Route = "/list"
)

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(to Route)
}

// History is a Navigator that remembers every route it was sent to.
type History struct {
	mu     sync.Mutex
	routes []Route
}

func (h *History) Navigate(to Route) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, to)
}

// Current returns the last route, or "" if none.
func (h *History) Current() Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return ""
	}
	return h.routes[len(h.routes)-1]
}

// Routes returns every route in order.
func (h *History) Routes() []Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Route(nil), h.routes...)
}
