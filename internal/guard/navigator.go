package guard

import (
	"context"
	"sync"

	"github.com/me/gestion/pkg/model"
)

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(ctx context.Context, page model.Page)
}

// Recorder is a Navigator that remembers where it was sent.
type Recorder struct {
	mu      sync.Mutex
	targets []model.Page
}

// Navigate records page.
func (r *Recorder) Navigate(_ context.Context, page model.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, page)
}

// Last returns the most recent target, or "" if none.
func (r *Recorder) Last() model.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return ""
	}
	return r.targets[len(r.targets)-1]
}

// Targets returns every recorded target in order.
func (r *Recorder) Targets() []model.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Page, len(r.targets))
	copy(out, r.targets)
	return out
}
