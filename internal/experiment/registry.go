package experiment

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide table of experiments. It is append-only
// with respect to identifiers: experiments are never removed.
type Registry struct {
	mu          sync.RWMutex
	experiments map[string]*Experiment
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{experiments: make(map[string]*Experiment)}
}

// Add inserts an experiment, rejecting duplicate ids. The lock guards
// only the uniqueness check and insertion; experiment operations
// themselves run under each experiment's own mutex.
func (r *Registry) Add(e *Experiment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.experiments[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExperiment, e.ID)
	}
	r.experiments[e.ID] = e
	return nil
}

// Get looks up an experiment by id.
func (r *Registry) Get(id string) (*Experiment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.experiments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExperimentNotFound, id)
	}
	return e, nil
}

// IDs returns all experiment ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.experiments))
	for id := range r.experiments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Experiments returns all registered experiments, ordered by id.
func (r *Registry) Experiments() []*Experiment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.experiments))
	for id := range r.experiments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Experiment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.experiments[id])
	}
	return out
}

// Len returns the number of registered experiments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.experiments)
}
