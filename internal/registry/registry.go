package registry

import "sync"

// Member is the view the registry has of a running operation. Concrete
// operation types register themselves on start and deregister when
// they reach a terminal status.
type Member interface {
	ID() string
	// Stop requests cooperative cancellation. remove asks the host to
	// detach the operation from its container afterwards; cleanup asks
	// for partial output files to be deleted.
	Stop(remove, cleanup bool) bool
}

// Registry is the process-wide set of currently running operations.
// It is safe for concurrent use from operation workers and callers.
type Registry struct {
	mu  sync.Mutex
	ops map[string]Member
}

// New creates an empty registry
func New() *Registry {
	return &Registry{ops: make(map[string]Member)}
}

// Add registers a running operation
func (r *Registry) Add(op Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.ID()] = op
}

// Remove deregisters an operation. Removing an operation that is not
// registered is a no-op.
func (r *Registry) Remove(op Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, op.ID())
}

// Contains reports whether the operation is currently registered
func (r *Registry) Contains(op Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ops[op.ID()]
	return ok
}

// Len returns the number of registered operations
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Active returns a snapshot of all registered operations
func (r *Registry) Active() []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	return out
}

// StopAll stops every registered operation, used for forced cleanup on
// shutdown. Stop calls run outside the registry lock since a stopping
// operation deregisters itself.
func (r *Registry) StopAll(cleanup bool) {
	for _, op := range r.Active() {
		op.Stop(false, cleanup)
	}
}
