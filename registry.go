package monitor

import (
	"slices"
	"sync"
)

// Registry holds matcher definitions bucketed by priority.
//
// Registry is safe for concurrent use: running matchers register
// continuations and temp matchers are removed while other dispatches are
// iterating. Iteration works on snapshots.
type Registry struct {
	mu      sync.RWMutex
	buckets map[int][]*Definition
	gen     uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[int][]*Definition)}
}

// Register appends d to the bucket for its priority.
func (r *Registry) Register(d *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	d.gen = r.gen
	r.buckets[d.Priority()] = append(r.buckets[d.Priority()], d)
}

// Remove deletes d from its bucket. It reports whether d was present;
// removing an absent definition is a no-op.
func (r *Registry) Remove(d *Definition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := r.buckets[d.Priority()]
	i := slices.Index(bucket, d)
	if i < 0 {
		return false
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(r.buckets, d.Priority())
	} else {
		r.buckets[d.Priority()] = bucket
	}
	return true
}

// Contains reports whether d is registered.
func (r *Registry) Contains(d *Definition) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.buckets[d.Priority()], d)
}

// Priorities returns the priorities that currently hold definitions, in
// ascending order.
func (r *Registry) Priorities() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.buckets))
	for p := range r.buckets {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Snapshot returns a copy of the definitions registered at priority.
func (r *Registry) Snapshot(priority int) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.buckets[priority])
}

// Generation returns a counter that grows with every Register call.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// snapshotAt is Snapshot restricted to definitions registered at or before
// generation gen.
func (r *Registry) snapshotAt(priority int, gen uint64) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for _, d := range r.buckets[priority] {
		if d.gen <= gen {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the total number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.buckets {
		n += len(b)
	}
	return n
}
