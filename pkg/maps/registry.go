package maps

import (
	"fmt"
	"sort"
)

// entityRegistry maps identifiers to the controllers of one entity kind.
// It is not safe for concurrent use; the owning Controller serializes access.
type entityRegistry[C any] struct {
	kind    string
	entries map[string]C
}

func newEntityRegistry[C any](kind string) *entityRegistry[C] {
	return &entityRegistry[C]{kind: kind, entries: make(map[string]C)}
}

func (r *entityRegistry[C]) insert(id string, c C) error {
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateIdentifier, r.kind, id)
	}
	r.entries[id] = c
	return nil
}

func (r *entityRegistry[C]) get(id string) (C, error) {
	c, ok := r.entries[id]
	if !ok {
		var zero C
		return zero, fmt.Errorf("%w: Unknown %s: %s", ErrUnknownIdentifier, r.kind, id)
	}
	return c, nil
}

// lookup is get without the error, for native callbacks that race removal.
func (r *entityRegistry[C]) lookup(id string) (C, bool) {
	c, ok := r.entries[id]
	return c, ok
}

// remove detaches the controller for id. Absent ids are not an error.
func (r *entityRegistry[C]) remove(id string) (C, bool) {
	c, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return c, ok
}

func (r *entityRegistry[C]) len() int {
	return len(r.entries)
}

// ids returns the live identifiers in sorted order.
func (r *entityRegistry[C]) ids() []string {
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
