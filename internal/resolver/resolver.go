// Package resolver computes the dependency closure of a requested set of
// services against the catalog. It is a pure function of its inputs: no
// state, no side effects, deterministic output.
package resolver

import (
	"fmt"
	"sort"

	"stackctl/internal/catalog"
	"stackctl/pkg/logging"
)

// Selection is a dependency-closed, duplicate-free, deterministically
// ordered set of service ids. It is never mutated after creation.
type Selection struct {
	// IDs holds every selected service in lexicographic order. Ordering by
	// a fixed total order (never insertion order) is what makes repeated
	// runs against the same input produce byte-identical manifests.
	IDs []string

	// ImplicitlyAdded lists the subset of IDs that were pulled in as
	// dependencies rather than explicitly requested, so the caller can
	// surface them to the operator.
	ImplicitlyAdded []string
}

// Contains reports whether id is part of the selection.
func (s Selection) Contains(id string) bool {
	i := sort.SearchStrings(s.IDs, id)
	return i < len(s.IDs) && s.IDs[i] == id
}

// UnknownServiceError reports a requested id that is absent from the
// catalog. Resolution fails before any closure work happens.
type UnknownServiceError struct {
	ID string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.ID)
}

// Resolve computes the minimal dependency-closed selection containing every
// requested id. The closure is a fixed-point iteration over the dependency
// relation; it terminates because catalog validation guarantees the graph
// is acyclic. Resolve is idempotent: feeding a resulting selection back in
// as the request yields the same selection with no implicit additions.
func Resolve(cat *catalog.Catalog, requested []string) (Selection, error) {
	explicit := make(map[string]bool, len(requested))
	for _, id := range requested {
		if _, ok := cat.Lookup(id); !ok {
			return Selection{}, &UnknownServiceError{ID: id}
		}
		explicit[id] = true
	}

	included := make(map[string]bool, len(explicit))
	queue := make([]string, 0, len(explicit))
	for id := range explicit {
		included[id] = true
		queue = append(queue, id)
	}
	// Deterministic traversal keeps debug logs stable; the output ordering
	// below does not depend on it.
	sort.Strings(queue)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		d, ok := cat.Lookup(id)
		if !ok {
			// Unreachable for a validated catalog.
			return Selection{}, &UnknownServiceError{ID: id}
		}
		for _, dep := range d.DependsOn {
			if !included[dep] {
				included[dep] = true
				queue = append(queue, dep)
				logging.Debug("Resolver", "Service %s pulled in dependency %s", id, dep)
			}
		}
	}

	sel := Selection{
		IDs: make([]string, 0, len(included)),
	}
	for id := range included {
		sel.IDs = append(sel.IDs, id)
		if !explicit[id] {
			sel.ImplicitlyAdded = append(sel.ImplicitlyAdded, id)
		}
	}
	sort.Strings(sel.IDs)
	sort.Strings(sel.ImplicitlyAdded)

	return sel, nil
}

// Descriptors returns the descriptors for a selection in selection order.
// The selection must have been produced by Resolve against the same
// catalog.
func Descriptors(cat *catalog.Catalog, sel Selection) ([]*catalog.ServiceDescriptor, error) {
	out := make([]*catalog.ServiceDescriptor, 0, len(sel.IDs))
	for _, id := range sel.IDs {
		d, ok := cat.Lookup(id)
		if !ok {
			return nil, &UnknownServiceError{ID: id}
		}
		out = append(out, d)
	}
	return out, nil
}
