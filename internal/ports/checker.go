// Package ports detects port conflicts for a resolved selection, both
// between the selected services themselves and against ports already bound
// on the host. The checker mutates nothing and never aborts the pipeline;
// it returns data and leaves the continue/warn/abort decision to the
// caller. The one exception is encoded in severity: two selected services
// claiming the identical port/protocol pair cannot coexist without
// operator-chosen remapping, so such a conflict is always fatal.
package ports

import (
	"fmt"
	"sort"

	"stackctl/internal/catalog"
	"stackctl/internal/resolver"
)

// Severity ranks a conflict.
type Severity string

const (
	// SeverityFatal marks a conflict that cannot be resolved without
	// changing the catalog (same-selection collisions).
	SeverityFatal Severity = "fatal"
	// SeverityWarning marks a conflict the operator may choose to accept
	// or resolve out-of-band (host-level collisions).
	SeverityWarning Severity = "warning"
)

// Key identifies one bindable endpoint.
type Key struct {
	Port     int
	Protocol catalog.Protocol
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Port, k.Protocol)
}

// BoundSet is the set of ports currently bound on the host, supplied by an
// external probe (TCP/UDP listen attempts, running-container survey, ...).
type BoundSet map[Key]bool

// Conflict names a port clash. ServiceIDs holds every selected service
// claiming the port, sorted; for host-level conflicts it has one entry.
type Conflict struct {
	ServiceIDs []string
	Port       int
	Protocol   catalog.Protocol
	Severity   Severity
}

func (c Conflict) String() string {
	kind := "already bound on host"
	if c.Severity == SeverityFatal {
		kind = "claimed by multiple selected services"
	}
	return fmt.Sprintf("port %d/%s %s: %v", c.Port, c.Protocol, kind, c.ServiceIDs)
}

// HasFatal reports whether any conflict in the list is fatal.
func HasFatal(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Check inspects every port declared by the selection. Output ordering is
// deterministic: conflicts are sorted by port, then protocol.
func Check(cat *catalog.Catalog, sel resolver.Selection, bound BoundSet) ([]Conflict, error) {
	claimants := make(map[Key][]string)
	for _, id := range sel.IDs {
		d, ok := cat.Lookup(id)
		if !ok {
			return nil, &resolver.UnknownServiceError{ID: id}
		}
		for _, p := range d.Ports {
			k := Key{Port: p.Port, Protocol: p.Protocol}
			claimants[k] = append(claimants[k], id)
		}
	}

	var conflicts []Conflict
	for k, ids := range claimants {
		sort.Strings(ids)
		if len(ids) > 1 {
			conflicts = append(conflicts, Conflict{
				ServiceIDs: ids,
				Port:       k.Port,
				Protocol:   k.Protocol,
				Severity:   SeverityFatal,
			})
			continue
		}
		if bound[k] {
			conflicts = append(conflicts, Conflict{
				ServiceIDs: ids,
				Port:       k.Port,
				Protocol:   k.Protocol,
				Severity:   SeverityWarning,
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Port != conflicts[j].Port {
			return conflicts[i].Port < conflicts[j].Port
		}
		return conflicts[i].Protocol < conflicts[j].Protocol
	})
	return conflicts, nil
}
