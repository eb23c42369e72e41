package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// DefectKind classifies a catalog validation failure.
type DefectKind string

const (
	DefectDuplicateID       DefectKind = "duplicate-id"
	DefectUnknownDependency DefectKind = "unknown-dependency"
	DefectDependencyCycle   DefectKind = "dependency-cycle"
	DefectDuplicatePort     DefectKind = "duplicate-port"
	DefectFloatingTag       DefectKind = "floating-tag"
	DefectMalformedEntry    DefectKind = "malformed-entry"
)

// Defect describes one problem found while validating catalog data.
// Any defect is a configuration error, not a runtime condition: a catalog
// with defects must never be used.
type Defect struct {
	Kind      DefectKind
	ServiceID string
	Detail    string
}

func (d Defect) String() string {
	return fmt.Sprintf("%s (%s): %s", d.ServiceID, d.Kind, d.Detail)
}

// Catalog is the read-only registry of all installable services. It is
// constructed once at startup via New and passed by reference into every
// component that needs lookups; nothing mutates it afterwards.
type Catalog struct {
	byID map[string]*ServiceDescriptor
	ids  []string // sorted, the fixed total order used everywhere
}

// New builds a Catalog from the given descriptors and validates it.
// A catalog with any defect is unusable, so New fails rather than
// returning a partially valid registry.
func New(descriptors []ServiceDescriptor) (*Catalog, error) {
	c := &Catalog{
		byID: make(map[string]*ServiceDescriptor, len(descriptors)),
		ids:  make([]string, 0, len(descriptors)),
	}

	var defects []Defect
	for i := range descriptors {
		d := descriptors[i]
		if _, dup := c.byID[d.ID]; dup {
			defects = append(defects, Defect{
				Kind:      DefectDuplicateID,
				ServiceID: d.ID,
				Detail:    "declared more than once",
			})
			continue
		}
		c.byID[d.ID] = &d
		c.ids = append(c.ids, d.ID)
	}
	sort.Strings(c.ids)

	defects = append(defects, c.validate()...)
	if len(defects) > 0 {
		return nil, &ValidationError{Defects: defects}
	}
	return c, nil
}

// Lookup returns the descriptor for id, or false if the id is unknown.
func (c *Catalog) Lookup(id string) (*ServiceDescriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// AllIDs returns every service id in the catalog's fixed total order
// (lexicographic). The returned slice is a copy.
func (c *Catalog) AllIDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of services in the catalog.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// validate checks every descriptor for structural defects: missing fields,
// floating image tags, dependencies on unknown ids, duplicate ports within
// a single descriptor, and cycles in the dependency graph.
func (c *Catalog) validate() []Defect {
	var defects []Defect

	for _, id := range c.ids {
		d := c.byID[id]

		if d.ID == "" || d.Image == "" || d.Category == "" {
			defects = append(defects, Defect{
				Kind:      DefectMalformedEntry,
				ServiceID: id,
				Detail:    "id, image and category are required",
			})
		}

		if tag := imageTag(d.Image); tag == "" || tag == "latest" {
			defects = append(defects, Defect{
				Kind:      DefectFloatingTag,
				ServiceID: id,
				Detail:    fmt.Sprintf("image %q must carry a pinned tag", d.Image),
			})
		}

		for _, dep := range d.DependsOn {
			if _, ok := c.byID[dep]; !ok {
				defects = append(defects, Defect{
					Kind:      DefectUnknownDependency,
					ServiceID: id,
					Detail:    fmt.Sprintf("depends on unknown service %q", dep),
				})
			}
		}

		seen := make(map[PortSpec]bool, len(d.Ports))
		for _, p := range d.Ports {
			if p.Protocol != ProtocolTCP && p.Protocol != ProtocolUDP {
				defects = append(defects, Defect{
					Kind:      DefectMalformedEntry,
					ServiceID: id,
					Detail:    fmt.Sprintf("port %d has invalid protocol %q", p.Port, p.Protocol),
				})
				continue
			}
			if seen[p] {
				defects = append(defects, Defect{
					Kind:      DefectDuplicatePort,
					ServiceID: id,
					Detail:    fmt.Sprintf("port %d/%s declared twice", p.Port, p.Protocol),
				})
			}
			seen[p] = true
		}
	}

	defects = append(defects, c.findCycles()...)
	return defects
}

// findCycles runs a three-color depth-first search over the dependency
// relation. Cycles are reported once, naming the full path.
func (c *Catalog) findCycles() []Defect {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)

	color := make(map[string]int, len(c.ids))
	var defects []Defect
	var path []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		path = append(path, id)

		d, ok := c.byID[id]
		if ok {
			for _, dep := range d.DependsOn {
				switch color[dep] {
				case white:
					if _, known := c.byID[dep]; known {
						visit(dep)
					}
				case gray:
					// Found a back edge; report the cycle from dep onward.
					start := 0
					for i, p := range path {
						if p == dep {
							start = i
							break
						}
					}
					cycle := append(append([]string{}, path[start:]...), dep)
					defects = append(defects, Defect{
						Kind:      DefectDependencyCycle,
						ServiceID: dep,
						Detail:    "cycle: " + strings.Join(cycle, " -> "),
					})
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
	}

	for _, id := range c.ids {
		if color[id] == white {
			visit(id)
		}
	}
	return defects
}

// imageTag extracts the tag portion of an image coordinate, accounting for
// registries that carry a port (e.g. "registry:5000/repo:tag").
func imageTag(image string) string {
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon <= slash {
		return ""
	}
	return image[colon+1:]
}

// ValidationError carries every defect found in a catalog. It is fatal:
// the caller must refuse to proceed rather than resolve against an
// incomplete or inconsistent graph.
type ValidationError struct {
	Defects []Defect
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		parts[i] = d.String()
	}
	return fmt.Sprintf("catalog validation failed with %d defect(s): %s",
		len(e.Defects), strings.Join(parts, "; "))
}
