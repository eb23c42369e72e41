// Package compose renders a resolved selection into a docker-compose
// project document. Generation is a pure function of (selection, context):
// the same inputs always produce byte-identical YAML, which lets callers
// diff a freshly rendered manifest against the one on disk before applying
// it.
package compose

import "sort"

// Network names used by every generated project. All services share one
// bridge network; services flagged as database tier additionally join an
// internal network that is unreachable from outside the engine.
const (
	SharedNetwork   = "stackctl"
	DatabaseNetwork = "stackctl-db"
)

// Project is the structured manifest document. Field order is fixed by the
// struct definitions and map keys are emitted sorted, so marshaling is
// deterministic.
type Project struct {
	Networks map[string]Network `yaml:"networks"`
	Services map[string]Service `yaml:"services"`
	Volumes  map[string]Volume  `yaml:"volumes,omitempty"`
}

// Network is one compose network definition.
type Network struct {
	Driver   string `yaml:"driver,omitempty"`
	Internal bool   `yaml:"internal,omitempty"`
}

// Service is one compose service entry, built from a ServiceDescriptor and
// the configuration context.
type Service struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	Networks      []string          `yaml:"networks"`
	Ports         []string          `yaml:"ports,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty"`
	Healthcheck   *Healthcheck      `yaml:"healthcheck,omitempty"`
}

// Healthcheck is a compose health probe definition.
type Healthcheck struct {
	Test     []string `yaml:"test"`
	Interval string   `yaml:"interval,omitempty"`
	Timeout  string   `yaml:"timeout,omitempty"`
	Retries  int      `yaml:"retries,omitempty"`
}

// Volume is one engine-managed named volume. Compose accepts an empty
// mapping, which is what we emit.
type Volume struct{}

// ServiceIDs returns the project's service names sorted.
func (p *Project) ServiceIDs() []string {
	ids := make([]string, 0, len(p.Services))
	for id := range p.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
