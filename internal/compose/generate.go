package compose

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"stackctl/internal/catalog"
	"stackctl/internal/config"
	"stackctl/internal/resolver"
)

// Manifest bundles the rendered project with the auxiliary per-service
// configuration artifacts that accompany it. Both are produced purely;
// nothing is written to disk here.
type Manifest struct {
	Project *Project
	Aux     []AuxFile
}

// Generate builds the manifest for a resolved selection. It is
// deterministic: two calls with the same (selection, ctx) produce
// byte-identical Render output.
func Generate(cat *catalog.Catalog, sel resolver.Selection, ctx config.Context) (*Manifest, error) {
	descriptors, err := resolver.Descriptors(cat, sel)
	if err != nil {
		return nil, err
	}

	project := &Project{
		Networks: map[string]Network{
			SharedNetwork: {Driver: "bridge"},
		},
		Services: make(map[string]Service, len(descriptors)),
	}

	for _, d := range descriptors {
		svc, err := buildService(cat, d, sel, ctx)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", d.ID, err)
		}
		project.Services[d.ID] = svc

		if d.DatabaseTier {
			// The isolated network and the named-volume section exist only
			// when a database-tier service is actually selected.
			project.Networks[DatabaseNetwork] = Network{Driver: "bridge", Internal: true}
		}
		for _, nv := range d.NamedVolumes {
			if project.Volumes == nil {
				project.Volumes = make(map[string]Volume)
			}
			project.Volumes[nv.Name] = Volume{}
		}
	}

	aux, err := auxFiles(descriptors, ctx)
	if err != nil {
		return nil, err
	}

	return &Manifest{Project: project, Aux: aux}, nil
}

// Render marshals the project document to YAML.
func (m *Manifest) Render() ([]byte, error) {
	return yaml.Marshal(m.Project)
}

func buildService(cat *catalog.Catalog, d *catalog.ServiceDescriptor, sel resolver.Selection, ctx config.Context) (Service, error) {
	svc := Service{
		Image:         d.Image,
		ContainerName: d.ID,
		Restart:       "unless-stopped",
		Networks:      []string{SharedNetwork},
	}

	if d.DatabaseTier {
		svc.Networks = append(svc.Networks, DatabaseNetwork)
	} else {
		// Consumers of a database-tier service need to reach it over the
		// isolated network.
		for _, dep := range d.DependsOn {
			if depDesc, ok := cat.Lookup(dep); ok && depDesc.DatabaseTier && sel.Contains(dep) {
				svc.Networks = append(svc.Networks, DatabaseNetwork)
				break
			}
		}
	}

	for _, p := range d.Ports {
		if p.Protocol == catalog.ProtocolUDP {
			svc.Ports = append(svc.Ports, fmt.Sprintf("%d:%d/udp", p.Port, p.Port))
		} else {
			svc.Ports = append(svc.Ports, fmt.Sprintf("%d:%d", p.Port, p.Port))
		}
	}

	for _, v := range d.Volumes {
		hostPath, err := ctx.Expand(v.HostPath)
		if err != nil {
			return Service{}, err
		}
		entry := hostPath + ":" + v.ContainerPath
		if v.Mode != "" && v.Mode != "rw" {
			entry += ":" + v.Mode
		}
		svc.Volumes = append(svc.Volumes, entry)
	}
	for _, nv := range d.NamedVolumes {
		svc.Volumes = append(svc.Volumes, nv.Name+":"+nv.ContainerPath)
	}

	if len(d.Env) > 0 {
		svc.Environment = make(map[string]string, len(d.Env))
		for _, e := range d.Env {
			// Variables templated on the optional domain are dropped when
			// none is configured, like the reverse-proxy labels below;
			// expanding them would leave half-formed values ("https://").
			if ctx.Domain == "" && strings.Contains(e.Value, "${DOMAIN}") {
				continue
			}
			value, err := ctx.Expand(e.Value)
			if err != nil {
				return Service{}, err
			}
			svc.Environment[e.Name] = value
		}
		if len(svc.Environment) == 0 {
			svc.Environment = nil
		}
	}

	// Startup ordering stays with the engine: dependencies inside the
	// selection become depends_on directives, nothing more.
	for _, dep := range d.DependsOn {
		if sel.Contains(dep) {
			svc.DependsOn = append(svc.DependsOn, dep)
		}
	}
	sort.Strings(svc.DependsOn)

	if ctx.Domain != "" && !d.DatabaseTier {
		if p, ok := d.PrimaryPort(); ok && p.Protocol == catalog.ProtocolTCP {
			svc.Labels = map[string]string{
				"traefik.enable": "true",
				fmt.Sprintf("traefik.http.routers.%s.rule", d.ID):                      fmt.Sprintf("Host(`%s.%s`)", d.ID, ctx.Domain),
				fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", d.ID): fmt.Sprintf("%d", p.Port),
			}
		}
	}

	if d.DatabaseTier {
		svc.Healthcheck = &Healthcheck{
			Test:     []string{"CMD-SHELL", "pg_isready -U $${POSTGRES_USER}"},
			Interval: "10s",
			Timeout:  "5s",
			Retries:  5,
		}
	}

	return svc, nil
}
