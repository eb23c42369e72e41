package catalog

// Category groups services for presentation purposes only. Resolution and
// generation logic never branch on it, with the single exception of the
// database tier flag below.
type Category string

const (
	CategoryMediaManagement   Category = "media-management"
	CategoryDownloadClient    Category = "download-client"
	CategoryMediaServer       Category = "media-server"
	CategoryRequestManagement Category = "request-management"
	CategoryProxySecurity     Category = "proxy-security"
	CategoryMonitoring        Category = "monitoring"
	CategoryDatabase          Category = "database"
)

// Protocol is the transport protocol of an exposed port.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// PortSpec describes one exposed port. The first PortSpec in a descriptor's
// list is the primary port, used for readiness probes and service URLs.
type PortSpec struct {
	Port     int      `yaml:"port"`
	Protocol Protocol `yaml:"protocol"`
}

// VolumeSpec describes a bind mount. HostPath may contain ${...} template
// references that are expanded against the configuration context at
// manifest generation time (e.g. "${CONFIG_ROOT}/sonarr").
type VolumeSpec struct {
	HostPath      string `yaml:"hostPath"`
	ContainerPath string `yaml:"containerPath"`
	Mode          string `yaml:"mode,omitempty"` // "rw" (default) or "ro"
}

// NamedVolumeSpec describes engine-managed storage, used by services whose
// data should not live on a host bind mount (the database tier).
type NamedVolumeSpec struct {
	Name          string `yaml:"name"`
	ContainerPath string `yaml:"containerPath"`
}

// EnvVar is an environment variable the descriptor injects into its
// container. Value may be templated against the configuration context.
type EnvVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// ServiceDescriptor is the static metadata for one installable service.
// Descriptors are immutable after catalog construction.
type ServiceDescriptor struct {
	// ID is the unique, stable key joining this service across the
	// resolver, checker, generator and orchestrator.
	ID string `yaml:"id"`

	// Image is the full, version-pinned image coordinate. Floating tags
	// such as "latest" are rejected by catalog validation.
	Image string `yaml:"image"`

	Ports        []PortSpec        `yaml:"ports,omitempty"`
	Volumes      []VolumeSpec      `yaml:"volumes,omitempty"`
	NamedVolumes []NamedVolumeSpec `yaml:"namedVolumes,omitempty"`
	Env          []EnvVar          `yaml:"env,omitempty"`
	Category     Category          `yaml:"category"`

	// DependsOn lists ids of services that must be present whenever this
	// service is selected.
	DependsOn []string `yaml:"dependsOn,omitempty"`

	// DatabaseTier marks the one true special case: services carrying it
	// join the isolated database network in addition to the shared one.
	DatabaseTier bool `yaml:"databaseTier,omitempty"`
}

// PrimaryPort returns the service's primary port, or false if the service
// exposes no ports at all (e.g. a pure background worker like watchtower).
func (d *ServiceDescriptor) PrimaryPort() (PortSpec, bool) {
	if len(d.Ports) == 0 {
		return PortSpec{}, false
	}
	return d.Ports[0], true
}
