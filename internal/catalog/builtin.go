package catalog

// Builtin returns the descriptors for the stock homelab stack. Host path
// and environment templates reference configuration context variables
// (${CONFIG_ROOT}, ${DATA_ROOT}, ${PUID}, ${PGID}, ${TZ}, ${DOMAIN}) that
// are expanded at manifest generation time.
//
// Container ports double as published host ports, so the stock set is kept
// collision-free: services whose upstream default clashes with another
// stock service (homepage, uptime-kuma, sabnzbd) are shifted to the port
// their docs recommend for side-by-side installs.
func Builtin() []ServiceDescriptor {
	linuxserverEnv := []EnvVar{
		{Name: "PUID", Value: "${PUID}"},
		{Name: "PGID", Value: "${PGID}"},
		{Name: "TZ", Value: "${TZ}"},
	}

	return []ServiceDescriptor{
		{
			ID:       "sonarr",
			Image:    "lscr.io/linuxserver/sonarr:4.0.10",
			Category: CategoryMediaManagement,
			Ports:    []PortSpec{{Port: 8989, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/sonarr", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/tv", ContainerPath: "/tv"},
				{HostPath: "${DATA_ROOT}/downloads", ContainerPath: "/downloads"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "radarr",
			Image:    "lscr.io/linuxserver/radarr:5.14.0",
			Category: CategoryMediaManagement,
			Ports:    []PortSpec{{Port: 7878, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/radarr", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/movies", ContainerPath: "/movies"},
				{HostPath: "${DATA_ROOT}/downloads", ContainerPath: "/downloads"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "lidarr",
			Image:    "lscr.io/linuxserver/lidarr:2.8.2",
			Category: CategoryMediaManagement,
			Ports:    []PortSpec{{Port: 8686, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/lidarr", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/music", ContainerPath: "/music"},
				{HostPath: "${DATA_ROOT}/downloads", ContainerPath: "/downloads"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "bazarr",
			Image:    "lscr.io/linuxserver/bazarr:1.5.1",
			Category: CategoryMediaManagement,
			Ports:    []PortSpec{{Port: 6767, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/bazarr", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/movies", ContainerPath: "/movies"},
				{HostPath: "${DATA_ROOT}/tv", ContainerPath: "/tv"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "prowlarr",
			Image:    "lscr.io/linuxserver/prowlarr:1.30.2",
			Category: CategoryMediaManagement,
			Ports:    []PortSpec{{Port: 9696, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/prowlarr", ContainerPath: "/config"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "qbittorrent",
			Image:    "lscr.io/linuxserver/qbittorrent:5.0.3",
			Category: CategoryDownloadClient,
			Ports: []PortSpec{
				{Port: 8080, Protocol: ProtocolTCP},
				{Port: 6881, Protocol: ProtocolTCP},
				{Port: 6881, Protocol: ProtocolUDP},
			},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/qbittorrent", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/downloads", ContainerPath: "/downloads"},
			},
			Env: append([]EnvVar{{Name: "WEBUI_PORT", Value: "8080"}}, linuxserverEnv...),
		},
		{
			ID:       "sabnzbd",
			Image:    "lscr.io/linuxserver/sabnzbd:4.4.1",
			Category: CategoryDownloadClient,
			Ports:    []PortSpec{{Port: 8081, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/sabnzbd", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/downloads", ContainerPath: "/downloads"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "jellyfin",
			Image:    "lscr.io/linuxserver/jellyfin:10.10.3",
			Category: CategoryMediaServer,
			Ports: []PortSpec{
				{Port: 8096, Protocol: ProtocolTCP},
				{Port: 7359, Protocol: ProtocolUDP},
			},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/jellyfin", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/tv", ContainerPath: "/data/tvshows", Mode: "ro"},
				{HostPath: "${DATA_ROOT}/movies", ContainerPath: "/data/movies", Mode: "ro"},
				{HostPath: "${DATA_ROOT}/music", ContainerPath: "/data/music", Mode: "ro"},
			},
			Env: linuxserverEnv,
		},
		{
			ID:       "jellyseerr",
			Image:    "fallenbagel/jellyseerr:2.3.0",
			Category: CategoryRequestManagement,
			Ports:    []PortSpec{{Port: 5055, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/jellyseerr", ContainerPath: "/app/config"},
			},
			Env: []EnvVar{{Name: "TZ", Value: "${TZ}"}},
		},
		{
			ID:       "jellystat",
			Image:    "cyfershepard/jellystat:1.1.1",
			Category: CategoryMonitoring,
			Ports:    []PortSpec{{Port: 3000, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/jellystat/backups", ContainerPath: "/app/backend/backup-data"},
			},
			Env: []EnvVar{
				{Name: "TZ", Value: "${TZ}"},
				{Name: "POSTGRES_IP", Value: "postgres"},
				{Name: "POSTGRES_PORT", Value: "5432"},
				{Name: "POSTGRES_USER", Value: "${DB_USER}"},
				{Name: "POSTGRES_PASSWORD", Value: "${DB_PASSWORD}"},
			},
			DependsOn: []string{"postgres"},
		},
		{
			ID:       "postgres",
			Image:    "postgres:16.6-alpine",
			Category: CategoryDatabase,
			Ports:    []PortSpec{{Port: 5432, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/postgres/initdb", ContainerPath: "/docker-entrypoint-initdb.d", Mode: "ro"},
			},
			NamedVolumes: []NamedVolumeSpec{
				{Name: "postgres-data", ContainerPath: "/var/lib/postgresql/data"},
			},
			Env: []EnvVar{
				{Name: "TZ", Value: "${TZ}"},
				{Name: "POSTGRES_USER", Value: "${DB_USER}"},
				{Name: "POSTGRES_PASSWORD", Value: "${DB_PASSWORD}"},
			},
			DatabaseTier: true,
		},
		{
			ID:       "traefik",
			Image:    "traefik:v3.3.2",
			Category: CategoryProxySecurity,
			Ports: []PortSpec{
				{Port: 80, Protocol: ProtocolTCP},
				{Port: 443, Protocol: ProtocolTCP},
			},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/traefik", ContainerPath: "/etc/traefik"},
				{HostPath: "/var/run/docker.sock", ContainerPath: "/var/run/docker.sock", Mode: "ro"},
			},
			Env: []EnvVar{{Name: "TZ", Value: "${TZ}"}},
		},
		{
			ID:       "authelia",
			Image:    "authelia/authelia:4.38.19",
			Category: CategoryProxySecurity,
			Ports:    []PortSpec{{Port: 9091, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/authelia", ContainerPath: "/config"},
			},
			Env: []EnvVar{
				{Name: "TZ", Value: "${TZ}"},
				{Name: "AUTHELIA_DEFAULT_REDIRECTION_URL", Value: "https://${DOMAIN}"},
			},
			DependsOn: []string{"traefik"},
		},
		{
			ID:       "homepage",
			Image:    "ghcr.io/gethomepage/homepage:v0.10.9",
			Category: CategoryMonitoring,
			Ports:    []PortSpec{{Port: 3001, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/homepage", ContainerPath: "/app/config"},
				{HostPath: "/var/run/docker.sock", ContainerPath: "/var/run/docker.sock", Mode: "ro"},
			},
			Env: []EnvVar{{Name: "PUID", Value: "${PUID}"}, {Name: "PGID", Value: "${PGID}"}},
		},
		{
			ID:       "uptime-kuma",
			Image:    "louislam/uptime-kuma:1.23.16",
			Category: CategoryMonitoring,
			Ports:    []PortSpec{{Port: 3002, Protocol: ProtocolTCP}},
			Volumes: []VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/uptime-kuma", ContainerPath: "/app/data"},
			},
		},
		{
			ID:       "watchtower",
			Image:    "containrrr/watchtower:1.7.1",
			Category: CategoryMonitoring,
			Volumes: []VolumeSpec{
				{HostPath: "/var/run/docker.sock", ContainerPath: "/var/run/docker.sock"},
			},
			Env: []EnvVar{
				{Name: "TZ", Value: "${TZ}"},
				{Name: "WATCHTOWER_CLEANUP", Value: "true"},
			},
		},
	}
}
