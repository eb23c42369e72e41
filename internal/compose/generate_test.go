package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"stackctl/internal/catalog"
	"stackctl/internal/config"
	"stackctl/internal/resolver"
)

func testContext(t *testing.T) config.Context {
	t.Helper()
	ctx, err := config.NewContext(config.Settings{
		PUID:        "1000",
		PGID:        "1000",
		Timezone:    "Europe/Berlin",
		DataRoot:    "/srv/data",
		ConfigRoot:  "/srv/config",
		InstallRoot: "/srv/stack",
		DBUser:      "stack",
		DBPassword:  "secret",
	})
	require.NoError(t, err)
	return ctx
}

func generatorCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.ServiceDescriptor{
		{
			ID:       "sonarr",
			Image:    "lscr.io/linuxserver/sonarr:4.0.10",
			Category: catalog.CategoryMediaManagement,
			Ports:    []catalog.PortSpec{{Port: 8989, Protocol: catalog.ProtocolTCP}},
			Volumes: []catalog.VolumeSpec{
				{HostPath: "${CONFIG_ROOT}/sonarr", ContainerPath: "/config"},
				{HostPath: "${DATA_ROOT}/tv", ContainerPath: "/tv", Mode: "ro"},
			},
			Env: []catalog.EnvVar{
				{Name: "PUID", Value: "${PUID}"},
				{Name: "TZ", Value: "${TZ}"},
			},
		},
		{
			ID:       "jellystat",
			Image:    "cyfershepard/jellystat:1.1.1",
			Category: catalog.CategoryMonitoring,
			Ports:    []catalog.PortSpec{{Port: 3000, Protocol: catalog.ProtocolTCP}},
			Env: []catalog.EnvVar{
				{Name: "POSTGRES_USER", Value: "${DB_USER}"},
				{Name: "POSTGRES_PASSWORD", Value: "${DB_PASSWORD}"},
			},
			DependsOn: []string{"postgres"},
		},
		{
			ID:       "postgres",
			Image:    "postgres:16.6-alpine",
			Category: catalog.CategoryDatabase,
			Ports:    []catalog.PortSpec{{Port: 5432, Protocol: catalog.ProtocolTCP}},
			NamedVolumes: []catalog.NamedVolumeSpec{
				{Name: "postgres-data", ContainerPath: "/var/lib/postgresql/data"},
			},
			Env: []catalog.EnvVar{
				{Name: "POSTGRES_USER", Value: "${DB_USER}"},
				{Name: "POSTGRES_PASSWORD", Value: "${DB_PASSWORD}"},
			},
			DatabaseTier: true,
		},
		{
			ID:       "qbittorrent",
			Image:    "lscr.io/linuxserver/qbittorrent:5.0.3",
			Category: catalog.CategoryDownloadClient,
			Ports: []catalog.PortSpec{
				{Port: 8080, Protocol: catalog.ProtocolTCP},
				{Port: 6881, Protocol: catalog.ProtocolUDP},
			},
		},
		{
			ID:       "authelia",
			Image:    "authelia/authelia:4.38.19",
			Category: catalog.CategoryProxySecurity,
			Ports:    []catalog.PortSpec{{Port: 9091, Protocol: catalog.ProtocolTCP}},
			Env: []catalog.EnvVar{
				{Name: "TZ", Value: "${TZ}"},
				{Name: "AUTHELIA_DEFAULT_REDIRECTION_URL", Value: "https://${DOMAIN}"},
			},
		},
	})
	require.NoError(t, err)
	return c
}

func mustResolve(t *testing.T, c *catalog.Catalog, ids ...string) resolver.Selection {
	t.Helper()
	sel, err := resolver.Resolve(c, ids)
	require.NoError(t, err)
	return sel
}

func TestGenerate_BasicService(t *testing.T) {
	c := generatorCatalog(t)
	m, err := Generate(c, mustResolve(t, c, "sonarr"), testContext(t))
	require.NoError(t, err)

	svc, ok := m.Project.Services["sonarr"]
	require.True(t, ok)
	assert.Equal(t, "lscr.io/linuxserver/sonarr:4.0.10", svc.Image)
	assert.Equal(t, "sonarr", svc.ContainerName)
	assert.Equal(t, "unless-stopped", svc.Restart)
	assert.Equal(t, []string{SharedNetwork}, svc.Networks)
	assert.Equal(t, []string{"8989:8989"}, svc.Ports)
	assert.Equal(t, []string{
		"/srv/config/sonarr:/config",
		"/srv/data/tv:/tv:ro",
	}, svc.Volumes)
	assert.Equal(t, map[string]string{
		"PUID": "1000",
		"TZ":   "Europe/Berlin",
	}, svc.Environment)

	// No database tier selected: single shared network, no named volumes.
	assert.Len(t, m.Project.Networks, 1)
	assert.Empty(t, m.Project.Volumes)
}

func TestGenerate_DatabaseTier(t *testing.T) {
	c := generatorCatalog(t)
	m, err := Generate(c, mustResolve(t, c, "jellystat"), testContext(t))
	require.NoError(t, err)

	// Selection closed over postgres.
	require.Contains(t, m.Project.Services, "postgres")
	require.Contains(t, m.Project.Services, "jellystat")

	pg := m.Project.Services["postgres"]
	assert.ElementsMatch(t, []string{SharedNetwork, DatabaseNetwork}, pg.Networks)
	assert.Equal(t, []string{"postgres-data:/var/lib/postgresql/data"}, pg.Volumes)
	require.NotNil(t, pg.Healthcheck)
	assert.Equal(t, "CMD-SHELL", pg.Healthcheck.Test[0])

	js := m.Project.Services["jellystat"]
	assert.Contains(t, js.Networks, DatabaseNetwork)
	assert.Equal(t, []string{"postgres"}, js.DependsOn)
	assert.Equal(t, "secret", js.Environment["POSTGRES_PASSWORD"])

	net, ok := m.Project.Networks[DatabaseNetwork]
	require.True(t, ok)
	assert.True(t, net.Internal)

	_, ok = m.Project.Volumes["postgres-data"]
	assert.True(t, ok)
}

func TestGenerate_UDPPortSuffix(t *testing.T) {
	c := generatorCatalog(t)
	m, err := Generate(c, mustResolve(t, c, "qbittorrent"), testContext(t))
	require.NoError(t, err)

	svc := m.Project.Services["qbittorrent"]
	assert.Equal(t, []string{"8080:8080", "6881:6881/udp"}, svc.Ports)
}

func TestGenerate_TraefikLabelsOnlyWithDomain(t *testing.T) {
	c := generatorCatalog(t)

	m, err := Generate(c, mustResolve(t, c, "sonarr"), testContext(t))
	require.NoError(t, err)
	assert.Empty(t, m.Project.Services["sonarr"].Labels)

	ctx := testContext(t)
	ctx.Domain = "example.home"
	m, err = Generate(c, mustResolve(t, c, "sonarr"), ctx)
	require.NoError(t, err)

	labels := m.Project.Services["sonarr"].Labels
	assert.Equal(t, "true", labels["traefik.enable"])
	assert.Equal(t, "Host(`sonarr.example.home`)", labels["traefik.http.routers.sonarr.rule"])
	assert.Equal(t, "8989", labels["traefik.http.services.sonarr.loadbalancer.server.port"])
}

func TestGenerate_DomainTemplatedEnvDroppedWithoutDomain(t *testing.T) {
	c := generatorCatalog(t)

	m, err := Generate(c, mustResolve(t, c, "authelia"), testContext(t))
	require.NoError(t, err)

	env := m.Project.Services["authelia"].Environment
	assert.Equal(t, "Europe/Berlin", env["TZ"])
	assert.NotContains(t, env, "AUTHELIA_DEFAULT_REDIRECTION_URL",
		"no domain must not yield a dangling https:// value")

	ctx := testContext(t)
	ctx.Domain = "example.home"
	m, err = Generate(c, mustResolve(t, c, "authelia"), ctx)
	require.NoError(t, err)

	env = m.Project.Services["authelia"].Environment
	assert.Equal(t, "https://example.home", env["AUTHELIA_DEFAULT_REDIRECTION_URL"])
}

func TestGenerate_Deterministic(t *testing.T) {
	c := generatorCatalog(t)
	ctx := testContext(t)
	ctx.Domain = "example.home"
	sel := mustResolve(t, c, "jellystat", "sonarr", "qbittorrent", "authelia")

	first, err := Generate(c, sel, ctx)
	require.NoError(t, err)
	firstBytes, err := first.Render()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Generate(c, sel, ctx)
		require.NoError(t, err)
		againBytes, err := again.Render()
		require.NoError(t, err)
		assert.Equal(t, firstBytes, againBytes, "render %d differs", i)
	}
}

func TestGenerate_RenderIsValidYAML(t *testing.T) {
	c := generatorCatalog(t)
	m, err := Generate(c, mustResolve(t, c, "jellystat", "sonarr"), testContext(t))
	require.NoError(t, err)

	data, err := m.Render()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "services")
	assert.Contains(t, decoded, "networks")
}

func TestGenerate_UnknownTemplateVariableFails(t *testing.T) {
	c, err := catalog.New([]catalog.ServiceDescriptor{
		{
			ID:       "broken",
			Image:    "example/broken:1.0.0",
			Category: catalog.CategoryMonitoring,
			Volumes: []catalog.VolumeSpec{
				{HostPath: "${NOT_A_VAR}/broken", ContainerPath: "/config"},
			},
		},
	})
	require.NoError(t, err)

	_, err = Generate(c, mustResolve(t, c, "broken"), testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_A_VAR")
}

func TestAuxFiles_DatabaseBootstrap(t *testing.T) {
	c := generatorCatalog(t)
	m, err := Generate(c, mustResolve(t, c, "jellystat"), testContext(t))
	require.NoError(t, err)

	require.Len(t, m.Aux, 1)
	aux := m.Aux[0]
	assert.Equal(t, "postgres", aux.ServiceID)
	assert.Equal(t, filepath.Join("initdb", "01-create-databases.sh"), aux.Path)
	assert.Contains(t, string(aux.Content), "createdb")
	assert.Contains(t, string(aux.Content), "jellystat")
}

func TestAuxFiles_AccessControlNeedsDomain(t *testing.T) {
	c := generatorCatalog(t)

	m, err := Generate(c, mustResolve(t, c, "authelia"), testContext(t))
	require.NoError(t, err)
	assert.Empty(t, m.Aux, "no domain, no policy artifact")

	ctx := testContext(t)
	ctx.Domain = "example.home"
	m, err = Generate(c, mustResolve(t, c, "authelia"), ctx)
	require.NoError(t, err)
	require.Len(t, m.Aux, 1)
	assert.Equal(t, "access-control.yaml", m.Aux[0].Path)
	assert.Contains(t, string(m.Aux[0].Content), "*.example.home")
}

func TestWriteAux_SkipsExistingFiles(t *testing.T) {
	tempDir := t.TempDir()
	ctx := testContext(t)
	ctx.ConfigRoot = tempDir

	files := []AuxFile{
		{ServiceID: "postgres", Path: "initdb/01-create-databases.sh", Content: []byte("generated")},
	}

	written, err := WriteAux(files, ctx)
	require.NoError(t, err)
	require.Len(t, written, 1)

	target := filepath.Join(tempDir, "postgres", "initdb", "01-create-databases.sh")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "generated", string(data))

	// Simulate an operator edit; regeneration must not destroy it.
	require.NoError(t, os.WriteFile(target, []byte("edited by hand"), 0644))

	written, err = WriteAux(files, ctx)
	require.NoError(t, err)
	assert.Empty(t, written)

	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "edited by hand", string(data))
}
