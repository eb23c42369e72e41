package ports

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/catalog"
	"stackctl/internal/resolver"
)

func checkerCatalog(t *testing.T, descriptors ...catalog.ServiceDescriptor) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(descriptors)
	require.NoError(t, err)
	return c
}

func withPorts(id string, specs ...catalog.PortSpec) catalog.ServiceDescriptor {
	return catalog.ServiceDescriptor{
		ID:       id,
		Image:    "example/" + id + ":1.0.0",
		Category: catalog.CategoryMediaManagement,
		Ports:    specs,
	}
}

func TestCheck_NoConflicts(t *testing.T) {
	c := checkerCatalog(t,
		withPorts("sonarr", catalog.PortSpec{Port: 8989, Protocol: catalog.ProtocolTCP}),
		withPorts("radarr", catalog.PortSpec{Port: 7878, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"radarr", "sonarr"}}

	conflicts, err := Check(c, sel, nil)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheck_SameSelectionCollisionIsFatal(t *testing.T) {
	// Deliberately misconfigured: both claim 8989/tcp.
	c := checkerCatalog(t,
		withPorts("sonarr", catalog.PortSpec{Port: 8989, Protocol: catalog.ProtocolTCP}),
		withPorts("radarr", catalog.PortSpec{Port: 8989, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"radarr", "sonarr"}}

	conflicts, err := Check(c, sel, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	conflict := conflicts[0]
	assert.Equal(t, 8989, conflict.Port)
	assert.Equal(t, catalog.ProtocolTCP, conflict.Protocol)
	assert.Equal(t, SeverityFatal, conflict.Severity)
	assert.Equal(t, []string{"radarr", "sonarr"}, conflict.ServiceIDs)
	assert.True(t, HasFatal(conflicts))
}

func TestCheck_SamePortDifferentProtocolNoConflict(t *testing.T) {
	c := checkerCatalog(t,
		withPorts("a", catalog.PortSpec{Port: 6881, Protocol: catalog.ProtocolTCP}),
		withPorts("b", catalog.PortSpec{Port: 6881, Protocol: catalog.ProtocolUDP}),
	)
	sel := resolver.Selection{IDs: []string{"a", "b"}}

	conflicts, err := Check(c, sel, nil)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheck_HostCollisionIsWarning(t *testing.T) {
	c := checkerCatalog(t,
		withPorts("sonarr", catalog.PortSpec{Port: 8989, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"sonarr"}}
	bound := BoundSet{{Port: 8989, Protocol: catalog.ProtocolTCP}: true}

	conflicts, err := Check(c, sel, bound)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, []string{"sonarr"}, conflicts[0].ServiceIDs)
	assert.False(t, HasFatal(conflicts))
}

func TestCheck_FatalShadowsHostWarning(t *testing.T) {
	// When two selected services collide on a port that is also bound on
	// the host, one fatal conflict is reported, not a duplicate warning.
	c := checkerCatalog(t,
		withPorts("a", catalog.PortSpec{Port: 9000, Protocol: catalog.ProtocolTCP}),
		withPorts("b", catalog.PortSpec{Port: 9000, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"a", "b"}}
	bound := BoundSet{{Port: 9000, Protocol: catalog.ProtocolTCP}: true}

	conflicts, err := Check(c, sel, bound)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, SeverityFatal, conflicts[0].Severity)
}

func TestCheck_DeterministicOrdering(t *testing.T) {
	c := checkerCatalog(t,
		withPorts("a", catalog.PortSpec{Port: 9000, Protocol: catalog.ProtocolTCP}),
		withPorts("b", catalog.PortSpec{Port: 9000, Protocol: catalog.ProtocolTCP}),
		withPorts("c", catalog.PortSpec{Port: 8000, Protocol: catalog.ProtocolTCP}),
		withPorts("d", catalog.PortSpec{Port: 8000, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"a", "b", "c", "d"}}

	first, err := Check(c, sel, nil)
	require.NoError(t, err)
	second, err := Check(c, sel, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, 8000, first[0].Port)
	assert.Equal(t, 9000, first[1].Port)
}

func TestListenProber_DetectsBoundPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	c := checkerCatalog(t,
		withPorts("svc", catalog.PortSpec{Port: port, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"svc"}}

	prober := &ListenProber{Host: "127.0.0.1"}
	bound, err := prober.BoundPorts(sel, c)
	require.NoError(t, err)
	assert.True(t, bound[Key{Port: port, Protocol: catalog.ProtocolTCP}])
}

func TestListenProber_FreePortNotReported(t *testing.T) {
	// Grab a free port number, then release it before probing.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := checkerCatalog(t,
		withPorts("svc", catalog.PortSpec{Port: port, Protocol: catalog.ProtocolTCP}),
	)
	sel := resolver.Selection{IDs: []string{"svc"}}

	prober := &ListenProber{Host: "127.0.0.1"}
	bound, err := prober.BoundPorts(sel, c)
	require.NoError(t, err)
	assert.Empty(t, bound)
}
