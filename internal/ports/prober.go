package ports

import (
	"fmt"
	"net"

	"stackctl/internal/catalog"
	"stackctl/internal/resolver"
	"stackctl/pkg/logging"
)

// Prober supplies the set of host ports that are already bound. It is an
// external collaborator from the checker's point of view; Check itself
// never touches the network.
type Prober interface {
	BoundPorts(sel resolver.Selection, cat *catalog.Catalog) (BoundSet, error)
}

// ListenProber determines whether a port is free by briefly binding it.
// Only the ports the selection actually declares are probed, not the whole
// port space.
type ListenProber struct {
	// Host is the address probed; empty means all interfaces, matching
	// what the container engine will later try to bind.
	Host string
}

// BoundPorts probes every port declared by the selection and returns the
// subset that could not be bound. Probe errors other than "address in use"
// are treated as bound as well: if we cannot bind it now, neither can the
// engine later.
func (p *ListenProber) BoundPorts(sel resolver.Selection, cat *catalog.Catalog) (BoundSet, error) {
	bound := make(BoundSet)
	for _, id := range sel.IDs {
		d, ok := cat.Lookup(id)
		if !ok {
			return nil, &resolver.UnknownServiceError{ID: id}
		}
		for _, spec := range d.Ports {
			k := Key{Port: spec.Port, Protocol: spec.Protocol}
			if bound[k] {
				continue
			}
			if !p.free(k) {
				logging.Debug("PortProber", "Port %s is already bound on the host", k)
				bound[k] = true
			}
		}
	}
	return bound, nil
}

func (p *ListenProber) free(k Key) bool {
	addr := fmt.Sprintf("%s:%d", p.Host, k.Port)
	switch k.Protocol {
	case catalog.ProtocolUDP:
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
	default:
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = l.Close()
	}
	return true
}
