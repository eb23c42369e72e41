package cmd

import (
	"testing"

	"stackctl/internal/catalog"
	"stackctl/internal/config"
)

func TestServiceURL(t *testing.T) {
	web := &catalog.ServiceDescriptor{
		ID:    "sonarr",
		Ports: []catalog.PortSpec{{Port: 8989, Protocol: catalog.ProtocolTCP}},
	}
	udpOnly := &catalog.ServiceDescriptor{
		ID:    "beacon",
		Ports: []catalog.PortSpec{{Port: 7359, Protocol: catalog.ProtocolUDP}},
	}
	portless := &catalog.ServiceDescriptor{ID: "watchtower"}

	if got := serviceURL(web, config.Context{}); got != "http://localhost:8989" {
		t.Errorf("Expected localhost URL, got %q", got)
	}

	if got := serviceURL(web, config.Context{Domain: "home.example.com"}); got != "https://sonarr.home.example.com" {
		t.Errorf("Expected proxied URL, got %q", got)
	}

	if got := serviceURL(udpOnly, config.Context{}); got != "" {
		t.Errorf("Expected no URL for UDP-only service, got %q", got)
	}

	if got := serviceURL(portless, config.Context{}); got != "" {
		t.Errorf("Expected no URL for portless service, got %q", got)
	}
}

func TestFormatPorts(t *testing.T) {
	d := &catalog.ServiceDescriptor{
		Ports: []catalog.PortSpec{
			{Port: 8080, Protocol: catalog.ProtocolTCP},
			{Port: 6881, Protocol: catalog.ProtocolUDP},
		},
	}
	if got := formatPorts(d); got != "8080/tcp, 6881/udp" {
		t.Errorf("Expected formatted port list, got %q", got)
	}

	if got := formatPorts(&catalog.ServiceDescriptor{}); got != "-" {
		t.Errorf("Expected dash for portless service, got %q", got)
	}
}
