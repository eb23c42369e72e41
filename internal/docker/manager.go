package docker

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"stackctl/internal/catalog"
	"stackctl/internal/ports"
	"stackctl/pkg/logging"
)

const pingTimeout = 5 * time.Second

// Manager implements Engine against the local Docker daemon.
type Manager struct {
	cli *client.Client
}

// NewManager creates a Manager from the environment (DOCKER_HOST et al),
// with API version negotiation so it works across daemon versions.
func NewManager() (*Manager, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Manager{cli: cli}, nil
}

// Close releases the underlying client.
func (m *Manager) Close() error {
	return m.cli.Close()
}

// Ping implements Engine.
func (m *Manager) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := m.cli.Ping(pctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// PullImage implements Engine. The reader must be drained for the pull to
// complete; progress detail is discarded, completion is what matters.
func (m *Manager) PullImage(ctx context.Context, ref string) error {
	logging.Debug("Docker", "Pulling image %s", ref)
	rc, err := m.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	logging.Debug("Docker", "Pulled image %s", ref)
	return nil
}

// ComposeUp implements Engine with a single `docker compose up -d` over
// the whole manifest.
func (m *Manager) ComposeUp(ctx context.Context, manifestPath, projectName string) error {
	return m.compose(ctx, manifestPath, projectName, "up", "-d", "--remove-orphans")
}

// ComposeDown implements Engine.
func (m *Manager) ComposeDown(ctx context.Context, manifestPath, projectName string) error {
	return m.compose(ctx, manifestPath, projectName, "down", "--remove-orphans")
}

func (m *Manager) compose(ctx context.Context, manifestPath, projectName string, verb string, extra ...string) error {
	args := []string{"compose", "-p", projectName, "-f", manifestPath, verb}
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker compose %s failed: %w\n%s", verb, err, string(out))
	}
	logging.Debug("Docker", "docker compose %s ok (project=%s)", verb, projectName)
	return nil
}

// RemoveImages implements Engine. Removal continues past individual
// failures; the first error is reported after all refs were attempted.
func (m *Manager) RemoveImages(ctx context.Context, refs []string) error {
	var firstErr error
	for _, ref := range refs {
		_, err := m.cli.ImageRemove(ctx, ref, image.RemoveOptions{})
		if err != nil {
			logging.Warn("Docker", "Failed to remove image %s: %v", ref, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", ref, err)
			}
		}
	}
	return firstErr
}

// BoundPorts implements Engine: every host port published by a running
// container, inspected through its port bindings.
func (m *Manager) BoundPorts(ctx context.Context) (ports.BoundSet, error) {
	containers, err := m.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	bound := make(ports.BoundSet)
	for _, c := range containers {
		info, err := m.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			logging.Debug("Docker", "Skipping container %s: %v", c.ID[:12], err)
			continue
		}
		if info.NetworkSettings == nil {
			continue
		}
		for portProto, bindings := range info.NetworkSettings.Ports {
			addBindings(bound, portProto, bindings)
		}
	}
	return bound, nil
}

func addBindings(bound ports.BoundSet, portProto nat.Port, bindings []nat.PortBinding) {
	proto := catalog.ProtocolTCP
	if portProto.Proto() == "udp" {
		proto = catalog.ProtocolUDP
	}
	for _, b := range bindings {
		hostPort, err := strconv.Atoi(b.HostPort)
		if err != nil {
			continue
		}
		bound[ports.Key{Port: hostPort, Protocol: proto}] = true
	}
}

// ProbeReady implements Engine with a plain TCP dial.
func (m *Manager) ProbeReady(host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}
