// Package docker wraps the container engine behind a narrow interface.
// The orchestrator talks to Engine only, which keeps installation logic
// testable without a running daemon. Manager is the real implementation:
// the Docker SDK for daemon-level operations (ping, image pulls, port
// surveys) and a single `docker compose` invocation for starting or
// stopping the whole project, so inter-service startup ordering stays with
// the engine's own depends_on handling.
package docker

import (
	"context"
	"time"

	"stackctl/internal/ports"
)

// Engine is the container-engine surface the installation pipeline needs.
type Engine interface {
	// Ping verifies the daemon is reachable. An unreachable daemon is a
	// fatal environment failure, never retried.
	Ping(ctx context.Context) error

	// PullImage retrieves one image reference. Transient failures are the
	// caller's to retry.
	PullImage(ctx context.Context, ref string) error

	// ComposeUp applies the manifest in one engine invocation.
	ComposeUp(ctx context.Context, manifestPath, projectName string) error

	// ComposeDown stops and removes the project's containers.
	ComposeDown(ctx context.Context, manifestPath, projectName string) error

	// RemoveImages deletes the given image references. Used only when the
	// operator explicitly requests image cleanup during rollback.
	RemoveImages(ctx context.Context, refs []string) error

	// BoundPorts surveys the ports published by running containers.
	BoundPorts(ctx context.Context) (ports.BoundSet, error)

	// ProbeReady reports whether a TCP endpoint accepts connections.
	ProbeReady(host string, port int, timeout time.Duration) error
}
