// Package orchestrator drives the installation pipeline: directory
// provisioning, manifest writing, image retrieval, container startup and
// post-start verification, with tracked, reversible side effects. It is
// the only component in the system that mutates the host.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stackctl/internal/catalog"
	"stackctl/internal/compose"
	"stackctl/internal/config"
	"stackctl/internal/docker"
	"stackctl/internal/reporting"
	"stackctl/internal/resolver"
	"stackctl/pkg/logging"
)

// Options tunes one installation run. Zero values are replaced by the
// defaults below.
type Options struct {
	// ProjectName is the compose project name. Defaults to "stackctl".
	ProjectName string

	// PullAttempts bounds image pull retries. Defaults to 3.
	PullAttempts int

	// PullRetryDelay is the fixed delay between pull attempts.
	// Defaults to 5s.
	PullRetryDelay time.Duration

	// ReadyTimeout bounds how long verification waits for each service's
	// primary port. Defaults to 60s.
	ReadyTimeout time.Duration

	// ReadyPollInterval is the delay between readiness probes.
	// Defaults to 2s.
	ReadyPollInterval time.Duration

	// ProbeHost is the address readiness probes dial. Defaults to
	// 127.0.0.1.
	ProbeHost string

	// RemoveImagesOnRollback opts in to deleting pulled images during
	// rollback. Image removal is destructive and costly, so the default
	// is to keep them.
	RemoveImagesOnRollback bool
}

func (o Options) withDefaults() Options {
	if o.ProjectName == "" {
		o.ProjectName = "stackctl"
	}
	if o.PullAttempts <= 0 {
		o.PullAttempts = 3
	}
	if o.PullRetryDelay <= 0 {
		o.PullRetryDelay = 5 * time.Second
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 60 * time.Second
	}
	if o.ReadyPollInterval <= 0 {
		o.ReadyPollInterval = 2 * time.Second
	}
	if o.ProbeHost == "" {
		o.ProbeHost = "127.0.0.1"
	}
	return o
}

// Result is the outcome of one installation run.
type Result struct {
	// State is StateDone on success, StateFailed otherwise.
	State State

	// FailedStep names the step that failed; empty on success.
	FailedStep Step

	// Degraded lists services whose primary port never became ready.
	// Degradation does not fail the run.
	Degraded []string

	// RollbackActions describes, in execution order, the compensating
	// actions taken after a failure.
	RollbackActions []string

	// Err is the failure cause; nil on success.
	Err error
}

// Orchestrator executes installations. One run at a time per instance;
// concurrent runs against the same target are the caller's to prevent.
type Orchestrator struct {
	cat      *catalog.Catalog
	engine   docker.Engine
	reporter reporting.Reporter
	opts     Options
}

// New creates an Orchestrator.
func New(cat *catalog.Catalog, engine docker.Engine, reporter reporting.Reporter, opts Options) *Orchestrator {
	return &Orchestrator{
		cat:      cat,
		engine:   engine,
		reporter: reporter,
		opts:     opts.withDefaults(),
	}
}

// Install runs the full pipeline for a resolved selection and its rendered
// manifest. On any step failure the completed steps are rolled back in
// reverse order before the failure is reported. Cancellation via ctx is
// observed between steps, never mid-step, and takes the same rollback
// path.
func (o *Orchestrator) Install(ctx context.Context, sel resolver.Selection, cctx config.Context, manifest *compose.Manifest) Result {
	// An unreachable daemon is a fatal environment failure: no side
	// effects yet, nothing to roll back, no retry.
	if err := o.engine.Ping(ctx); err != nil {
		o.report(reporting.Event{Type: reporting.EventTypeInstallFailed, Err: err})
		return Result{State: StateFailed, Err: err}
	}

	st := &installState{state: StateIdle, manifestPath: cctx.ManifestPath()}

	type stage struct {
		step Step
		next State
		run  func(context.Context, *installState) error
	}
	stages := []stage{
		{StepDirectories, StateDirectoriesCreated, func(ctx context.Context, st *installState) error {
			return o.createDirectories(sel, cctx, st)
		}},
		{StepManifest, StateManifestWritten, func(ctx context.Context, st *installState) error {
			return o.writeManifest(manifest, cctx, st)
		}},
		{StepImages, StateImagesPulled, func(ctx context.Context, st *installState) error {
			return o.pullImages(ctx, sel, st)
		}},
		{StepContainers, StateContainersStarted, func(ctx context.Context, st *installState) error {
			return o.startContainers(ctx, st)
		}},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, st, s.step, fmt.Errorf("installation aborted: %w", err))
		}

		o.report(reporting.Event{Type: reporting.EventTypeStepStarted, Step: string(s.step)})
		if err := s.run(ctx, st); err != nil {
			return o.fail(ctx, st, s.step, err)
		}
		st.complete(s.step, s.next)
		o.report(reporting.Event{Type: reporting.EventTypeStepCompleted, Step: string(s.step)})
	}

	// An abort arriving after the containers step must still take the
	// rollback path, not drift through verification as degraded services.
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, st, StepVerify, fmt.Errorf("installation aborted: %w", err))
	}

	// Verification never triggers rollback: a single unready container
	// must not discard an otherwise successful deployment.
	o.report(reporting.Event{Type: reporting.EventTypeStepStarted, Step: string(StepVerify)})
	degraded := o.verify(ctx, sel)
	st.complete(StepVerify, StateVerified)
	o.report(reporting.Event{Type: reporting.EventTypeStepCompleted, Step: string(StepVerify)})

	st.state = StateDone
	o.report(reporting.Event{Type: reporting.EventTypeInstallCompleted})
	return Result{State: StateDone, Degraded: degraded}
}

func (o *Orchestrator) report(e reporting.Event) {
	if o.reporter != nil {
		o.reporter.Report(e)
	}
}

func (o *Orchestrator) fail(ctx context.Context, st *installState, at Step, cause error) Result {
	o.report(reporting.Event{Type: reporting.EventTypeStepFailed, Step: string(at), Err: cause})
	st.state = StateFailed

	actions := o.rollback(ctx, st)

	o.report(reporting.Event{Type: reporting.EventTypeInstallFailed, Step: string(at), Err: cause})
	return Result{
		State:           StateFailed,
		FailedStep:      at,
		RollbackActions: actions,
		Err:             fmt.Errorf("step %s failed: %w", at, cause),
	}
}

// createDirectories provisions every bind-mount host directory in the
// selection, remembering which ones it actually created.
func (o *Orchestrator) createDirectories(sel resolver.Selection, cctx config.Context, st *installState) error {
	dirs, err := hostDirectories(o.cat, sel, cctx)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		// MkdirAll may create intermediate parents; every directory that
		// did not exist before is recorded so rollback undoes all of them.
		missing, err := missingAncestors(dir)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		st.createdDirs = append(st.createdDirs, missing...)
		logging.Debug("Orchestrator", "Created directory %s", dir)
	}
	return nil
}

// missingAncestors returns dir plus every not-yet-existing ancestor, in
// creation order (parents before children).
func missingAncestors(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; {
		if _, err := os.Stat(d); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", d, err)
		}
		missing = append(missing, d)
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	return missing, nil
}

// hostDirectories expands every bind-mount path in the selection plus the
// install root, deduplicated, in deterministic order. Paths outside the
// data/config roots (engine sockets and the like) are left alone.
func hostDirectories(cat *catalog.Catalog, sel resolver.Selection, cctx config.Context) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	add(cctx.InstallRoot)
	for _, id := range sel.IDs {
		d, ok := cat.Lookup(id)
		if !ok {
			return nil, &resolver.UnknownServiceError{ID: id}
		}
		for _, v := range d.Volumes {
			hostPath, err := cctx.Expand(v.HostPath)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", id, err)
			}
			if within(hostPath, cctx.DataRoot) || within(hostPath, cctx.ConfigRoot) {
				add(hostPath)
			}
		}
	}
	return dirs, nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasDotDotPrefix(rel))
}

func hasDotDotPrefix(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}

// writeManifest renders the project document and the auxiliary artifacts.
// A pre-existing manifest is kept in memory so rollback can restore it.
func (o *Orchestrator) writeManifest(manifest *compose.Manifest, cctx config.Context, st *installState) error {
	data, err := manifest.Render()
	if err != nil {
		return fmt.Errorf("render manifest: %w", err)
	}

	if prev, err := os.ReadFile(st.manifestPath); err == nil {
		st.manifestExisted = true
		st.previousManifest = prev
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read existing manifest: %w", err)
	}

	if err := os.WriteFile(st.manifestPath, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logging.Info("Orchestrator", "Wrote manifest to %s", st.manifestPath)

	if _, err := compose.WriteAux(manifest.Aux, cctx); err != nil {
		return fmt.Errorf("write auxiliary config: %w", err)
	}
	return nil
}

// pullImages retrieves every image in the selection with bounded retry:
// a fixed attempt count and a fixed inter-attempt delay, so the worst case
// is a known constant multiple of one attempt.
func (o *Orchestrator) pullImages(ctx context.Context, sel resolver.Selection, st *installState) error {
	for _, id := range sel.IDs {
		d, ok := o.cat.Lookup(id)
		if !ok {
			return &resolver.UnknownServiceError{ID: id}
		}

		var lastErr error
		for attempt := 1; attempt <= o.opts.PullAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("image pull aborted: %w", err)
			}

			lastErr = o.engine.PullImage(ctx, d.Image)
			if lastErr == nil {
				break
			}

			if attempt < o.opts.PullAttempts {
				o.report(reporting.Event{
					Type:    reporting.EventTypeStepRetrying,
					Step:    string(StepImages),
					Service: id,
					Attempt: attempt,
					Err:     lastErr,
				})
				time.Sleep(o.opts.PullRetryDelay)
			}
		}
		if lastErr != nil {
			return fmt.Errorf("pull %s after %d attempts: %w", d.Image, o.opts.PullAttempts, lastErr)
		}
		st.imagesPulled = append(st.imagesPulled, d.Image)
	}
	return nil
}

// startContainers brings the whole project up in one engine invocation.
func (o *Orchestrator) startContainers(ctx context.Context, st *installState) error {
	if err := o.engine.ComposeUp(ctx, st.manifestPath, o.opts.ProjectName); err != nil {
		return err
	}
	st.containersStarted = true
	return nil
}

// verify polls the primary TCP port of each selected service until it
// accepts connections or the per-service timeout elapses. Services that
// never become ready are reported degraded.
func (o *Orchestrator) verify(ctx context.Context, sel resolver.Selection) []string {
	var degraded []string
	for _, id := range sel.IDs {
		d, ok := o.cat.Lookup(id)
		if !ok {
			continue
		}
		p, hasPort := d.PrimaryPort()
		if !hasPort || p.Protocol != catalog.ProtocolTCP {
			continue
		}

		if o.awaitReady(ctx, p.Port) {
			o.report(reporting.Event{Type: reporting.EventTypeServiceReady, Step: string(StepVerify), Service: id})
		} else {
			o.report(reporting.Event{
				Type:    reporting.EventTypeServiceDegraded,
				Step:    string(StepVerify),
				Service: id,
				Detail:  fmt.Sprintf("port %d not ready after %s", p.Port, o.opts.ReadyTimeout),
			})
			degraded = append(degraded, id)
		}
	}
	return degraded
}

func (o *Orchestrator) awaitReady(ctx context.Context, port int) bool {
	deadline := time.Now().Add(o.opts.ReadyTimeout)
	for {
		if err := o.engine.ProbeReady(o.opts.ProbeHost, port, o.opts.ReadyPollInterval); err == nil {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		time.Sleep(o.opts.ReadyPollInterval)
	}
}

// rollback undoes the recorded steps in reverse order. It is best-effort:
// a failing rollback step is reported and the remaining steps still run.
func (o *Orchestrator) rollback(ctx context.Context, st *installState) []string {
	if len(st.completed) == 0 {
		return nil
	}

	o.report(reporting.Event{Type: reporting.EventTypeRollbackStarted})

	// Rollback must proceed even when the run was cancelled, so it works
	// on a context detached from the caller's cancellation.
	rctx := context.WithoutCancel(ctx)

	var actions []string
	act := func(step Step, description string) {
		actions = append(actions, description)
		o.report(reporting.Event{Type: reporting.EventTypeRollbackAction, Step: string(step), Detail: description})
	}

	for _, step := range st.completedReversed() {
		switch step {
		case StepContainers:
			if !st.containersStarted {
				continue
			}
			if err := o.engine.ComposeDown(rctx, st.manifestPath, o.opts.ProjectName); err != nil {
				o.report(reporting.Event{Type: reporting.EventTypeRollbackFailed, Step: string(step), Err: err})
				continue
			}
			act(step, "stopped and removed started containers")

		case StepImages:
			if !o.opts.RemoveImagesOnRollback {
				// Keeping images is the default: removal is destructive
				// and re-pulling is expensive.
				continue
			}
			if err := o.engine.RemoveImages(rctx, st.imagesPulled); err != nil {
				o.report(reporting.Event{Type: reporting.EventTypeRollbackFailed, Step: string(step), Err: err})
				continue
			}
			act(step, fmt.Sprintf("removed %d pulled image(s)", len(st.imagesPulled)))

		case StepManifest:
			if st.manifestExisted {
				if err := os.WriteFile(st.manifestPath, st.previousManifest, 0644); err != nil {
					o.report(reporting.Event{Type: reporting.EventTypeRollbackFailed, Step: string(step), Err: err})
					continue
				}
				act(step, "restored previous manifest")
			} else {
				if err := os.Remove(st.manifestPath); err != nil && !os.IsNotExist(err) {
					o.report(reporting.Event{Type: reporting.EventTypeRollbackFailed, Step: string(step), Err: err})
					continue
				}
				act(step, "removed written manifest")
			}

		case StepDirectories:
			removed := 0
			// Deepest first so empty parents created by the same run can
			// go too.
			for i := len(st.createdDirs) - 1; i >= 0; i-- {
				dir := st.createdDirs[i]
				// os.Remove refuses non-empty directories, which is
				// exactly the guarantee we want.
				if err := os.Remove(dir); err == nil {
					removed++
				}
			}
			if removed > 0 {
				act(step, fmt.Sprintf("removed %d newly created empty director(ies)", removed))
			}
		}
	}
	return actions
}
