package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"stackctl/internal/catalog"
	"stackctl/internal/compose"
	"stackctl/internal/config"
	"stackctl/internal/docker"
	"stackctl/internal/orchestrator"
	"stackctl/internal/ports"
	"stackctl/internal/reporting"
	"stackctl/internal/resolver"
	"stackctl/internal/tui"
)

var (
	installYes          bool
	installRemoveImages bool
	installProject      string
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [service...]",
		Short: "Install services and their dependencies",
		Long: `Resolves the requested services against the catalog, pulls in their
dependencies, checks for port conflicts, generates the compose manifest and
brings the stack up. When called without arguments an interactive menu is
shown to pick services.

A failed installation is rolled back automatically: started containers are
stopped, the written manifest is restored or removed, and directories
created by the run are deleted. Pulled images are kept unless
--remove-images is given.`,
		RunE: runInstall,
	}

	cmd.Flags().BoolVarP(&installYes, "yes", "y", false, "proceed despite port conflict warnings")
	cmd.Flags().BoolVar(&installRemoveImages, "remove-images", false, "remove pulled images when rolling back a failed run")
	cmd.Flags().StringVar(&installProject, "project", "", "compose project name (default \"stackctl\")")
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load()
	if err != nil {
		return err
	}
	cctx, err := config.LoadContext()
	if err != nil {
		return err
	}

	requested := args
	if len(requested) == 0 {
		ids, confirmed, err := tui.Run(cat, nil)
		if err != nil {
			return fmt.Errorf("service selection failed: %w", err)
		}
		if !confirmed || len(ids) == 0 {
			fmt.Println("Nothing selected, aborting.")
			return nil
		}
		requested = ids
	}

	sel, err := resolver.Resolve(cat, requested)
	if err != nil {
		return err
	}
	for _, id := range sel.ImplicitlyAdded {
		fmt.Printf("Adding %s (required dependency)\n", id)
	}

	engine, err := docker.NewManager()
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer engine.Close()

	conflicts, err := checkPorts(ctx, cat, sel, engine)
	if err != nil {
		return err
	}
	for _, c := range conflicts {
		fmt.Printf("%s: %s\n", c.Severity, c)
	}
	if ports.HasFatal(conflicts) {
		return fmt.Errorf("selection has unresolvable port conflicts")
	}
	if len(conflicts) > 0 && !installYes {
		return fmt.Errorf("host port conflicts detected; re-run with --yes to proceed anyway")
	}

	manifest, err := compose.Generate(cat, sel, cctx)
	if err != nil {
		return err
	}

	release, err := acquireRunLock(cctx)
	if err != nil {
		return err
	}
	defer release()

	orch := orchestrator.New(cat, engine, reporting.NewConsoleReporter(), orchestrator.Options{
		ProjectName:            installProject,
		RemoveImagesOnRollback: installRemoveImages,
	})

	result := orch.Install(ctx, sel, cctx, manifest)
	printResult(result, cctx)
	return result.Err
}

// checkPorts merges a live listen probe with the ports bound by running
// containers, then runs the conflict check.
func checkPorts(ctx context.Context, cat *catalog.Catalog, sel resolver.Selection, engine docker.Engine) ([]ports.Conflict, error) {
	prober := &ports.ListenProber{}
	bound, err := prober.BoundPorts(sel, cat)
	if err != nil {
		return nil, fmt.Errorf("port probe failed: %w", err)
	}
	// The daemon survey covers ports published on interfaces the listen
	// probe does not touch. An unreachable daemon is not fatal here; the
	// orchestrator pings it before doing any work.
	if containerBound, err := engine.BoundPorts(ctx); err == nil {
		for k := range containerBound {
			bound[k] = true
		}
	}
	return ports.Check(cat, sel, bound)
}

// acquireRunLock takes an exclusive lockfile under the install root so two
// stackctl runs cannot mutate the same target concurrently. The returned
// function releases the lock.
func acquireRunLock(cctx config.Context) (func(), error) {
	if err := os.MkdirAll(cctx.InstallRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create install root: %w", err)
	}
	path := filepath.Join(cctx.InstallRoot, ".stackctl.lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another stackctl run appears to be in progress (lockfile %s exists); remove it if that run crashed", path)
		}
		return nil, fmt.Errorf("failed to take run lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(path) }, nil
}

func printResult(result orchestrator.Result, cctx config.Context) {
	if result.State == orchestrator.StateDone {
		fmt.Printf("\nInstallation complete. Manifest written to %s\n", cctx.ManifestPath())
		for _, id := range result.Degraded {
			fmt.Printf("Warning: %s did not become ready in time; check its logs\n", id)
		}
		return
	}

	fmt.Printf("\nInstallation failed at step %q: %v\n", result.FailedStep, result.Err)
	if len(result.RollbackActions) > 0 {
		fmt.Println("Rolled back:")
		for _, a := range result.RollbackActions {
			fmt.Printf("  - %s\n", a)
		}
	}
}
