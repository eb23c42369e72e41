package orchestrator

// Step names one discrete installation step. Steps execute in the fixed
// order below; each records its own completion so rollback can undo
// exactly what ran, in reverse.
type Step string

const (
	StepDirectories Step = "directories"
	StepManifest    Step = "manifest"
	StepImages      Step = "images"
	StepContainers  Step = "containers"
	StepVerify      Step = "verify"
)

// State is the orchestrator's position in the installation state machine.
type State string

const (
	StateIdle               State = "idle"
	StateDirectoriesCreated State = "directories-created"
	StateManifestWritten    State = "manifest-written"
	StateImagesPulled       State = "images-pulled"
	StateContainersStarted  State = "containers-started"
	StateVerified           State = "verified"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// installState tracks the reversible side effects of one run. It exists
// only for the duration of a single Install invocation: discarded on
// success, consumed by rollback on failure.
type installState struct {
	state State

	// completed holds the steps that finished, in execution order.
	completed []Step

	// createdDirs are directories this run created (they did not exist
	// before). Pre-existing directories are never candidates for removal.
	createdDirs []string

	// manifestPath plus whether a manifest already existed there and, if
	// so, its prior content, so rollback can put it back.
	manifestPath     string
	manifestExisted  bool
	previousManifest []byte

	// imagesPulled are the image references retrieved by this run.
	imagesPulled []string

	// containersStarted marks that the compose project was brought up.
	containersStarted bool
}

func (s *installState) complete(step Step, next State) {
	s.completed = append(s.completed, step)
	s.state = next
}

// completedSteps returns the completed steps in reverse execution order,
// the order rollback runs in.
func (s *installState) completedReversed() []Step {
	out := make([]Step, len(s.completed))
	for i, step := range s.completed {
		out[len(s.completed)-1-i] = step
	}
	return out
}
