package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logutil"
)

// Step is one independent teardown action. Steps never depend on each
// other's outcome.
type Step interface {
	Name() string
	Applies(s ActiveSession) bool
	Run(ctx context.Context, s ActiveSession) error
}

// StepResult records what a step did. Gone is set when the step found the
// process already exited; Err is nil in that case.
type StepResult struct {
	Step string `json:"step"`
	Gone bool   `json:"gone,omitempty"`
	Err  error  `json:"-"`
}

// Report describes a single teardown.
type Report struct {
	Session ActiveSession `json:"session"`
	Steps   []StepResult  `json:"steps"`
}

// TornDown reports whether at least one step succeeded or found the process
// already gone.
func (r Report) TornDown() bool {
	for _, s := range r.Steps {
		if s.Err == nil {
			return true
		}
	}
	return false
}

// Outcome summarises a bulk disconnect.
type Outcome string

const (
	OutcomeAll     Outcome = "all"
	OutcomePartial Outcome = "partial"
	OutcomeNone    Outcome = "none"
)

// BulkResult lists which sessions were torn down by TerminateAll.
type BulkResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// Outcome is all when nothing failed, partial when some succeeded and none
// when every session failed.
func (b BulkResult) Outcome() Outcome {
	switch {
	case len(b.Failed) == 0:
		return OutcomeAll
	case len(b.Succeeded) > 0:
		return OutcomePartial
	}
	return OutcomeNone
}

// DefaultStepTimeout bounds each teardown step.
const DefaultStepTimeout = 5 * time.Second

// Terminator runs the teardown chain for registry sessions.
type Terminator struct {
	registry    *Registry
	steps       []Step
	StepTimeout time.Duration
}

// NewTerminator creates a terminator running steps in order.
func NewTerminator(registry *Registry, steps ...Step) *Terminator {
	return &Terminator{registry: registry, steps: steps, StepTimeout: DefaultStepTimeout}
}

// Terminate claims the session, runs every applicable step, then removes
// the session. Step failures are logged and recorded in the report; the
// session is removed either way. A session already being disconnected
// returns ErrAlreadyDisconnecting without running any step.
func (t *Terminator) Terminate(ctx context.Context, id string) (Report, error) {
	s, err := t.registry.Claim(id)
	if err != nil {
		return Report{Session: s}, err
	}

	name := logutil.SanitizeForLog(s.ProfileName)
	log.Printf("[Terminator] Disconnecting %s (%s)", name, s.ID)

	report := Report{Session: s}
	for _, step := range t.steps {
		if !step.Applies(s) {
			continue
		}
		stepCtx, cancel := context.WithTimeout(ctx, t.StepTimeout)
		err := step.Run(stepCtx, s)
		cancel()
		res := StepResult{Step: step.Name()}
		switch {
		case errors.Is(err, ErrProcessGone):
			log.Printf("[Terminator] %s for %s: already gone", step.Name(), s.ID)
			res.Gone = true
		case err != nil:
			log.Printf("[Terminator] %s failed for %s: %v", step.Name(), s.ID, err)
			res.Err = err
		}
		report.Steps = append(report.Steps, res)
	}

	if err := t.registry.MarkStatus(id, StatusDisconnected); err != nil {
		log.Printf("[Terminator] Session %s vanished during teardown: %v", s.ID, err)
	}
	if !report.TornDown() {
		log.Printf("[Terminator] No teardown step succeeded for %s", s.ID)
	}
	return report, nil
}

// TerminateAll disconnects every session in the registry. The registry is
// empty of those sessions afterward even when their steps failed.
func (t *Terminator) TerminateAll(ctx context.Context) BulkResult {
	result := BulkResult{Succeeded: []string{}, Failed: []string{}}
	for _, s := range t.registry.List() {
		report, err := t.Terminate(ctx, s.ID)
		switch {
		case errors.Is(err, ErrAlreadyDisconnecting), errors.Is(err, ErrSessionNotFound):
			// Another caller owns this teardown.
			result.Succeeded = append(result.Succeeded, s.ID)
		case err != nil:
			result.Failed = append(result.Failed, s.ID)
		case report.TornDown():
			result.Succeeded = append(result.Succeeded, s.ID)
		default:
			result.Failed = append(result.Failed, s.ID)
		}
		t.registry.Remove(s.ID)
	}
	return result
}
