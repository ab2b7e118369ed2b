package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deskhand/internal/intent"
	"deskhand/internal/logging"
	"deskhand/internal/registry"
	"deskhand/internal/store"
)

// ============================================================================
// WORKFLOW ENGINE
// ============================================================================

// Runner is the slice of the engine workflows need: interpret one
// command, execute one intent. The agent implements it.
type Runner interface {
	Interpret(ctx context.Context, command string) (intent.Intent, error)
	Execute(ctx context.Context, in intent.Intent) (registry.Result, error)
	Location() string
}

// StepSpec is one declared workflow step. Commands are interpreted when
// the step runs, not when the plan compiles, so slots resolve against
// the session state the step actually sees.
type StepSpec struct {
	Command           string `yaml:"command" json:"command"`
	Guard             string `yaml:"guard,omitempty" json:"guard,omitempty"`
	ContinueOnFailure bool   `yaml:"continue_on_failure,omitempty" json:"continue_on_failure,omitempty"`
}

// Plan is a compiled workflow.
type Plan struct {
	ID    string
	Name  string
	Steps []StepSpec
}

// Outcome reports one executed step.
type Outcome struct {
	Command string
	Skipped bool
	Message string
	Err     error
}

// Error halts a run: it names the failing step and carries everything
// that already ran, so the caller can report partial progress.
type Error struct {
	PlanID   string
	Step     int
	Outcomes []Outcome
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workflow step %d (%q): %v", e.Step+1, e.Outcomes[len(e.Outcomes)-1].Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine compiles and runs plans.
type Engine struct {
	run       Runner
	st        *store.Store
	maxSteps  int
	templates map[string][]StepSpec
}

// NewEngine builds an engine. st may be nil for ephemeral runs.
func NewEngine(run Runner, st *store.Store, maxSteps int) *Engine {
	if maxSteps <= 0 {
		maxSteps = 64
	}
	return &Engine{
		run:       run,
		st:        st,
		maxSteps:  maxSteps,
		templates: builtinTemplates(),
	}
}

// Compile validates specs into a plan.
func (e *Engine) Compile(name string, specs []StepSpec) (*Plan, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", name)
	}
	if len(specs) > e.maxSteps {
		return nil, fmt.Errorf("workflow %q has %d steps, limit is %d", name, len(specs), e.maxSteps)
	}
	for i, s := range specs {
		if s.Command == "" {
			return nil, fmt.Errorf("workflow %q step %d is empty", name, i+1)
		}
		if s.Guard != "" {
			if err := checkGuard(s.Guard); err != nil {
				return nil, fmt.Errorf("workflow %q step %d guard: %w", name, i+1, err)
			}
		}
	}
	return &Plan{ID: uuid.NewString(), Name: name, Steps: specs}, nil
}

// CompileChain splits a natural-language chain into a plan.
func (e *Engine) CompileChain(raw string) (*Plan, error) {
	parts := SplitChain(raw)
	specs := make([]StepSpec, 0, len(parts))
	for _, p := range parts {
		specs = append(specs, StepSpec{Command: p})
	}
	return e.Compile(raw, specs)
}

// Run executes a plan from its first step.
func (e *Engine) Run(ctx context.Context, plan *Plan) ([]Outcome, error) {
	return e.runFrom(ctx, plan, 0)
}

// Resume reloads a persisted plan and continues from where it stopped.
func (e *Engine) Resume(ctx context.Context, planID string) ([]Outcome, error) {
	if e.st == nil {
		return nil, fmt.Errorf("no store configured")
	}
	row, err := e.st.LoadPlan(planID)
	if err != nil {
		return nil, err
	}
	var specs []StepSpec
	if err := json.Unmarshal([]byte(row.Spec), &specs); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", planID, err)
	}
	plan := &Plan{ID: row.ID, Name: row.Name, Steps: specs}
	return e.runFrom(ctx, plan, row.NextStep)
}

// Schedule persists the plan and runs it after the delay. The plan
// survives a restart in the store, so an interrupted schedule can be
// resumed by id.
func (e *Engine) Schedule(ctx context.Context, plan *Plan, delay time.Duration) error {
	if err := e.persist(plan, 0); err != nil {
		return err
	}
	log := logging.Get(logging.CategoryWorkflow)
	log.Infow("workflow scheduled", "id", plan.ID, "name", plan.Name, "delay", delay)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if _, err := e.Run(ctx, plan); err != nil {
			log.Warnw("scheduled workflow failed", "id", plan.ID, "error", err)
		}
	}()
	return nil
}

func (e *Engine) runFrom(ctx context.Context, plan *Plan, start int) ([]Outcome, error) {
	log := logging.Get(logging.CategoryWorkflow)
	log.Infow("workflow starting", "id", plan.ID, "name", plan.Name, "steps", len(plan.Steps), "from", start)

	var outcomes []Outcome
	for i := start; i < len(plan.Steps); i++ {
		// Cancellation is honored between steps, never mid-step.
		if err := ctx.Err(); err != nil {
			e.persist(plan, i)
			return outcomes, &Error{PlanID: plan.ID, Step: i, Outcomes: append(outcomes, Outcome{Command: plan.Steps[i].Command, Err: err}), Err: err}
		}

		step := plan.Steps[i]
		out := e.runStep(ctx, step)
		outcomes = append(outcomes, out)

		if out.Err != nil && !step.ContinueOnFailure {
			e.persist(plan, i)
			log.Warnw("workflow halted", "id", plan.ID, "step", i+1, "error", out.Err)
			return outcomes, &Error{PlanID: plan.ID, Step: i, Outcomes: outcomes, Err: out.Err}
		}
	}

	if e.st != nil {
		e.st.DeletePlan(plan.ID)
	}
	log.Infow("workflow complete", "id", plan.ID, "steps", len(outcomes))
	return outcomes, nil
}

func (e *Engine) runStep(ctx context.Context, step StepSpec) Outcome {
	out := Outcome{Command: step.Command}

	if step.Guard != "" {
		ok, err := evalGuard(step.Guard, e.run.Location())
		if err != nil {
			out.Err = fmt.Errorf("guard: %w", err)
			return out
		}
		if !ok {
			out.Skipped = true
			out.Message = "guard not met"
			return out
		}
	}

	in, err := e.run.Interpret(ctx, step.Command)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := e.run.Execute(ctx, in)
	if err != nil {
		out.Err = err
		return out
	}
	out.Message = res.Message
	return out
}

func (e *Engine) persist(plan *Plan, nextStep int) error {
	if e.st == nil {
		return nil
	}
	spec, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return e.st.SavePlan(store.PlanRow{
		ID:       plan.ID,
		Name:     plan.Name,
		NextStep: nextStep,
		Spec:     string(spec),
	})
}
