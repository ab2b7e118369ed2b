package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"deskhand/internal/config"
	"deskhand/internal/handlers"
	"deskhand/internal/intent"
	"deskhand/internal/llm"
	"deskhand/internal/logging"
	"deskhand/internal/normalize"
	"deskhand/internal/registry"
	"deskhand/internal/safety"
	"deskhand/internal/session"
	"deskhand/internal/store"
	"deskhand/internal/workflow"
)

// ============================================================================
// AGENT
// ============================================================================

// Agent wires the full pipeline: normalize the raw command, classify
// it, dispatch the intent, and record what happened. It also implements
// workflow.Runner so compiled plans flow through the same pipeline.
type Agent struct {
	cfg        *config.Config
	st         *store.Store
	sess       *session.Session
	gate       *safety.Gate
	reg        *registry.Registry
	norm       *normalize.Normalizer
	classifier *intent.Classifier
	workflows  *workflow.Engine

	dispatches   int
	persistEvery int
}

// New boots an agent from config. The registry completeness check runs
// here, so a missing handler fails construction.
func New(cfg *config.Config) (*Agent, error) {
	log := logging.Get(logging.CategoryBoot)

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gate, err := safety.NewGate(st, cfg.Safety.StashDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("safety gate: %w", err)
	}
	if cfg.Safety.RetentionDays > 0 {
		if err := gate.Prune(time.Duration(cfg.Safety.RetentionDays) * 24 * time.Hour); err != nil {
			log.Warnw("stash prune failed", "error", err)
		}
	}

	sess, err := session.New("main", st, cfg.Store.HistoryDepth, cfg.Store.RecentWindow)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	var backend llm.Client
	if cfg.LLM.Enabled {
		backend = llm.NewOllama(cfg.LLM.Host, cfg.LLM.Model, cfg.LLM.TimeoutDuration())
		log.Infow("llm fallback enabled", "host", cfg.LLM.Host, "model", cfg.LLM.Model)
	}

	a := &Agent{
		cfg:          cfg,
		st:           st,
		sess:         sess,
		gate:         gate,
		norm:         normalize.New(intent.Vocabulary(), st.Frequency),
		classifier:   intent.NewClassifier(backend),
		persistEvery: cfg.Store.PersistEvery,
	}

	reg := registry.New(gate)
	err = handlers.RegisterAll(reg, handlers.Deps{
		Session: sess,
		Store:   st,
		Gate:    gate,
		Caps:    reg.Capabilities,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	if err := reg.Complete(); err != nil {
		st.Close()
		return nil, fmt.Errorf("capability registry: %w", err)
	}
	a.reg = reg

	a.workflows = workflow.NewEngine(a, st, cfg.Workflow.MaxSteps)
	if err := a.workflows.LoadTemplates(filepath.Join(cfg.DataDir, "workflows.yaml")); err != nil {
		log.Warnw("user workflow templates not loaded", "error", err)
	}

	log.Infow("agent ready", "location", sess.CurrentLocation())
	return a, nil
}

// Close persists the session and releases the store.
func (a *Agent) Close() error {
	if err := a.sess.Save(); err != nil {
		logging.Get(logging.CategorySession).Warnw("session save failed", "error", err)
	}
	return a.st.Close()
}

// Interpret normalizes and classifies one command. Corrected words feed
// the usage counters so frequent vocabulary wins future ties.
func (a *Agent) Interpret(ctx context.Context, command string) (intent.Intent, error) {
	tokens := a.norm.Normalize(command)

	in, err := a.classifier.Classify(ctx, command, tokens, a.sess)
	if err != nil {
		return intent.Intent{}, err
	}

	for _, tok := range tokens {
		if tok.Corrected {
			if berr := a.st.Bump(tok.Text); berr != nil {
				logging.Get(logging.CategoryClassify).Debugw("usage bump failed", "word", tok.Text, "error", berr)
			}
		}
	}
	return in, nil
}

// Execute dispatches an intent and appends the outcome to the event
// log. Intents below the dispatch threshold are refused with a
// clarification request, never run.
func (a *Agent) Execute(ctx context.Context, in intent.Intent) (registry.Result, error) {
	if in.Kind != intent.KindUnknown && in.Confidence < intent.DispatchThreshold {
		return registry.Result{}, &intent.LowConfidenceError{Candidate: in}
	}

	res, err := a.reg.Dispatch(ctx, in, a.sess)

	outcome := "ok"
	if err != nil {
		outcome = "error: " + err.Error()
	}
	if _, rerr := a.st.Record(store.Event{
		Kind:    string(in.Kind),
		Raw:     in.Raw,
		Params:  in.Params,
		Outcome: outcome,
	}); rerr != nil {
		logging.Get(logging.CategoryStore).Warnw("event record failed", "error", rerr)
	}

	a.dispatches++
	if a.persistEvery > 0 && a.dispatches%a.persistEvery == 0 {
		if serr := a.sess.Save(); serr != nil {
			logging.Get(logging.CategorySession).Warnw("session save failed", "error", serr)
		}
	}
	return res, err
}

// Location implements workflow.Runner.
func (a *Agent) Location() string { return a.sess.CurrentLocation() }

// Handle processes one line of user input end to end. Chained commands
// become an ad-hoc workflow; single commands go straight through the
// pipeline.
func (a *Agent) Handle(ctx context.Context, raw string) (registry.Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return registry.Result{}, nil
	}

	if parts := workflow.SplitChain(raw); len(parts) > 1 {
		return a.runChain(ctx, raw)
	}

	in, err := a.Interpret(ctx, raw)
	if err != nil {
		return registry.Result{}, err
	}
	if in.Kind == intent.KindUnknown {
		return registry.Result{
			Message: fmt.Sprintf("I didn't understand %q, say help for what I can do", raw),
		}, nil
	}
	return a.Execute(ctx, in)
}

func (a *Agent) runChain(ctx context.Context, raw string) (registry.Result, error) {
	plan, err := a.workflows.CompileChain(raw)
	if err != nil {
		return registry.Result{}, err
	}
	outcomes, err := a.workflows.Run(ctx, plan)

	details := make([]string, 0, len(outcomes))
	for i, out := range outcomes {
		switch {
		case out.Err != nil:
			details = append(details, fmt.Sprintf("%d. %s failed: %v", i+1, out.Command, out.Err))
		case out.Skipped:
			details = append(details, fmt.Sprintf("%d. %s skipped", i+1, out.Command))
		default:
			details = append(details, fmt.Sprintf("%d. %s", i+1, out.Message))
		}
	}
	if err != nil {
		return registry.Result{Message: "Workflow stopped early", Details: details}, err
	}
	return registry.Result{
		Message: fmt.Sprintf("Completed %d step(s)", len(outcomes)),
		Details: details,
	}, nil
}

// Workflows exposes the workflow engine to the CLI.
func (a *Agent) Workflows() *workflow.Engine { return a.workflows }

// Gate exposes the safety gate to the CLI.
func (a *Agent) Gate() *safety.Gate { return a.gate }

// Session exposes session state to the CLI.
func (a *Agent) Session() *session.Session { return a.sess }

// Store exposes the event log to the CLI.
func (a *Agent) Store() *store.Store { return a.st }
