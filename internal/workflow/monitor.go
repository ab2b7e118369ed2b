package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"deskhand/internal/logging"
)

// ============================================================================
// FOLDER MONITOR
// ============================================================================

// Monitor watches a folder and runs a plan for every file that appears
// in it. The literal {file} in step commands is replaced with the new
// file's path.
type Monitor struct {
	engine  *Engine
	watcher *fsnotify.Watcher
	dir     string
	plan    *Plan
}

// Monitor watches dir and runs the plan for each new file until the
// context is cancelled.
func (e *Engine) Monitor(ctx context.Context, dir string, plan *Plan) error {
	m, err := NewMonitor(e, dir, plan)
	if err != nil {
		return err
	}
	return m.Watch(ctx)
}

// NewMonitor starts watching dir. Stop the monitor by cancelling the
// context passed to Watch.
func NewMonitor(engine *Engine, dir string, plan *Plan) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Monitor{engine: engine, watcher: watcher, dir: dir, plan: plan}, nil
}

// Watch blocks, running the plan for each created file, until the
// context is cancelled.
func (m *Monitor) Watch(ctx context.Context) error {
	log := logging.Get(logging.CategoryWorkflow)
	log.Infow("monitoring folder", "dir", m.dir, "workflow", m.plan.Name)
	defer m.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			log.Infow("file appeared", "path", event.Name)
			plan := m.bind(event.Name)
			if _, err := m.engine.Run(ctx, plan); err != nil {
				log.Warnw("triggered workflow failed", "path", event.Name, "error", err)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", "dir", m.dir, "error", err)
		}
	}
}

// bind substitutes the triggering file into a fresh copy of the plan.
func (m *Monitor) bind(path string) *Plan {
	steps := make([]StepSpec, len(m.plan.Steps))
	for i, s := range m.plan.Steps {
		s.Command = strings.ReplaceAll(s.Command, "{file}", path)
		s.Guard = strings.ReplaceAll(s.Guard, "{file}", fmt.Sprintf("%q", path))
		steps[i] = s
	}
	return &Plan{ID: m.plan.ID + ":" + path, Name: m.plan.Name, Steps: steps}
}
