package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"deskhand/internal/config"
	"deskhand/internal/intent"
)

func newTestAgent(t *testing.T) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Store.DatabasePath = filepath.Join(dir, "deskhand.db")
	cfg.Safety.StashDir = filepath.Join(dir, "stash")
	cfg.Logging.File = filepath.Join(dir, "deskhand.log")

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return a, work
}

func TestHandleNavigateAndBack(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Handle(ctx, "go to "+work)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if a.Session().CurrentLocation() != work {
		t.Fatalf("not navigated: %s (%s)", a.Session().CurrentLocation(), res.Message)
	}

	if _, err := a.Handle(ctx, "go back"); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if a.Session().CurrentLocation() == work {
		t.Error("back did not leave the work dir")
	}
}

func TestHandleCorrectsTypos(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Handle(ctx, "crete flder notes"); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "notes")); err != nil {
		t.Errorf("folder not created from typo'd command: %v", err)
	}
}

func TestHandleDeleteThenUndo(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	path := filepath.Join(work, "keep.txt")
	if err := os.WriteFile(path, []byte("precious"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Handle(ctx, "delete file keep.txt"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file should be gone")
	}

	if _, err := a.Handle(ctx, "undo"); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "precious" {
		t.Errorf("file not restored: %v %q", err, b)
	}
}

func TestHandleAmbiguousDeleteAsks(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}

	_, err := a.Handle(ctx, "delete reports")
	var amb *intent.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("expected clarification, got %v", err)
	}
}

func TestHandleLowConfidenceAsksToRephrase(t *testing.T) {
	a, _ := newTestAgent(t)

	// "launch X" only matches the weak open_app rule; without a backend
	// the best candidate stays below the dispatch threshold.
	_, err := a.Handle(context.Background(), "launch qzv")
	var low *intent.LowConfidenceError
	if !errors.As(err, &low) {
		t.Fatalf("expected a clarification request, got %v", err)
	}
	if low.Candidate.Kind != intent.KindOpenApp {
		t.Errorf("wrong candidate kind: %s", low.Candidate.Kind)
	}
}

func TestHandleUndoWindowTwiceIsNoOp(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	path := filepath.Join(work, "keep.txt")
	if err := os.WriteFile(path, []byte("precious"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Handle(ctx, "delete file keep.txt"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := a.Handle(ctx, "undo everything from the last 2 hours"); err != nil {
		t.Fatalf("first window undo failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("file should be restored")
	}

	if _, err := a.Handle(ctx, "undo everything from the last 2 hours"); err != nil {
		t.Fatalf("second window undo failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "precious" {
		t.Errorf("repeating the window undo must not re-delete: %v %q", err, b)
	}
}

func TestHandleUnknownIsFriendly(t *testing.T) {
	a, _ := newTestAgent(t)

	res, err := a.Handle(context.Background(), "qwxzvb frobnicate")
	if err != nil {
		t.Fatalf("Handle must not fail on gibberish: %v", err)
	}
	if res.Message == "" {
		t.Error("expected a friendly message")
	}
}

func TestHandleChainRunsAsWorkflow(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Handle(ctx, "go to "+work+" then create folder sorted then list folders")
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if len(res.Details) != 3 {
		t.Errorf("expected 3 step reports, got %v", res.Details)
	}
	if _, err := os.Stat(filepath.Join(work, "sorted")); err != nil {
		t.Errorf("chain step did not run: %v", err)
	}
}

func TestHandleChainHaltsOnFailure(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	// Second step fails (folder exists), third must not run.
	if err := os.MkdirAll(filepath.Join(work, "sorted"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := a.Handle(ctx, "go to "+work+" then create folder sorted then create folder never")
	if err == nil {
		t.Fatal("expected the chain to halt")
	}
	if _, serr := os.Stat(filepath.Join(work, "never")); !os.IsNotExist(serr) {
		t.Error("steps after the failure must not run")
	}
}

func TestEventsRecorded(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}
	events, err := a.Store().Recent(5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected the command in the event log")
	}
	if events[0].Kind != string(intent.KindNavigate) {
		t.Errorf("wrong event kind: %s", events[0].Kind)
	}
	if events[0].Outcome != "ok" {
		t.Errorf("wrong outcome: %s", events[0].Outcome)
	}
}

func TestWhatWasIDoing(t *testing.T) {
	a, work := newTestAgent(t)
	ctx := context.Background()

	if _, err := a.Handle(ctx, "go to "+work); err != nil {
		t.Fatal(err)
	}
	res, err := a.Handle(ctx, "what was i doing")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(res.Details) == 0 {
		t.Error("expected activity details")
	}
}
