package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deskhand/internal/store"
)

func newTestGate(t *testing.T) (*Gate, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "deskhand.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	g, err := NewGate(st, filepath.Join(dir, "stash"))
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return g, work
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteThenUndoRestoresContent(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "report.txt")
	writeFile(t, path, "quarterly numbers")

	err := g.Execute(ActFileDelete, map[string]string{"path": path}, func() error {
		return os.Remove(path)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file should be gone after delete")
	}

	results, err := g.Undo(1)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(results) != 1 || !results[0].Applied {
		t.Fatalf("expected one applied undo, got %+v", results)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not restored: %v", err)
	}
	if string(b) != "quarterly numbers" {
		t.Errorf("content lost on restore, got %q", b)
	}
}

func TestDeleteFolderThenUndoRestoresTree(t *testing.T) {
	g, work := newTestGate(t)
	dir := filepath.Join(work, "project")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub", "notes.md"), "hello")

	err := g.Execute(ActFolderDelete, map[string]string{"path": dir}, func() error {
		return os.RemoveAll(dir)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := g.Undo(1); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "sub", "notes.md"))
	if err != nil || string(b) != "hello" {
		t.Errorf("tree not restored: %v %q", err, b)
	}
}

func TestMoveThenUndoRestoresLocation(t *testing.T) {
	g, work := newTestGate(t)
	src := filepath.Join(work, "a.txt")
	dst := filepath.Join(work, "sub", "a.txt")
	writeFile(t, src, "x")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	err := g.Execute(ActFileMove, map[string]string{"source": src, "destination": dst}, func() error {
		return os.Rename(src, dst)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := g.Undo(1); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("file not back at source: %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("file still at destination after undo")
	}
}

func TestCreateThenUndoRemoves(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "new.txt")

	err := g.Execute(ActFileCreate, map[string]string{"path": path}, func() error {
		return os.WriteFile(path, nil, 0o644)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := g.Undo(1); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("created file should be removed by undo")
	}
}

func TestUndoIsItselfUndoable(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "cycle.txt")
	writeFile(t, path, "v1")

	err := g.Execute(ActFileDelete, map[string]string{"path": path}, func() error {
		return os.Remove(path)
	})
	if err != nil {
		t.Fatal(err)
	}

	// Undo the delete: file is back.
	if _, err := g.Undo(1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("file should be restored")
	}

	// Undo the restore: file is gone again.
	if _, err := g.Undo(1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("undoing the restore should remove the file again")
	}
}

func TestUndoOrderIsReverse(t *testing.T) {
	g, work := newTestGate(t)
	a := filepath.Join(work, "a.txt")
	b := filepath.Join(work, "b.txt")

	for _, p := range []string{a, b} {
		p := p
		err := g.Execute(ActFileCreate, map[string]string{"path": p}, func() error {
			return os.WriteFile(p, nil, 0o644)
		})
		if err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	results, err := g.Undo(2)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Action.Params["path"] != b {
		t.Errorf("newest action must be undone first, got %s", results[0].Action.Params["path"])
	}
}

func TestUndoStopsOnFirstFailure(t *testing.T) {
	g, work := newTestGate(t)
	a := filepath.Join(work, "a.txt")
	writeFile(t, a, "x")

	// Oldest: a real create we could undo.
	err := g.Execute(ActFileCreate, map[string]string{"path": a}, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)

	// Newest: a move whose inverse cannot apply because the destination
	// file no longer exists.
	ghost := filepath.Join(work, "ghost.txt")
	err = g.Execute(ActFileMove, map[string]string{"source": ghost, "destination": ghost + ".moved"}, func() error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := g.Undo(2)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("sweep must halt at the failure, got %d results", len(results))
	}
	if results[0].Err == nil {
		t.Error("expected the failing result to carry its error")
	}
	if _, err := os.Stat(a); err != nil {
		t.Error("older action must remain untouched after halt")
	}
}

func TestUndoSinceWindow(t *testing.T) {
	g, work := newTestGate(t)
	old := filepath.Join(work, "old.txt")
	recent := filepath.Join(work, "recent.txt")

	err := g.Execute(ActFileCreate, map[string]string{"path": old}, func() error {
		return os.WriteFile(old, nil, 0o644)
	})
	if err != nil {
		t.Fatal(err)
	}
	cut := time.Now()
	time.Sleep(2 * time.Millisecond)
	err = g.Execute(ActFileCreate, map[string]string{"path": recent}, func() error {
		return os.WriteFile(recent, nil, 0o644)
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := g.UndoSince(cut)
	if err != nil {
		t.Fatalf("UndoSince failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the recent action, got %d", len(results))
	}
	if _, err := os.Stat(recent); !os.IsNotExist(err) {
		t.Error("recent file should be removed")
	}
	if _, err := os.Stat(old); err != nil {
		t.Error("old file must survive a windowed undo")
	}
}

func TestUndoSinceTwiceIsNoOp(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "keep.txt")
	writeFile(t, path, "precious")

	cut := time.Now().Add(-time.Second)
	err := g.Execute(ActFileDelete, map[string]string{"path": path}, func() error {
		return os.Remove(path)
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := g.UndoSince(cut)
	if err != nil {
		t.Fatalf("UndoSince failed: %v", err)
	}
	if len(results) != 1 || !results[0].Applied {
		t.Fatalf("first sweep must restore the file, got %+v", results)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("file should be restored")
	}

	// The restore wrote its own ledger row inside the window. A second
	// sweep over the same window must not pick it up and re-delete.
	results, err = g.UndoSince(cut)
	if err != nil {
		t.Fatalf("second UndoSince failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("second sweep must be a no-op, got %+v", results)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "precious" {
		t.Errorf("file must survive the second sweep: %v %q", err, b)
	}
}

func TestUndoCountsOnlyInvertibleRows(t *testing.T) {
	g, work := newTestGate(t)
	a := filepath.Join(work, "a.txt")
	b := filepath.Join(work, "b.txt")

	for _, p := range []string{a, b} {
		p := p
		err := g.Execute(ActFileCreate, map[string]string{"path": p}, func() error {
			return os.WriteFile(p, nil, 0o644)
		})
		if err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	// Newest row has no inverse; it must not use up the undo count.
	if err := g.Execute("screenshot", map[string]string{"name": "s.png"}, func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	results, err := g.Undo(2)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	applied := 0
	for _, r := range results {
		if r.Applied {
			applied++
		}
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied undos, got %d (%+v)", applied, results)
	}
	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed by undo", p)
		}
	}
}

func TestNotUndoableReported(t *testing.T) {
	g, _ := newTestGate(t)

	// A screenshot has no sensible inverse.
	err := g.Execute("screenshot", map[string]string{"name": "shot.png"}, func() error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	results, err := g.Undo(1)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(results) != 1 || results[0].Applied || results[0].Note != "not undoable" {
		t.Errorf("expected a not-undoable report, got %+v", results)
	}
}

func TestFailedActionNotUndoCandidate(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "x.txt")

	boom := errors.New("boom")
	err := g.Execute(ActFileCreate, map[string]string{"path": path}, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Execute must surface the handler error, got %v", err)
	}

	results, err := g.Undo(1)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("failed actions must not be undone, got %+v", results)
	}
}

func TestTimelineShowsAllStatuses(t *testing.T) {
	g, work := newTestGate(t)
	path := filepath.Join(work, "t.txt")

	g.Execute(ActFileCreate, map[string]string{"path": path}, func() error {
		return os.WriteFile(path, nil, 0o644)
	})
	g.Execute(ActFileCreate, map[string]string{"path": path}, func() error { return errors.New("nope") })

	rows, err := g.Timeline(10)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Status != store.StatusFailed || rows[1].Status != store.StatusOK {
		t.Errorf("statuses wrong: %s, %s", rows[0].Status, rows[1].Status)
	}
}
