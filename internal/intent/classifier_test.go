package intent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"deskhand/internal/normalize"
)

// fakeContext is a minimal session stand-in.
type fakeContext struct {
	location string
	aliases  map[string]string
}

func (f *fakeContext) CurrentLocation() string { return f.location }
func (f *fakeContext) ResolveLocation(ref string) string {
	if p, ok := f.aliases[ref]; ok {
		return p
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(f.location, ref)
}
func (f *fakeContext) RecentSummary(n int) []string { return nil }

// fakeBackend returns a canned reply or error.
type fakeBackend struct {
	reply string
	err   error
	calls int
}

func (f *fakeBackend) Infer(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestContext() *fakeContext {
	return &fakeContext{
		location: "/home/u",
		aliases: map[string]string{
			"documents": "/home/u/Documents",
			"downloads": "/home/u/Downloads",
		},
	}
}

func classifyText(t *testing.T, c *Classifier, text string) (Intent, error) {
	t.Helper()
	n := normalize.New(Vocabulary(), nil)
	return c.Classify(context.Background(), text, n.Normalize(text), newTestContext())
}

func TestClassifyNavigation(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "go to documents")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if in.Kind != KindNavigate {
		t.Fatalf("expected navigate, got %s", in.Kind)
	}
	if in.Param("location") != "/home/u/Documents" {
		t.Errorf("location alias not resolved, got %q", in.Param("location"))
	}
	if in.Confidence < DispatchThreshold {
		t.Errorf("navigation should clear dispatch threshold, got %.2f", in.Confidence)
	}
}

func TestClassifyMoveExtractsSlots(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "move file report.txt to downloads")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if in.Kind != KindMoveFile {
		t.Fatalf("expected move_file, got %s", in.Kind)
	}
	if in.Param("source") != "report.txt" {
		t.Errorf("expected source=report.txt, got %q", in.Param("source"))
	}
	if in.Param("destination") != "/home/u/Downloads" {
		t.Errorf("expected resolved destination, got %q", in.Param("destination"))
	}
}

func TestClassifyWithTypos(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "crete flder notes")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if in.Kind != KindCreateFolder {
		t.Fatalf("expected create_folder, got %s", in.Kind)
	}
	if in.Param("name") != "notes" {
		t.Errorf("expected name=notes, got %q", in.Param("name"))
	}
}

func TestClassifyAmbiguousDeleteAsksForClarification(t *testing.T) {
	c := NewClassifier(nil)

	// No extension, no "file"/"folder" target word: both destructive
	// readings are close, so the classifier must ask, not guess.
	_, err := classifyText(t, c, "delete reports")
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("expected *AmbiguousError, got %T: %v", err, err)
	}
	if len(amb.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(amb.Candidates))
	}
}

func TestClassifyExplicitDeleteFileIsUnambiguous(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "delete file report.txt")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if in.Kind != KindDeleteFile {
		t.Fatalf("expected delete_file, got %s", in.Kind)
	}
	if in.Param("name") != "report.txt" {
		t.Errorf("expected name=report.txt, got %q", in.Param("name"))
	}
}

func TestClassifyUndoFamily(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "undo")
	if err != nil || in.Kind != KindUndoLast {
		t.Errorf("expected undo_last, got %s err=%v", in.Kind, err)
	}

	in, err = classifyText(t, c, "undo everything from the last 2 hours")
	if err != nil || in.Kind != KindUndoSince {
		t.Fatalf("expected undo_since, got %s err=%v", in.Kind, err)
	}
	if in.Param("n") != "2" || in.Param("unit") != "hours" {
		t.Errorf("expected n=2 unit=hours, got %v", in.Params)
	}
}

func TestClassifyUnknownNeverFails(t *testing.T) {
	c := NewClassifier(nil)

	in, err := classifyText(t, c, "qwxzvb frobnicate")
	if err != nil {
		t.Fatalf("Classify must not fail, got %v", err)
	}
	if in.Kind == KindUnknown {
		if in.Param("input") == "" {
			t.Error("unknown intent must carry the original input")
		}
		return
	}
	// A low-confidence deterministic candidate is also acceptable, but it
	// must not clear the dispatch threshold.
	if in.Confidence >= DispatchThreshold {
		t.Errorf("gibberish must not reach dispatch confidence, got %s %.2f", in.Kind, in.Confidence)
	}
}

func TestClassifyBackendFallback(t *testing.T) {
	backend := &fakeBackend{reply: `{"kind":"screenshot","params":{"name":"shot.png"},"confidence":0.8}`}
	c := NewClassifier(backend)

	in, err := classifyText(t, c, "grab me an image of whats on screen")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if backend.calls != 1 {
		t.Fatalf("backend should be consulted once, got %d", backend.calls)
	}
	if in.Kind != KindScreenshot {
		t.Errorf("expected screenshot from backend, got %s", in.Kind)
	}
	if in.Param("name") != "shot.png" {
		t.Errorf("backend params not carried, got %v", in.Params)
	}
}

func TestClassifyBackendTimeoutFallsBackDeterministically(t *testing.T) {
	backend := &fakeBackend{err: errors.New("deadline exceeded")}
	c := NewClassifier(backend)

	in, err := classifyText(t, c, "blorp the gizmo")
	if err != nil {
		t.Fatalf("Classify must not fail on backend error, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("backend should have been tried, calls=%d", backend.calls)
	}
	if in.Kind != KindUnknown && in.Confidence >= DispatchThreshold {
		t.Errorf("fallback must stay below dispatch threshold, got %s %.2f", in.Kind, in.Confidence)
	}
}

func TestClassifyBackendInvalidKindRejected(t *testing.T) {
	backend := &fakeBackend{reply: `{"kind":"format_disk","confidence":0.99}`}
	c := NewClassifier(backend)

	in, err := classifyText(t, c, "blorp the gizmo")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if in.Kind == Kind("format_disk") {
		t.Error("kinds outside the closed set must be rejected")
	}
}

func TestClassifyHighConfidenceSkipsBackend(t *testing.T) {
	backend := &fakeBackend{reply: `{"kind":"shutdown","confidence":0.9}`}
	c := NewClassifier(backend)

	in, err := classifyText(t, c, "go to documents")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend must not be consulted when a rule clears the threshold, calls=%d", backend.calls)
	}
	if in.Kind != KindNavigate {
		t.Errorf("expected navigate, got %s", in.Kind)
	}
}
