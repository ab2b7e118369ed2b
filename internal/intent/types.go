// Package intent defines the closed set of operations deskhand understands
// and the two-phase classifier that maps normalized input onto them. Phase
// one is a deterministic priority-ordered rule table; phase two delegates to
// the local LLM backend when no rule clears the dispatch threshold.
package intent

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one supported operation. The set is closed: the registry
// verifies at construction time that every dispatchable Kind has a handler.
type Kind string

const (
	// Navigation
	KindNavigate Kind = "navigate"
	KindBack     Kind = "back"
	KindWhere    Kind = "where"

	// Listing and search
	KindListFiles   Kind = "list_files"
	KindListFolders Kind = "list_folders"
	KindListAll     Kind = "list_all"
	KindSearch      Kind = "search"

	// File operations
	KindCreateFile   Kind = "create_file"
	KindCreateFolder Kind = "create_folder"
	KindDeleteFile   Kind = "delete_file"
	KindDeleteFolder Kind = "delete_folder"
	KindMoveFile     Kind = "move_file"
	KindRenameFile   Kind = "rename_file"
	KindCopyFile     Kind = "copy_file"
	KindCompress     Kind = "compress"
	KindExtract      Kind = "extract"

	// System
	KindScreenshot     Kind = "screenshot"
	KindKillProcess    Kind = "kill_process"
	KindShutdown       Kind = "shutdown"
	KindRestart        Kind = "restart"
	KindCancelShutdown Kind = "cancel_shutdown"
	KindOpenApp        Kind = "open_app"
	KindCheckStorage   Kind = "check_storage"
	KindSystemInfo     Kind = "system_info"

	// Context memory
	KindWhatDoing    Kind = "what_doing"
	KindContinueWork Kind = "continue_work"
	KindFindProject  Kind = "find_project"

	// Safety net
	KindUndoLast     Kind = "undo_last"
	KindUndoSince    Kind = "undo_since"
	KindUndoTimeline Kind = "undo_timeline"

	// Meta
	KindCapabilities Kind = "capabilities"
	KindUnknown      Kind = "unknown"
)

// All returns every dispatchable Kind. KindUnknown is excluded: it is never
// dispatched, only reported.
func All() []Kind {
	return []Kind{
		KindNavigate, KindBack, KindWhere,
		KindListFiles, KindListFolders, KindListAll, KindSearch,
		KindCreateFile, KindCreateFolder, KindDeleteFile, KindDeleteFolder,
		KindMoveFile, KindRenameFile, KindCopyFile, KindCompress, KindExtract,
		KindScreenshot, KindKillProcess, KindShutdown, KindRestart,
		KindCancelShutdown, KindOpenApp, KindCheckStorage, KindSystemInfo,
		KindWhatDoing, KindContinueWork, KindFindProject,
		KindUndoLast, KindUndoSince, KindUndoTimeline,
		KindCapabilities,
	}
}

// Intent is the structured, parameterized form of one user request.
type Intent struct {
	Kind       Kind
	Params     map[string]string
	Confidence float64
	Raw        string // Original input, kept for logging and for "unknown"
	Timestamp  time.Time
}

// Param returns a named parameter or "".
func (in Intent) Param(name string) string {
	if in.Params == nil {
		return ""
	}
	return in.Params[name]
}

// String renders the intent for logs and the context store.
func (in Intent) String() string {
	if len(in.Params) == 0 {
		return string(in.Kind)
	}
	parts := make([]string, 0, len(in.Params))
	for k, v := range in.Params {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return fmt.Sprintf("%s(%s)", in.Kind, strings.Join(parts, " "))
}

// AmbiguousError is returned when two candidates of different kinds score
// within epsilon of each other. It is a clarification prompt, not a failure:
// the caller must ask the user rather than dispatch.
type AmbiguousError struct {
	Candidates []Intent
}

func (e *AmbiguousError) Error() string {
	kinds := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		kinds[i] = string(c.Kind)
	}
	return fmt.Sprintf("ambiguous input: did you mean %s?", strings.Join(kinds, " or "))
}

// LowConfidenceError is returned when the best candidate for an input
// scores below the dispatch threshold. Like AmbiguousError it asks the
// caller to clarify with the user instead of acting.
type LowConfidenceError struct {
	Candidate Intent
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("not confident this means %s (%.2f), please rephrase",
		e.Candidate.Kind, e.Candidate.Confidence)
}

// Context supplies session state for disambiguation and prompt building.
// Implemented by *session.Session; kept as an interface so the classifier
// has no session dependency.
type Context interface {
	CurrentLocation() string
	ResolveLocation(ref string) string
	RecentSummary(n int) []string
}
