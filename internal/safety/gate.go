package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"deskhand/internal/logging"
	"deskhand/internal/store"
)

// ============================================================================
// SAFETY GATE
// ============================================================================

// Action kinds the gate knows how to reverse. Anything else is still
// recorded, just not undoable.
const (
	ActFileCreate   = "file_create"
	ActFolderCreate = "folder_create"
	ActFileDelete   = "file_delete"
	ActFolderDelete = "folder_delete"
	ActFileMove     = "file_move"
	ActFileRename   = "file_rename"
	ActFileCopy     = "file_copy"
	ActFileRestore  = "file_restore"
)

// Gate wraps every destructive mutation: it writes a pending ledger row
// with a derived inverse before the mutation runs, stashes files about
// to be deleted, and flips the row to ok or failed afterwards. Undo
// replays inverses through the same path, so undos are themselves
// undoable.
type Gate struct {
	st       *store.Store
	stashDir string
}

// UndoResult reports what happened to one ledger row during an undo
// sweep.
type UndoResult struct {
	Action  store.ActionRow
	Applied bool
	Note    string
	Err     error
}

// NewGate builds a gate stashing deleted files under stashDir.
func NewGate(st *store.Store, stashDir string) (*Gate, error) {
	if err := os.MkdirAll(stashDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stash directory: %w", err)
	}
	return &Gate{st: st, stashDir: stashDir}, nil
}

// Execute records the action, runs fn, then seals the ledger row. The
// ledger row exists before fn touches the filesystem, so a crash
// mid-mutation still leaves a visible trace.
func (g *Gate) Execute(kind string, params map[string]string, fn func() error) error {
	return g.execute(kind, params, store.OriginUser, fn)
}

func (g *Gate) execute(kind string, params map[string]string, origin string, fn func() error) error {
	log := logging.Get(logging.CategoryLedger)

	row := store.ActionRow{Kind: kind, Params: params, Origin: origin}

	// Deletes get a stash copy first; the inverse restores from it.
	if kind == ActFileDelete || kind == ActFolderDelete {
		stash, err := g.stash(params["path"])
		if err != nil {
			return fmt.Errorf("stash before delete: %w", err)
		}
		row.Stash = stash
	}
	row.Inverse = deriveInverse(kind, params, row.Stash)

	row, err := g.st.AppendAction(row)
	if err != nil {
		return err
	}

	if err := fn(); err != nil {
		if serr := g.st.SetActionStatus(row.ID, store.StatusFailed); serr != nil {
			log.Warnw("failed to seal ledger row", "id", row.ID, "error", serr)
		}
		return err
	}
	if err := g.st.SetActionStatus(row.ID, store.StatusOK); err != nil {
		log.Warnw("failed to seal ledger row", "id", row.ID, "error", err)
	}
	log.Debugw("action sealed", "id", row.ID, "kind", kind)
	return nil
}

// Undo reverses the n most recent completed invertible actions, newest
// first, stopping at the first inverse that fails. Rows with no inverse
// are reported and skipped without counting toward n. Undo-generated
// rows are candidates here, so undoing an undo acts as redo.
func (g *Gate) Undo(n int) ([]UndoResult, error) {
	cand, err := g.st.UndoCandidates(time.Time{}, true)
	if err != nil {
		return nil, err
	}
	picked := make([]store.ActionRow, 0, n)
	invertible := 0
	for _, row := range cand {
		if invertible == n {
			break
		}
		picked = append(picked, row)
		if row.Inverse != nil {
			invertible++
		}
	}
	return g.sweep(picked)
}

// UndoSince reverses every completed user action newer than t, newest
// first. Replay rows from earlier undos are excluded: sweeping the same
// window again finds nothing left and reports a no-op.
func (g *Gate) UndoSince(t time.Time) ([]UndoResult, error) {
	cand, err := g.st.UndoCandidates(t, false)
	if err != nil {
		return nil, err
	}
	return g.sweep(cand)
}

// Timeline returns the n most recent ledger rows for display.
func (g *Gate) Timeline(n int) ([]store.ActionRow, error) {
	return g.st.Timeline(n)
}

func (g *Gate) sweep(cand []store.ActionRow) ([]UndoResult, error) {
	log := logging.Get(logging.CategoryLedger)
	results := make([]UndoResult, 0, len(cand))

	for _, row := range cand {
		if row.Inverse == nil {
			results = append(results, UndoResult{Action: row, Note: "not undoable"})
			continue
		}

		kind, params := inverseAction(row.Inverse)
		err := g.execute(kind, params, store.OriginUndo, func() error {
			return applyInverse(row.Inverse)
		})
		if err != nil {
			results = append(results, UndoResult{Action: row, Err: err})
			log.Warnw("undo halted", "id", row.ID, "kind", row.Kind, "error", err)
			return results, nil
		}

		if err := g.st.SetActionStatus(row.ID, store.StatusUndone); err != nil {
			log.Warnw("failed to mark row undone", "id", row.ID, "error", err)
		}
		results = append(results, UndoResult{Action: row, Applied: true})
	}
	return results, nil
}

// stash copies path into the stash directory and returns the copy's
// location. Missing sources stash nothing.
func (g *Gate) stash(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	dest := filepath.Join(g.stashDir, uuid.NewString()+"_"+filepath.Base(path))
	if info.IsDir() {
		err = copyTree(path, dest)
	} else {
		err = copyFile(path, dest)
	}
	if err != nil {
		return "", err
	}
	return dest, nil
}

// Prune removes stash entries older than the retention window.
func (g *Gate) Prune(retention time.Duration) error {
	entries, err := os.ReadDir(g.stashDir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-retention)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.RemoveAll(filepath.Join(g.stashDir, e.Name()))
		}
	}
	return nil
}
