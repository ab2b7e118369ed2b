package safety

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ============================================================================
// INVERSE DERIVATION
// ============================================================================

// deriveInverse computes the reversing operation for an action, or nil
// when the action cannot be reversed.
func deriveInverse(kind string, params map[string]string, stash string) map[string]string {
	switch kind {
	case ActFileCreate, ActFolderCreate, ActFileCopy:
		path := params["path"]
		if kind == ActFileCopy {
			path = params["destination"]
		}
		if path == "" {
			return nil
		}
		return map[string]string{"op": "delete", "path": path}

	case ActFileDelete, ActFolderDelete:
		if stash == "" {
			// Nothing existed to stash, so there is nothing to restore.
			return nil
		}
		return map[string]string{"op": "restore", "path": params["path"], "stash": stash}

	case ActFileMove:
		src, dst := params["source"], params["destination"]
		if src == "" || dst == "" {
			return nil
		}
		return map[string]string{"op": "move", "source": dst, "destination": src}

	case ActFileRename:
		oldPath, newPath := params["path"], params["newpath"]
		if oldPath == "" || newPath == "" {
			return nil
		}
		return map[string]string{"op": "move", "source": newPath, "destination": oldPath}

	case ActFileRestore:
		if params["path"] == "" {
			return nil
		}
		return map[string]string{"op": "delete", "path": params["path"]}
	}
	return nil
}

// inverseAction maps a stored inverse back onto an action kind, so the
// undo itself flows through the gate and lands in the ledger.
func inverseAction(inv map[string]string) (string, map[string]string) {
	switch inv["op"] {
	case "restore":
		return ActFileRestore, map[string]string{"path": inv["path"], "stash": inv["stash"]}
	case "move":
		return ActFileMove, map[string]string{"source": inv["source"], "destination": inv["destination"]}
	case "delete":
		return ActFileDelete, map[string]string{"path": inv["path"]}
	}
	return "undo", inv
}

// applyInverse performs the reversing filesystem operation.
func applyInverse(inv map[string]string) error {
	switch inv["op"] {
	case "delete":
		path := inv["path"]
		if path == "" {
			return fmt.Errorf("inverse delete without path")
		}
		return os.RemoveAll(path)

	case "move":
		src, dst := inv["source"], inv["destination"]
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("inverse move source: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.Rename(src, dst)

	case "restore":
		path, stash := inv["path"], inv["stash"]
		info, err := os.Stat(stash)
		if err != nil {
			return fmt.Errorf("inverse restore stash: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		// Copy rather than move so the stash survives repeated undos.
		if info.IsDir() {
			return copyTree(stash, path)
		}
		return copyFile(stash, path)
	}
	return fmt.Errorf("unknown inverse op %q", inv["op"])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
