package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/safety"
	"deskhand/internal/session"
)

// ============================================================================
// FILE OPERATIONS
// ============================================================================

func fileHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name:        intent.KindCreateFile,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				path := resolveTarget(params["name"], params["location"], view)
				return safety.ActFileCreate, map[string]string{"path": path}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				path := resolveTarget(params["name"], params["location"], view)
				if path == "" {
					return registry.Result{}, fmt.Errorf("no file name given")
				}
				if _, err := os.Stat(path); err == nil {
					return registry.Result{}, fmt.Errorf("%s already exists", path)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return registry.Result{}, err
				}
				if err := os.WriteFile(path, nil, 0o644); err != nil {
					return registry.Result{}, err
				}
				d.Session.Touch(path)
				return registry.Result{Message: "Created " + path}, nil
			},
		},
		{
			Name:        intent.KindCreateFolder,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				path := resolveTarget(params["name"], params["location"], view)
				return safety.ActFolderCreate, map[string]string{"path": path}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				path := resolveTarget(params["name"], params["location"], view)
				if path == "" {
					return registry.Result{}, fmt.Errorf("no folder name given")
				}
				if _, err := os.Stat(path); err == nil {
					return registry.Result{}, fmt.Errorf("%s already exists", path)
				}
				if err := os.MkdirAll(path, 0o755); err != nil {
					return registry.Result{}, err
				}
				d.Session.Touch(path)
				return registry.Result{Message: "Created folder " + path}, nil
			},
		},
		{
			Name:        intent.KindDeleteFile,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				path := resolveTarget(params["name"], params["location"], view)
				return safety.ActFileDelete, map[string]string{"path": path}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				path := resolveTarget(params["name"], params["location"], view)
				info, err := os.Stat(path)
				if err != nil {
					return registry.Result{}, fmt.Errorf("cannot delete %s: %w", path, err)
				}
				if info.IsDir() {
					return registry.Result{}, fmt.Errorf("%s is a folder, say delete folder", path)
				}
				if err := os.Remove(path); err != nil {
					return registry.Result{}, err
				}
				return registry.Result{Message: "Deleted " + path + " (undo available)"}, nil
			},
		},
		{
			Name:        intent.KindDeleteFolder,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				path := resolveTarget(params["name"], params["location"], view)
				return safety.ActFolderDelete, map[string]string{"path": path}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				path := resolveTarget(params["name"], params["location"], view)
				info, err := os.Stat(path)
				if err != nil {
					return registry.Result{}, fmt.Errorf("cannot delete %s: %w", path, err)
				}
				if !info.IsDir() {
					return registry.Result{}, fmt.Errorf("%s is a file, say delete file", path)
				}
				if err := os.RemoveAll(path); err != nil {
					return registry.Result{}, err
				}
				return registry.Result{Message: "Deleted folder " + path + " (undo available)"}, nil
			},
		},
		{
			Name:        intent.KindMoveFile,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				src, dst := resolveMove(params, view)
				return safety.ActFileMove, map[string]string{"source": src, "destination": dst}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				src, dst := resolveMove(params, view)
				if _, err := os.Stat(src); err != nil {
					return registry.Result{}, fmt.Errorf("cannot move %s: %w", src, err)
				}
				if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
					return registry.Result{}, err
				}
				if err := os.Rename(src, dst); err != nil {
					return registry.Result{}, err
				}
				d.Session.Touch(dst)
				return registry.Result{Message: fmt.Sprintf("Moved %s to %s", src, dst)}, nil
			},
		},
		{
			Name:        intent.KindRenameFile,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				src, dst := resolveRename(params, view)
				return safety.ActFileRename, map[string]string{"path": src, "newpath": dst}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				src, dst := resolveRename(params, view)
				if _, err := os.Stat(src); err != nil {
					return registry.Result{}, fmt.Errorf("cannot rename %s: %w", src, err)
				}
				if _, err := os.Stat(dst); err == nil {
					return registry.Result{}, fmt.Errorf("%s already exists", dst)
				}
				if err := os.Rename(src, dst); err != nil {
					return registry.Result{}, err
				}
				return registry.Result{Message: fmt.Sprintf("Renamed %s to %s", src, filepath.Base(dst))}, nil
			},
		},
		{
			Name:        intent.KindCopyFile,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				src, dst := resolveMove(params, view)
				return safety.ActFileCopy, map[string]string{"source": src, "destination": dst}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				src, dst := resolveMove(params, view)
				if err := copyPath(src, dst); err != nil {
					return registry.Result{}, err
				}
				return registry.Result{Message: fmt.Sprintf("Copied %s to %s", src, dst)}, nil
			},
		},
	}
}

// resolveMove resolves source and destination. A destination that is an
// existing folder receives the source under its own name.
func resolveMove(params map[string]string, view session.View) (string, string) {
	src := resolveTarget(params["source"], "", view)
	dst := params["destination"]
	if !filepath.IsAbs(dst) {
		dst = view.ResolveLocation(dst)
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	return src, dst
}

// resolveRename keeps a bare new name next to the source.
func resolveRename(params map[string]string, view session.View) (string, string) {
	src := resolveTarget(params["source"], "", view)
	dst := params["destination"]
	if !filepath.IsAbs(dst) {
		dst = filepath.Join(filepath.Dir(src), dst)
	}
	return src, dst
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("cannot copy %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyOne(src, dst, info.Mode().Perm())
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, e os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if e.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		return copyOne(path, target, info.Mode().Perm())
	})
}

func copyOne(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
