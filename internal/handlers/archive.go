package handlers

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/safety"
	"deskhand/internal/session"
)

// ============================================================================
// COMPRESS / EXTRACT
// ============================================================================

func archiveHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name:        intent.KindCompress,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				_, zipPath := compressPaths(params, view)
				return safety.ActFileCreate, map[string]string{"path": zipPath}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				src, zipPath := compressPaths(params, view)
				if _, err := os.Stat(src); err != nil {
					return registry.Result{}, fmt.Errorf("cannot compress %s: %w", src, err)
				}
				if err := zipPathInto(src, zipPath); err != nil {
					return registry.Result{}, err
				}
				d.Session.Touch(zipPath)
				return registry.Result{Message: "Created " + zipPath}, nil
			},
		},
		{
			Name:        intent.KindExtract,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				_, destDir := extractPaths(params, view)
				return safety.ActFolderCreate, map[string]string{"path": destDir}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				archive, destDir := extractPaths(params, view)
				if err := unzipInto(archive, destDir); err != nil {
					return registry.Result{}, err
				}
				d.Session.Touch(destDir)
				return registry.Result{Message: "Extracted into " + destDir}, nil
			},
		},
	}
}

func compressPaths(params map[string]string, view session.View) (string, string) {
	src := resolveTarget(params["name"], "", view)
	return src, src + ".zip"
}

func extractPaths(params map[string]string, view session.View) (string, string) {
	archive := resolveTarget(params["name"], "", view)
	dest := strings.TrimSuffix(archive, filepath.Ext(archive))
	return archive, dest
}

func zipPathInto(src, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return addZipEntry(zw, src, filepath.Base(src))
	}

	base := filepath.Base(src)
	return filepath.WalkDir(src, func(path string, e os.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addZipEntry(zw, path, filepath.ToSlash(filepath.Join(base, rel)))
	})
}

func addZipEntry(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func unzipInto(archive, destDir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("cannot extract %s: %w", archive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		// Reject entries that would escape the destination.
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
