package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/session"
)

// ============================================================================
// NAVIGATION + LISTING
// ============================================================================

func navigationHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name: intent.KindNavigate,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				loc := params["location"]
				if loc == "" {
					return registry.Result{}, fmt.Errorf("no location given")
				}
				if !filepath.IsAbs(loc) {
					loc = view.ResolveLocation(loc)
				}
				info, err := os.Stat(loc)
				if err != nil {
					return registry.Result{}, fmt.Errorf("cannot open %s: %w", loc, err)
				}
				if !info.IsDir() {
					return registry.Result{}, fmt.Errorf("%s is not a folder", loc)
				}
				d.Session.Navigate(loc)
				d.Session.Touch(loc)
				return registry.Result{Message: "Now in " + loc}, nil
			},
		},
		{
			Name: intent.KindBack,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				loc, ok := d.Session.Back()
				if !ok {
					return registry.Result{Message: "No earlier location to go back to"}, nil
				}
				return registry.Result{Message: "Back in " + loc}, nil
			},
		},
		{
			Name: intent.KindWhere,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				return registry.Result{Message: view.CurrentLocation()}, nil
			},
		},
	}
}

func listingHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name: intent.KindListFiles,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				return listDir(view.CurrentLocation(), func(e os.DirEntry) bool { return !e.IsDir() })
			},
		},
		{
			Name: intent.KindListFolders,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				return listDir(view.CurrentLocation(), func(e os.DirEntry) bool { return e.IsDir() })
			},
		},
		{
			Name: intent.KindListAll,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				return listDir(view.CurrentLocation(), func(os.DirEntry) bool { return true })
			},
		},
		{
			Name: intent.KindSearch,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				query := params["query"]
				if query == "" {
					return registry.Result{}, fmt.Errorf("no search query given")
				}
				recursive := params["recursive"] != ""
				matches, err := searchNames(ctx, view.CurrentLocation(), query, recursive)
				if err != nil {
					return registry.Result{}, err
				}
				msg := fmt.Sprintf("Found %d match(es) for %q", len(matches), query)
				return registry.Result{Message: msg, Details: matches}, nil
			},
		},
	}
}

func listDir(dir string, keep func(os.DirEntry) bool) (registry.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return registry.Result{}, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if keep(e) {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return registry.Result{
		Message: fmt.Sprintf("%d item(s) in %s", len(names), dir),
		Details: names,
	}, nil
}

const searchLimit = 200

func searchNames(ctx context.Context, root, query string, recursive bool) ([]string, error) {
	q := strings.ToLower(query)
	var matches []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Name()), q) {
				matches = append(matches, filepath.Join(root, e.Name()))
			}
		}
		return matches, nil
	}

	err := filepath.WalkDir(root, func(path string, e os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(matches) >= searchLimit {
			return filepath.SkipAll
		}
		if strings.HasPrefix(e.Name(), ".") && e.IsDir() && path != root {
			return filepath.SkipDir
		}
		if strings.Contains(strings.ToLower(e.Name()), q) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
