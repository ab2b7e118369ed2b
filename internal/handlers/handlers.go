package handlers

import (
	"path/filepath"
	"strings"

	"deskhand/internal/registry"
	"deskhand/internal/safety"
	"deskhand/internal/session"
	"deskhand/internal/store"
)

// ============================================================================
// HANDLER WIRING
// ============================================================================

// Deps carries everything handlers need. The concrete session is here
// because navigation handlers mutate it; everything else sees the
// read-only view the registry passes in.
type Deps struct {
	Session *session.Session
	Store   *store.Store
	Gate    *safety.Gate

	// Caps is injected by the engine to avoid a registry cycle.
	Caps func() []registry.Capability
}

// RegisterAll installs every handler into the registry. The registry's
// completeness check runs after this, so a kind missing here fails at
// boot.
func RegisterAll(r *registry.Registry, d Deps) error {
	groups := [][]registry.Handler{
		navigationHandlers(d),
		listingHandlers(d),
		fileHandlers(d),
		archiveHandlers(d),
		systemHandlers(d),
		activityHandlers(d),
		undoHandlers(d),
	}
	for _, group := range groups {
		for _, h := range group {
			if err := r.Register(h); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveTarget turns a spoken file reference into an absolute path:
// absolute and ~ paths via the session resolver, bare names against an
// explicit location param or the current location.
func resolveTarget(name, location string, view session.View) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "~/") {
		return view.ResolveLocation(name)
	}
	base := view.CurrentLocation()
	if location != "" {
		base = view.ResolveLocation(location)
	}
	return filepath.Join(base, name)
}
