package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deskhand/internal/logging"
	"deskhand/internal/store"
)

// ============================================================================
// SESSION STATE
// ============================================================================

// Session tracks where the user is and where they have been: the
// current location, a bounded navigation history for "go back", a ring
// of recently touched paths, and named favorites. All methods are safe
// for concurrent use.
type Session struct {
	mu        sync.RWMutex
	id        string
	location  string
	history   []string
	recent    []string
	favorites map[string]string

	historyDepth int
	recentWindow int
	st           *store.Store
}

// View is the read-only surface handed to command handlers. Handlers
// observe session state but only the engine mutates it.
type View interface {
	CurrentLocation() string
	ResolveLocation(ref string) string
	RecentPaths() []string
	Favorite(name string) (string, bool)
}

type snapshot struct {
	Location  string            `json:"location"`
	History   []string          `json:"history"`
	Recent    []string          `json:"recent"`
	Favorites map[string]string `json:"favorites,omitempty"`
}

// New builds a session rooted at the user's home directory, restoring
// the previous snapshot from the store when one exists.
func New(id string, st *store.Store, historyDepth, recentWindow int) (*Session, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}
	if historyDepth <= 0 {
		historyDepth = 32
	}
	if recentWindow <= 0 {
		recentWindow = 50
	}

	s := &Session{
		id:           id,
		location:     home,
		favorites:    map[string]string{},
		historyDepth: historyDepth,
		recentWindow: recentWindow,
		st:           st,
	}

	if st != nil {
		state, err := st.LoadSession(id)
		switch {
		case err == nil:
			var snap snapshot
			if err := json.Unmarshal([]byte(state), &snap); err == nil {
				s.restore(snap)
				logging.Get(logging.CategorySession).Infow("session restored",
					"id", id, "location", s.location)
			}
		case err != store.ErrSessionNotFound:
			return nil, fmt.Errorf("restore session: %w", err)
		}
	}
	return s, nil
}

func (s *Session) restore(snap snapshot) {
	if snap.Location != "" {
		s.location = snap.Location
	}
	s.history = snap.History
	s.recent = snap.Recent
	if snap.Favorites != nil {
		s.favorites = snap.Favorites
	}
}

// Save writes the current snapshot to the store.
func (s *Session) Save() error {
	if s.st == nil {
		return nil
	}
	s.mu.RLock()
	snap := snapshot{
		Location:  s.location,
		History:   append([]string(nil), s.history...),
		Recent:    append([]string(nil), s.recent...),
		Favorites: s.favorites,
	}
	s.mu.RUnlock()

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.st.SaveSession(s.id, string(b))
}

// CurrentLocation returns the directory the session points at.
func (s *Session) CurrentLocation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// Navigate moves to path, pushing the old location onto the back
// stack. Navigating to the current location is a no-op so repeated
// commands do not pollute history.
func (s *Session) Navigate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == s.location {
		return
	}
	s.history = append(s.history, s.location)
	if len(s.history) > s.historyDepth {
		s.history = s.history[len(s.history)-s.historyDepth:]
	}
	s.location = path
}

// Back pops the back stack and returns the restored location. The
// second return is false when history is empty.
func (s *Session) Back() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return s.location, false
	}
	s.location = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return s.location, true
}

// Touch notes that a path was just used, moving it to the front of the
// recent ring.
func (s *Session) Touch(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.recent)+1)
	out = append(out, path)
	for _, p := range s.recent {
		if p != path {
			out = append(out, p)
		}
	}
	if len(out) > s.recentWindow {
		out = out[:s.recentWindow]
	}
	s.recent = out
}

// RecentPaths returns the recent ring, most recent first.
func (s *Session) RecentPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.recent...)
}

// SetFavorite records a named shortcut path.
func (s *Session) SetFavorite(name, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites[strings.ToLower(name)] = path
}

// Favorite looks up a named shortcut.
func (s *Session) Favorite(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.favorites[strings.ToLower(name)]
	return p, ok
}

// ResolveLocation turns a spoken location reference into an absolute
// path: well-known aliases first, then favorites, then paths relative
// to the current location. Absolute paths pass through.
func (s *Session) ResolveLocation(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.CurrentLocation()
	}
	if p, ok := aliasPath(ref); ok {
		return p
	}
	if p, ok := s.Favorite(ref); ok {
		return p
	}
	if strings.HasPrefix(ref, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, ref[2:])
		}
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	if ref == "here" || ref == "." {
		return s.CurrentLocation()
	}
	return filepath.Join(s.CurrentLocation(), ref)
}

// RecentSummary returns short one-line descriptions of the n most
// recent logged events, for classifier prompts and "what was I doing".
func (s *Session) RecentSummary(n int) []string {
	if s.st == nil {
		return nil
	}
	events, err := s.st.Recent(n)
	if err != nil {
		logging.Get(logging.CategorySession).Warnw("recent summary failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(events))
	for _, ev := range events {
		line := ev.Kind
		if ev.Raw != "" {
			line += ": " + ev.Raw
		}
		out = append(out, line)
	}
	return out
}

// aliasPath maps the spoken names of the main folders.
func aliasPath(ref string) (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	switch strings.ToLower(ref) {
	case "home":
		return home, true
	case "desktop":
		return filepath.Join(home, "Desktop"), true
	case "documents", "docs":
		return filepath.Join(home, "Documents"), true
	case "downloads":
		return filepath.Join(home, "Downloads"), true
	case "pictures", "photos":
		return filepath.Join(home, "Pictures"), true
	case "music":
		return filepath.Join(home, "Music"), true
	case "videos":
		return filepath.Join(home, "Videos"), true
	case "root":
		return "/", true
	}
	return "", false
}
