package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/session"
	"deskhand/internal/store"
)

// ============================================================================
// ACTIVITY QUERIES
// ============================================================================

func activityHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name: intent.KindWhatDoing,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				since, until := parseWhen(params["when"])
				events, err := d.Store.Find(store.Filter{Since: since, Until: until, Limit: 15})
				if err != nil {
					return registry.Result{}, err
				}
				if len(events) == 0 {
					return registry.Result{Message: "No recorded activity for that period"}, nil
				}
				details := make([]string, 0, len(events))
				for _, ev := range events {
					details = append(details, describeEvent(ev))
				}
				return registry.Result{
					Message: fmt.Sprintf("%d recent action(s)", len(events)),
					Details: details,
				}, nil
			},
		},
		{
			Name: intent.KindContinueWork,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				events, err := d.Store.Find(store.Filter{Kind: string(intent.KindNavigate), Limit: 1})
				if err != nil {
					return registry.Result{}, err
				}
				if len(events) == 0 {
					return registry.Result{Message: "Nothing to continue, no previous session found"}, nil
				}
				loc := events[0].Params["location"]
				if loc != "" {
					d.Session.Navigate(loc)
				}
				details := d.Session.RecentPaths()
				if len(details) > 5 {
					details = details[:5]
				}
				return registry.Result{
					Message: "Continuing in " + d.Session.CurrentLocation(),
					Details: details,
				}, nil
			},
		},
		{
			Name: intent.KindFindProject,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				project := params["project"]
				if project == "" {
					return registry.Result{}, fmt.Errorf("no project name given")
				}
				events, err := d.Store.Find(store.Filter{Substring: project, Limit: 20})
				if err != nil {
					return registry.Result{}, err
				}
				seen := map[string]bool{}
				var details []string
				for _, ev := range events {
					for _, key := range []string{"path", "name", "source", "destination", "location"} {
						if p := ev.Params[key]; p != "" && strings.Contains(strings.ToLower(p), strings.ToLower(project)) && !seen[p] {
							seen[p] = true
							details = append(details, p)
						}
					}
				}
				if len(details) == 0 {
					return registry.Result{Message: fmt.Sprintf("No recorded files related to %q", project)}, nil
				}
				return registry.Result{
					Message: fmt.Sprintf("%d file(s) related to %q", len(details), project),
					Details: details,
				}, nil
			},
		},
		{
			Name: intent.KindCapabilities,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				caps := d.Caps()
				details := make([]string, 0, len(caps))
				for _, c := range caps {
					line := string(c.Kind)
					if c.Destructive {
						line += " (tracked in undo timeline)"
					}
					details = append(details, line)
				}
				return registry.Result{
					Message: fmt.Sprintf("I can do %d things", len(details)),
					Details: details,
				}, nil
			},
		},
	}
}

func describeEvent(ev store.Event) string {
	line := ev.Timestamp.Format("Mon 15:04") + "  " + ev.Kind
	if ev.Raw != "" {
		line += "  " + ev.Raw
	}
	return line
}

// parseWhen maps a spoken time reference onto a query window. Unknown
// phrases fall back to the last 24 hours.
func parseWhen(when string) (time.Time, time.Time) {
	now := time.Now()
	when = strings.ToLower(strings.TrimSpace(when))

	switch when {
	case "":
		return now.Add(-24 * time.Hour), time.Time{}
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), time.Time{}
	case "yesterday":
		y, m, d := now.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Add(-24 * time.Hour)
		return start, start.Add(24 * time.Hour)
	case "this morning":
		y, m, d := now.Date()
		return time.Date(y, m, d, 5, 0, 0, 0, now.Location()), time.Time{}
	case "last week":
		return now.Add(-7 * 24 * time.Hour), time.Time{}
	}

	// "N hours ago", "N minutes ago"
	fields := strings.Fields(when)
	if len(fields) >= 2 {
		if n, err := strconv.Atoi(fields[0]); err == nil {
			switch {
			case strings.HasPrefix(fields[1], "hour"):
				return now.Add(-time.Duration(n) * time.Hour), time.Time{}
			case strings.HasPrefix(fields[1], "minute"):
				return now.Add(-time.Duration(n) * time.Minute), time.Time{}
			case strings.HasPrefix(fields[1], "day"):
				return now.Add(-time.Duration(n) * 24 * time.Hour), time.Time{}
			}
		}
	}
	return now.Add(-24 * time.Hour), time.Time{}
}
