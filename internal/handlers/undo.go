package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/safety"
	"deskhand/internal/session"
)

// ============================================================================
// UNDO
// ============================================================================

func undoHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name: intent.KindUndoLast,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				results, err := d.Gate.Undo(1)
				if err != nil {
					return registry.Result{}, err
				}
				return summarizeUndo(results), nil
			},
		},
		{
			Name: intent.KindUndoSince,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				window, err := undoWindow(params)
				if err != nil {
					return registry.Result{}, err
				}
				results, err := d.Gate.UndoSince(time.Now().Add(-window))
				if err != nil {
					return registry.Result{}, err
				}
				return summarizeUndo(results), nil
			},
		},
		{
			Name: intent.KindUndoTimeline,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				rows, err := d.Gate.Timeline(20)
				if err != nil {
					return registry.Result{}, err
				}
				if len(rows) == 0 {
					return registry.Result{Message: "Nothing in the undo timeline"}, nil
				}
				details := make([]string, 0, len(rows))
				for _, row := range rows {
					line := fmt.Sprintf("%s  %-14s %-8s", row.Timestamp.Format("Mon 15:04:05"), row.Kind, row.Status)
					if p := row.Params["path"]; p != "" {
						line += "  " + p
					} else if p := row.Params["source"]; p != "" {
						line += "  " + p
					}
					details = append(details, line)
				}
				return registry.Result{
					Message: fmt.Sprintf("%d ledger entries", len(rows)),
					Details: details,
				}, nil
			},
		},
	}
}

func undoWindow(params map[string]string) (time.Duration, error) {
	n := 1
	if raw := params["n"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, fmt.Errorf("bad duration %q", raw)
		}
		n = parsed
	}
	unit := params["unit"]
	switch {
	case strings.HasPrefix(unit, "minute"):
		return time.Duration(n) * time.Minute, nil
	case strings.HasPrefix(unit, "hour"):
		return time.Duration(n) * time.Hour, nil
	}
	return 0, fmt.Errorf("bad time unit %q", unit)
}

func summarizeUndo(results []safety.UndoResult) registry.Result {
	if len(results) == 0 {
		return registry.Result{Message: "Nothing to undo"}
	}
	var undone, skipped int
	var details []string
	for _, r := range results {
		switch {
		case r.Applied:
			undone++
			details = append(details, "undid "+describeAction(r))
		case r.Err != nil:
			details = append(details, fmt.Sprintf("stopped: %s failed: %v", r.Action.Kind, r.Err))
		default:
			skipped++
			details = append(details, r.Action.Kind+" "+r.Note)
		}
	}
	msg := fmt.Sprintf("Undid %d action(s)", undone)
	if skipped > 0 {
		msg += fmt.Sprintf(", skipped %d", skipped)
	}
	return registry.Result{Message: msg, Details: details}
}

func describeAction(r safety.UndoResult) string {
	line := r.Action.Kind
	if p := r.Action.Params["path"]; p != "" {
		line += " " + p
	} else if p := r.Action.Params["source"]; p != "" {
		line += " " + p
	}
	return line
}
