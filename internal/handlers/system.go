package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"deskhand/internal/intent"
	"deskhand/internal/registry"
	"deskhand/internal/session"
)

// ============================================================================
// SYSTEM OPERATIONS
// ============================================================================

// screenshotTools in preference order. The first one on PATH wins.
var screenshotTools = [][]string{
	{"gnome-screenshot", "-f"},
	{"spectacle", "-b", "-o"},
	{"scrot"},
	{"screencapture"},
}

func systemHandlers(d Deps) []registry.Handler {
	return []registry.Handler{
		{
			Name: intent.KindScreenshot,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				name := params["name"]
				if name == "" {
					name = "screenshot_" + time.Now().Format("20060102_150405") + ".png"
				}
				path := resolveTarget(name, "", view)
				for _, tool := range screenshotTools {
					if _, err := exec.LookPath(tool[0]); err != nil {
						continue
					}
					args := append(append([]string(nil), tool[1:]...), path)
					if err := exec.CommandContext(ctx, tool[0], args...).Run(); err != nil {
						return registry.Result{}, fmt.Errorf("%s failed: %w", tool[0], err)
					}
					d.Session.Touch(path)
					return registry.Result{Message: "Screenshot saved to " + path}, nil
				}
				return registry.Result{}, fmt.Errorf("no screenshot tool found")
			},
		},
		{
			Name:        intent.KindKillProcess,
			Destructive: true,
			// No derivable inverse: the gate records the kill with a null
			// one and the timeline shows it as not undoable.
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				return "process_kill", map[string]string{"process": params["process"]}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				proc := params["process"]
				if proc == "" {
					return registry.Result{}, fmt.Errorf("no process name given")
				}
				if err := exec.CommandContext(ctx, "pkill", "-f", proc).Run(); err != nil {
					return registry.Result{}, fmt.Errorf("no process matching %q", proc)
				}
				return registry.Result{Message: "Terminated " + proc}, nil
			},
		},
		{
			Name:        intent.KindShutdown,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				return "system_shutdown", map[string]string{"delay": params["delay"]}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				delay := params["delay"]
				if delay == "" {
					delay = "1"
				}
				if err := exec.CommandContext(ctx, "shutdown", "-h", "+"+delay).Run(); err != nil {
					return registry.Result{}, fmt.Errorf("shutdown failed: %w", err)
				}
				return registry.Result{Message: fmt.Sprintf("Shutting down in %s minute(s), say cancel shutdown to stop", delay)}, nil
			},
		},
		{
			Name:        intent.KindRestart,
			Destructive: true,
			Action: func(params map[string]string, view session.View) (string, map[string]string) {
				return "system_restart", map[string]string{"delay": params["delay"]}
			},
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				delay := params["delay"]
				if delay == "" {
					delay = "1"
				}
				if err := exec.CommandContext(ctx, "shutdown", "-r", "+"+delay).Run(); err != nil {
					return registry.Result{}, fmt.Errorf("restart failed: %w", err)
				}
				return registry.Result{Message: fmt.Sprintf("Restarting in %s minute(s), say cancel restart to stop", delay)}, nil
			},
		},
		{
			Name: intent.KindCancelShutdown,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				if err := exec.CommandContext(ctx, "shutdown", "-c").Run(); err != nil {
					return registry.Result{}, fmt.Errorf("nothing to cancel: %w", err)
				}
				return registry.Result{Message: "Shutdown cancelled"}, nil
			},
		},
		{
			Name: intent.KindOpenApp,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				app := params["app"]
				if app == "" {
					return registry.Result{}, fmt.Errorf("no application given")
				}
				if _, err := exec.LookPath(app); err != nil {
					return registry.Result{}, fmt.Errorf("application %q not found", app)
				}
				cmd := exec.Command(app)
				if err := cmd.Start(); err != nil {
					return registry.Result{}, fmt.Errorf("launch %s: %w", app, err)
				}
				go cmd.Wait() // reap, we do not track it
				return registry.Result{Message: "Launched " + app}, nil
			},
		},
		{
			Name: intent.KindCheckStorage,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				var fs unix.Statfs_t
				if err := unix.Statfs(view.CurrentLocation(), &fs); err != nil {
					return registry.Result{}, fmt.Errorf("check storage: %w", err)
				}
				total := fs.Blocks * uint64(fs.Bsize)
				free := fs.Bavail * uint64(fs.Bsize)
				msg := fmt.Sprintf("%s free of %s on %s",
					humanBytes(free), humanBytes(total), view.CurrentLocation())
				return registry.Result{Message: msg}, nil
			},
		},
		{
			Name: intent.KindSystemInfo,
			Run: func(ctx context.Context, params map[string]string, view session.View) (registry.Result, error) {
				host, _ := os.Hostname()
				details := []string{
					"host: " + host,
					"os: " + runtime.GOOS + "/" + runtime.GOARCH,
					fmt.Sprintf("cpus: %d", runtime.NumCPU()),
					"location: " + view.CurrentLocation(),
				}
				return registry.Result{Message: "System information", Details: details}, nil
			},
		},
	}
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
