package workflow

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ============================================================================
// STEP GUARDS
// ============================================================================

// guardEnv is what guard expressions can see. Guards are pure reads:
// they inspect the filesystem and the clock, never mutate.
type guardEnv struct {
	Location string `expr:"location"`
	Hour     int    `expr:"hour"`
	Weekday  string `expr:"weekday"`

	Exists func(path string) bool   `expr:"exists"`
	IsDir  func(path string) bool   `expr:"is_dir"`
	HasExt func(p, ext string) bool `expr:"has_ext"`
}

func newGuardEnv(location string) guardEnv {
	now := time.Now()
	return guardEnv{
		Location: location,
		Hour:     now.Hour(),
		Weekday:  strings.ToLower(now.Weekday().String()),
		Exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		IsDir: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		},
		HasExt: func(p, ext string) bool {
			return strings.HasSuffix(strings.ToLower(p), strings.ToLower(ext))
		},
	}
}

// checkGuard compiles the expression at plan-compile time so a bad
// guard fails before any step runs.
func checkGuard(src string) error {
	_, err := compileGuard(src)
	return err
}

func compileGuard(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(guardEnv{}), expr.AsBool())
}

func evalGuard(src, location string) (bool, error) {
	prog, err := compileGuard(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(prog, newGuardEnv(location))
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("guard %q did not yield a boolean", src)
	}
	return ok, nil
}
