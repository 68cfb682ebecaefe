// Package system restarts the running process.
package system

import (
	"fmt"
	"os"
	"syscall"

	"github.com/kilianp07/tariffticker/core/watchdog"
	"github.com/kilianp07/tariffticker/infra/logger"
)

// Hook runs just before the process is replaced or exits, typically to
// release hardware. Its error is logged and the restart goes ahead.
type Hook func() error

func runHooks(hooks []Hook) {
	for _, h := range hooks {
		if err := h(); err != nil {
			logger.New("system").Warnf("pre-restart hook: %v", err)
		}
	}
}

// ExecRestarter replaces the process image with a fresh copy of the same
// binary and arguments.
type ExecRestarter struct {
	Before []Hook
	// exec is syscall.Exec outside of tests.
	exec func(argv0 string, argv []string, envv []string) error
	path func() (string, error)
}

// NewExecRestarter returns a restarter that re-executes os.Args.
func NewExecRestarter(before ...Hook) *ExecRestarter {
	return &ExecRestarter{Before: before, exec: syscall.Exec, path: os.Executable}
}

// Restart only returns when the exec call fails.
func (r *ExecRestarter) Restart(reason error) error {
	bin, err := r.path()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	logger.New("system").Warnf("re-executing %s: %v", bin, reason)
	runHooks(r.Before)
	if err := r.exec(bin, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", bin, err)
	}
	return nil
}

// ExitRestarter exits with a non-zero status and leaves the restart to the
// service manager.
type ExitRestarter struct {
	Code   int
	Before []Hook
	exit   func(int)
}

// NewExitRestarter exits with code on restart.
func NewExitRestarter(code int, before ...Hook) *ExitRestarter {
	return &ExitRestarter{Code: code, Before: before, exit: os.Exit}
}

func (r *ExitRestarter) Restart(reason error) error {
	logger.New("system").Errorf("exiting with status %d: %v", r.Code, reason)
	runHooks(r.Before)
	r.exit(r.Code)
	return nil
}

// New returns the restarter named by mode: "exec" or "exit". before runs
// ahead of the restart.
func New(mode string, before ...Hook) (watchdog.Restarter, error) {
	switch mode {
	case "", "exec":
		return NewExecRestarter(before...), nil
	case "exit":
		return NewExitRestarter(1, before...), nil
	default:
		return nil, fmt.Errorf("unknown restart mode %q", mode)
	}
}
