package system

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRestarterReusesArgs(t *testing.T) {
	var gotBin string
	var gotArgs []string
	r := &ExecRestarter{
		path: func() (string, error) { return "/usr/bin/tariffticker", nil },
		exec: func(argv0 string, argv, _ []string) error {
			gotBin, gotArgs = argv0, argv
			return errors.New("exec format error")
		},
	}
	err := r.Restart(errors.New("liveness failure"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "exec format error")
	assert.Equal(t, "/usr/bin/tariffticker", gotBin)
	assert.Equal(t, os.Args, gotArgs)
}

func TestExecRestarterPathError(t *testing.T) {
	called := false
	r := &ExecRestarter{
		path: func() (string, error) { return "", errors.New("no proc") },
		exec: func(string, []string, []string) error { called = true; return nil },
	}
	assert.Error(t, r.Restart(nil))
	assert.False(t, called)
}

func TestExitRestarter(t *testing.T) {
	code := -1
	r := NewExitRestarter(3)
	r.exit = func(c int) { code = c }
	assert.NoError(t, r.Restart(errors.New("stale")))
	assert.Equal(t, 3, code)
}

func TestNewByMode(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &ExecRestarter{}, r)

	r, err = New("exit")
	require.NoError(t, err)
	assert.IsType(t, &ExitRestarter{}, r)

	_, err = New("reboot")
	assert.Error(t, err)
}

func TestHooksRunBeforeRestart(t *testing.T) {
	var order []string
	hook := func(name string, err error) Hook {
		return func() error { order = append(order, name); return err }
	}

	r := NewExecRestarter(hook("blank", errors.New("bus gone")), hook("flush", nil))
	r.path = func() (string, error) { return "/usr/bin/tariffticker", nil }
	r.exec = func(string, []string, []string) error {
		order = append(order, "exec")
		return nil
	}
	require.NoError(t, r.Restart(nil))
	assert.Equal(t, []string{"blank", "flush", "exec"}, order, "a failing hook does not stop the restart")

	order = nil
	x := NewExitRestarter(1, hook("blank", nil))
	x.exit = func(int) { order = append(order, "exit") }
	require.NoError(t, x.Restart(nil))
	assert.Equal(t, []string{"blank", "exit"}, order)

	rr, err := New("exit", hook("blank", nil))
	require.NoError(t, err)
	assert.Len(t, rr.(*ExitRestarter).Before, 1)
}
