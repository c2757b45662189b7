package exec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunExec_CapturesOutput(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("test shells out to sh")
	}

	input := &Input{
		Command: "sh",
		Args:    []string{"-c", "echo out-line; echo err-line >&2"},
	}

	output, err := OnRunExec(context.Background(), &Deps{}, input)
	require.NoError(t, err)
	assert.Equal(t, "out-line\n", output.Stdout)
	assert.Equal(t, "err-line\n", output.Stderr)
	assert.Equal(t, 0, output.ExitCode)
}

func TestOnRunExec_NonZeroExitIsAnError(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("test shells out to sh")
	}

	input := &Input{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	}

	_, err := OnRunExec(context.Background(), &Deps{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 3")
}

func TestOnRunExec_EnvAndDir(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("test shells out to sh")
	}

	dir := t.TempDir()
	input := &Input{
		Command: "sh",
		Args:    []string{"-c", "echo $GREETING > marker"},
		Dir:     dir,
		Env:     map[string]string{"GREETING": "hello"},
	}

	_, err := OnRunExec(context.Background(), &Deps{}, input)
	require.NoError(t, err)

	marker, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(marker))
}
