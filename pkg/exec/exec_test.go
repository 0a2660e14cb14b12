package exec

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}},
		&stdout, &stderr)
	assert.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestRunExitStatus(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 23"}}, &out, &out)
	assert.Equal(t, ExitError{Command: "sh", Code: 23}, err)
}

func TestRunWorkingDir(t *testing.T) {
	dir := t.TempDir()

	var stdout bytes.Buffer
	err := run(context.Background(), Command{Name: "pwd", Dir: dir}, &stdout, &stdout)
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), dir)
}

func TestCommandString(t *testing.T) {
	cmd := Command{Name: "rsync", Args: []string{"-az", "src", "host:dir/"}}
	assert.Equal(t, "rsync -az src host:dir/", cmd.String())
}
