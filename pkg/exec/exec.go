// Package exec runs the external tools that shipyard drives, such as rsync.
package exec

//go:generate mockery -name Runner

import (
	"context"
	"fmt"
	"io"
	osexec "os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/errors"
)

// Command describes a subprocess invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory of the subprocess. If empty, the
	// subprocess runs in the current directory.
	Dir string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs subprocesses to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError is returned when a subprocess or remote command exits with a
// non-zero status. The CLI exits with the same code.
type ExitError struct {
	Command string
	Code    int
}

func (err ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", err.Command, err.Code)
}

// LogRunner runs subprocesses and streams their output into the logger.
type LogRunner struct {
	Log *log.Entry
}

// NewLogRunner returns a Runner that logs the output of each subprocess with
// the `cmd` field set.
func NewLogRunner() LogRunner {
	return LogRunner{Log: log.NewEntry(log.StandardLogger())}
}

// Run runs the command and blocks until it exits.
func (r LogRunner) Run(ctx context.Context, cmd Command) error {
	entry := r.Log.WithField("cmd", cmd.Name)
	entry.Debugf("Running %s", cmd)

	stdout := entry.WriterLevel(log.InfoLevel)
	defer stdout.Close()
	stderr := entry.WriterLevel(log.WarnLevel)
	defer stderr.Close()

	return run(ctx, cmd, stdout, stderr)
}

func run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error {
	proc := osexec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdout = stdout
	proc.Stderr = stderr

	err := proc.Run()
	if exitErr, ok := err.(*osexec.ExitError); ok {
		return ExitError{Command: cmd.Name, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("run %s", cmd.Name))
	}
	return nil
}
