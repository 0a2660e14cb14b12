package ssh

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
)

// Invoker runs shipyard subcommands in the project directory on the
// deployment target.
type Invoker struct {
	Client Client
	Remote config.Remote

	// Env is set for the remote command.
	Env map[string]string

	// Stdout and Stderr receive the remote command's output. They default
	// to the local stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// ReleaseOptions identifies the release.
type ReleaseOptions struct {
	DeployID string
	Revision string
}

// Release builds and runs the synced files on the remote host. It must only
// be called once the sync has completed.
func (inv Invoker) Release(ctx context.Context, opts ReleaseOptions) error {
	log.WithFields(log.Fields{
		"host":     inv.Remote.Host,
		"deployID": opts.DeployID,
	}).Info("Releasing on remote host")

	err := inv.Run(ctx, "release", "--deploy-id", opts.DeployID, "--revision", opts.Revision)
	if err != nil {
		return errors.WithContext(err, "remote release")
	}
	return nil
}

// Run runs `shipyard <args>` on the remote host.
func (inv Invoker) Run(ctx context.Context, args ...string) error {
	stdout, stderr := inv.Stdout, inv.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return inv.Client.Run(ctx, inv.Command(args...), stdout, stderr)
}

// Output runs `shipyard <args>` on the remote host, and returns its stdout.
func (inv Invoker) Output(ctx context.Context, args ...string) (string, error) {
	var stdout bytes.Buffer
	inv.Stdout = &stdout
	if err := inv.Run(ctx, args...); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Shell attaches `term` to a shell in the remote project directory. If `args`
// is set, it's run instead of the login shell.
func (inv Invoker) Shell(ctx context.Context, term Terminal, args ...string) error {
	cmd := "cd " + exec.ShellPath(inv.Remote.Dir) + " && "
	if len(args) == 0 {
		cmd += `exec "${SHELL:-sh}" -l`
	} else {
		cmd += exec.ShellCommand(args...)
	}
	return inv.Client.Shell(ctx, cmd, term)
}

// Command returns the shell command that runs `shipyard <args>` in the
// remote project directory.
func (inv Invoker) Command(args ...string) string {
	var keys []string
	for key := range inv.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cmd := []string{"cd", exec.ShellPath(inv.Remote.Dir), "&&"}
	for _, key := range keys {
		cmd = append(cmd, key+"="+exec.ShellQuote(inv.Env[key]))
	}
	cmd = append(cmd, exec.ShellPath(inv.Remote.Command))
	if len(args) != 0 {
		cmd = append(cmd, exec.ShellCommand(args...))
	}
	return strings.Join(cmd, " ")
}
