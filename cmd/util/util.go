// Package util contains helpers shared by the shipyard commands.
package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/envfile"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
	"github.com/sidkik/shipyard/pkg/ssh"
)

// VerboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above. It's forwarded to remote commands.
const VerboseLogKey = "SHIPYARD_LOG_VERBOSE"

// Mocked out by tests.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandleFatalError prints the error and exits. Friendly errors are printed as
// is. If the error was caused by a subprocess or remote command exiting with
// a non-zero status, shipyard exits with the same status.
func HandleFatalError(err error) {
	if _, ok := errors.RootCause(err).(interface{ FriendlyMessage() string }); ok {
		fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(ExitCode(err))
}

// ExitCode returns the status that shipyard should exit with after `err`.
func ExitCode(err error) int {
	var exitErr exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 0 {
		return exitErr.Code
	}
	return 1
}

// HandlePanic logs panics before exiting. It must be deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Errorf("Unexpected panic. Stack trace:\n%s", debug.Stack())
		exit(1)
	}
}

// SignalContext returns a context that's cancelled when shipyard is
// interrupted.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ParseProject parses the project config in the working directory.
func ParseProject() (config.Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Project{}, errors.WithContext(err, "get working directory")
	}
	return config.Parse(wd)
}

// DialRemote connects to the project's deployment target. The caller must
// close the returned client.
func DialRemote(ctx context.Context, project config.Project) (ssh.Invoker, ssh.Client, error) {
	host, err := ssh.ResolveHost(project.Remote.Host)
	if err != nil {
		return ssh.Invoker{}, nil, errors.WithContext(err, "resolve host")
	}

	client, err := ssh.Dial(ctx, host)
	if err != nil {
		return ssh.Invoker{}, nil, errors.WithContext(err,
			fmt.Sprintf("connect to %s", project.Remote.Host))
	}

	inv := ssh.Invoker{Client: client, Remote: project.Remote}
	if os.Getenv(VerboseLogKey) == "true" {
		inv.Env = map[string]string{VerboseLogKey: "true"}
	}
	return inv, client, nil
}

// RunRemote runs `shipyard <args>` in the project directory on the remote
// host, streaming its output.
func RunRemote(ctx context.Context, args ...string) error {
	project, err := ParseProject()
	if err != nil {
		return err
	}

	inv, client, err := DialRemote(ctx, project)
	if err != nil {
		return err
	}
	defer client.Close()

	return inv.Run(ctx, args...)
}

// ReadEnv reads the project's env file, and checks that the required
// variables are set.
func ReadEnv(project config.Project) ([]string, error) {
	path := filepath.Join(project.Root(), project.Container.EnvFile)
	env, err := envfile.Read(path)
	if err != nil {
		return nil, errors.WithContext(err, "read env file")
	}

	if missing := envfile.Missing(env, project.Container.RequiredEnv); len(missing) != 0 {
		return nil, errors.NewFriendlyError("The env file %q is missing the "+
			"required variables: %s", path, strings.Join(missing, ", "))
	}
	return env, nil
}
