package ssh

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	sshClient "github.com/sidkik/shipyard/pkg/ssh"
)

// New creates a new `ssh` command.
func New() *cobra.Command {
	var container bool
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Get a shell on the remote host",
		Long: "Get a shell in the project directory on the remote host. With\n" +
			"--container, get a shell in the running container instead.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(container); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&container, "container", "c", false,
		"Get a shell in the running container")
	return cmd
}

func run(container bool) error {
	project, err := util.ParseProject()
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.NewFriendlyError("`shipyard ssh` must be run in a terminal.")
	}

	ctx, cancel := util.SignalContext()
	defer cancel()

	inv, client, err := util.DialRemote(ctx, project)
	if err != nil {
		return err
	}
	defer client.Close()

	width, height, err := term.GetSize(fd)
	if err != nil {
		return errors.WithContext(err, "get terminal size")
	}

	// Put the terminal into raw mode to prevent it echoing characters twice.
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.WithContext(err, "set terminal mode")
	}

	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	tty := sshClient.Terminal{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Type:   os.Getenv("TERM"),
		Width:  width,
		Height: height,
	}
	return inv.Shell(ctx, tty, shellArgs(project, container)...)
}

// shellArgs returns the remote command for the shell. An empty command runs
// the user's login shell.
func shellArgs(project config.Project, container bool) []string {
	if !container {
		return nil
	}
	return []string{"docker", "exec", "-it", project.Container.Name, "sh"}
}
