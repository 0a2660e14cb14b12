package logs

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker"
	"github.com/sidkik/shipyard/pkg/lifecycle"
)

// Mocked out for unit testing.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type options struct {
	lifecycle.LogsOptions
	backup bool
	remote bool
}

// New creates a new `logs` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the logs of the primary container",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			var err error
			if opts.remote {
				err = util.RunRemote(ctx, remoteArgs(opts)...)
			} else {
				err = run(ctx, opts)
			}
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false,
		"Keep printing logs as they're written")
	cmd.Flags().StringVar(&opts.Tail, "tail", "all",
		"The number of lines to show from the end of the logs")
	cmd.Flags().BoolVarP(&opts.Timestamps, "timestamps", "t", false,
		"Show timestamps")
	cmd.Flags().BoolVar(&opts.backup, "backup", false,
		"Print the logs of the backup container instead")
	cmd.Flags().BoolVar(&opts.remote, "remote", false,
		"Print the logs from the project's remote host over ssh")
	return cmd
}

func run(ctx context.Context, opts options) error {
	project, err := util.ParseProject()
	if err != nil {
		return err
	}

	dockerClient, err := docker.New()
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	return lifecycle.Manager{Client: dockerClient}.Logs(ctx,
		containerName(project, opts.backup), opts.LogsOptions, stdout, stderr)
}

func containerName(project config.Project, backup bool) string {
	if backup {
		return project.Container.BackupName
	}
	return project.Container.Name
}

// remoteArgs returns the arguments that run the same logs command on the
// remote host.
func remoteArgs(opts options) []string {
	args := []string{"logs", "--tail", opts.Tail}
	if opts.Follow {
		args = append(args, "--follow")
	}
	if opts.Timestamps {
		args = append(args, "--timestamps")
	}
	if opts.backup {
		args = append(args, "--backup")
	}
	return args
}
