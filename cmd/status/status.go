package status

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/buger/goterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/lifecycle"
	"github.com/sidkik/shipyard/pkg/state"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `status` command.
func New() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the primary and backup containers, and the deploy record",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			var err error
			if remote {
				err = util.RunRemote(ctx, "status")
			} else {
				err = run(ctx)
			}
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false,
		"Show the status of the project's remote host over ssh")
	return cmd
}

func run(ctx context.Context) error {
	project, err := util.ParseProject()
	if err != nil {
		return err
	}

	dockerClient, err := docker.New()
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	return printStatus(ctx, project, lifecycle.Manager{Client: dockerClient},
		state.NewStore(afero.NewOsFs(), project.Root()))
}

func printStatus(ctx context.Context, project config.Project, manager lifecycle.Manager,
	store state.Store) error {
	names := []string{project.Container.Name}
	if project.Container.Policy == config.PolicyBackup {
		names = append(names, project.Container.BackupName)
	}

	instances, err := manager.Status(ctx, names...)
	if err != nil {
		return errors.WithContext(err, "get container status")
	}

	slot, err := store.Get(project.Container.Name)
	if err != nil {
		return errors.WithContext(err, "read deploy record")
	}

	instanceTable := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintln(instanceTable, "CONTAINER\tIMAGE\tPORTS\tSTARTED\tSTATE")
	for _, instance := range instances {
		fmt.Fprintf(instanceTable, "%s\t%s\t%s\t%s\t%s\n", instance.Name,
			orNone(shortID(instance.ImageID)), orNone(strings.Join(instance.Ports, ",")),
			formatTime(instance.StartedAt), stateString(instance))
	}
	fmt.Fprint(stdout, instanceTable.String())
	fmt.Fprintln(stdout)

	releaseTable := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintln(releaseTable, "RELEASE\tDEPLOY ID\tREVISION\tIMAGE\tSTARTED")
	for _, row := range []struct {
		name    string
		release *state.Release
	}{
		{"current", slot.Current},
		{"previous", slot.Previous},
	} {
		if row.release == nil {
			fmt.Fprintf(releaseTable, "%s\t-\t-\t-\t-\n", row.name)
			continue
		}
		fmt.Fprintf(releaseTable, "%s\t%s\t%s\t%s\t%s\n", row.name,
			row.release.DeployID, orNone(row.release.Revision),
			shortID(row.release.ImageID), formatTime(row.release.StartedAt))
	}
	fmt.Fprint(stdout, releaseTable.String())
	return nil
}

// stateString is the last column since the color codes throw off the
// alignment of later columns.
func stateString(instance lifecycle.Instance) string {
	switch {
	case !instance.Exists:
		return goterm.Color("missing", goterm.YELLOW)
	case instance.State == "running":
		return goterm.Color(instance.State, goterm.GREEN)
	case instance.State == "restarting", instance.State == "created":
		return goterm.Color(instance.State, goterm.YELLOW)
	default:
		return goterm.Color(instance.State, goterm.RED)
	}
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
