package version

import (
	"context"
	"fmt"
	"io"
	"os"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/ssh"
	"github.com/sidkik/shipyard/pkg/version"
)

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	parseProject           = util.ParseProject
	dialRemote             = util.DialRemote
)

// New creates a new `version` command.
func New() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the local and remote version of shipyard",
		Long: "Print the local version of shipyard. When run in a project " +
			"directory, also print\nthe version installed on the project's remote host.",
		Run: func(_ *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(stdout, version.Version)
				return
			}

			ctx, cancel := util.SignalContext()
			defer cancel()
			if err := run(ctx); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Only print the local version")
	return cmd
}

func run(ctx context.Context) error {
	fmt.Fprintf(stdout, "local version:  %s\n", version.Version)

	project, err := parseProject()
	if err != nil {
		log.WithError(err).Debug("Not in a project directory. Skipping the remote version")
		return nil
	}

	remoteVersion, err := getRemoteVersion(ctx, project)
	if err != nil {
		return errors.WithContext(err, "get remote version")
	}
	fmt.Fprintf(stdout, "remote version: %s\n", remoteVersion)

	if msg, ok := compareVersions(version.Version, remoteVersion); !ok {
		log.WithFields(log.Fields{
			"host":   project.Remote.Host,
			"local":  version.Version,
			"remote": remoteVersion,
		}).Warn(msg)
	}
	return nil
}

func getRemoteVersion(ctx context.Context, project config.Project) (string, error) {
	inv, client, err := dialRemote(ctx, project)
	if err != nil {
		return "", err
	}
	defer client.Close()
	return remoteVersion(ctx, inv)
}

func remoteVersion(ctx context.Context, inv ssh.Invoker) (string, error) {
	return inv.Output(ctx, "version", "--short")
}

// compareVersions returns a warning if the local and remote versions are
// known to differ. Development builds are never compared.
func compareVersions(local, remote string) (string, bool) {
	if local == version.EmptyValue || remote == version.EmptyValue {
		return "", true
	}

	localVersion, err := goversion.NewVersion(local)
	if err != nil {
		return "", true
	}
	remoteVersion, err := goversion.NewVersion(remote)
	if err != nil {
		return "", true
	}

	switch {
	case remoteVersion.LessThan(localVersion):
		return "The remote host runs an older version of shipyard. " +
			"Please upgrade it before deploying.", false
	case localVersion.LessThan(remoteVersion):
		return "The remote host runs a newer version of shipyard. " +
			"Please upgrade the local binary.", false
	}
	return "", true
}
