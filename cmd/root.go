package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/shipyard/cmd/config"
	"github.com/sidkik/shipyard/cmd/deploy"
	"github.com/sidkik/shipyard/cmd/logs"
	"github.com/sidkik/shipyard/cmd/release"
	"github.com/sidkik/shipyard/cmd/rollback"
	"github.com/sidkik/shipyard/cmd/ssh"
	"github.com/sidkik/shipyard/cmd/status"
	syncCmd "github.com/sidkik/shipyard/cmd/sync"
	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/cmd/version"
)

// Execute runs the main CLI process.
func Execute() {
	rootCmd := New()
	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

// New creates the root `shipyard` command with all of its subcommands.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shipyard",
		Short: "Sync, build and run a containerized app on a remote Docker host",
		Long: "shipyard deploys a project to a remote host over ssh. It syncs the\n" +
			"project's artifacts, builds the image on the remote host, and replaces\n" +
			"the running container.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if os.Getenv(util.VerboseLogKey) == "true" {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.AddCommand(
		configCmd.New(),
		deploy.New(),
		logs.New(),
		release.New(),
		rollback.New(),
		ssh.New(),
		status.New(),
		syncCmd.New(),
		version.New(),
	)
	return rootCmd
}
