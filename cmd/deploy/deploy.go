package deploy

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/revision"
	"github.com/sidkik/shipyard/pkg/ssh"
	"github.com/sidkik/shipyard/pkg/sync"
	"github.com/sidkik/shipyard/pkg/version"
)

// New creates a new `deploy` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Sync the project to the remote host, and release it there",
		Long: "Deploy copies the project's artifacts to the remote host, and then\n" +
			"runs `shipyard release` there to build the image and replace the\n" +
			"running container. Each step must succeed before the next one starts.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			if err := run(ctx); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

type syncer interface {
	Sync(ctx context.Context) (sync.LocalSnapshot, error)
}

type releaser interface {
	Release(ctx context.Context, opts ssh.ReleaseOptions) error
}

// connectFunc opens the remote session. The returned function closes it.
type connectFunc func(ctx context.Context) (releaser, func() error, error)

func run(ctx context.Context) error {
	project, err := util.ParseProject()
	if err != nil {
		return err
	}

	if err := project.CheckMinVersion(version.Version); err != nil {
		return err
	}

	rev, err := revision.Describe(project.Root())
	if err != nil {
		log.WithError(err).Warn("Failed to get the git revision")
		rev = revision.Unknown
	}

	synchronizer, err := sync.New(project, sync.NewRsync())
	if err != nil {
		return errors.WithContext(err, "create synchronizer")
	}

	connect := func(ctx context.Context) (releaser, func() error, error) {
		invoker, client, err := util.DialRemote(ctx, project)
		if err != nil {
			return nil, nil, err
		}
		return invoker, client.Close, nil
	}

	opts := ssh.ReleaseOptions{DeployID: uuid.NewString(), Revision: rev}
	return deploy(ctx, synchronizer, connect, opts)
}

// deploy syncs the artifacts, and then releases them. The ssh session for the
// release is only opened once the sync has fully completed.
func deploy(ctx context.Context, s syncer, connect connectFunc, opts ssh.ReleaseOptions) error {
	log.WithFields(log.Fields{
		"deployID": opts.DeployID,
		"revision": opts.Revision,
	}).Info("Starting deploy")

	snapshot, err := s.Sync(ctx)
	if err != nil {
		return errors.WithContext(err, "sync")
	}
	log.WithField("files", len(snapshot)).Debug("Synced artifacts")

	r, closeSession, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	if err := r.Release(ctx, opts); err != nil {
		return err
	}

	log.WithField("deployID", opts.DeployID).Info("Deploy complete")
	return nil
}
