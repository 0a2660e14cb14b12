package rollback

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/lifecycle"
	"github.com/sidkik/shipyard/pkg/lock"
	"github.com/sidkik/shipyard/pkg/state"
)

// New creates a new `rollback` command.
func New() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Replace the running container with the previous release",
		Long: "Rollback puts the previous release back under the primary container\n" +
			"name. With the backup policy, the backup container is restored. With\n" +
			"the remove policy, a new container is created from the previous image.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			var err error
			if remote {
				err = util.RunRemote(ctx, "rollback")
			} else {
				err = run(ctx)
			}
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false,
		"Run the rollback on the project's remote host over ssh")
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

	fs := afero.NewOsFs()
	return rollbacker{
		project: project,
		fs:      fs,
		docker:  dockerClient,
		store:   state.NewStore(fs, project.Root()),
		lock:    lock.New(fs, project.Root(), lock.DefaultTTL, clockwork.NewRealClock()),
	}.rollback(ctx, "rollback-"+uuid.NewString())
}

type rollbacker struct {
	project config.Project
	fs      afero.Fs
	docker  docker.Client
	store   state.Store
	lock    lock.Lock
}

func (r rollbacker) rollback(ctx context.Context, owner string) error {
	unlock, err := r.lock.Acquire(owner)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			log.WithError(err).Warn("Failed to release deploy lease")
		}
	}()

	name := r.project.Container.Name
	slot, err := r.store.Get(name)
	if err != nil {
		return errors.WithContext(err, "read deploy record")
	}
	if slot.Previous == nil {
		return state.ErrNoPreviousRelease
	}
	prev := slot.Previous

	env, err := util.ReadEnv(r.project)
	if err != nil {
		return err
	}

	spec, err := lifecycle.SpecFromProject(r.project, prev.Image, env,
		lifecycle.DeployLabels(prev.DeployID, prev.Revision))
	if err != nil {
		return errors.WithContext(err, "create container spec")
	}

	instance, err := lifecycle.Manager{Client: r.docker}.Rollback(ctx, spec, prev.ImageID)
	if err != nil {
		return errors.WithContext(err, "roll back container")
	}

	if _, err := r.store.Rollback(name); err != nil {
		return errors.WithContext(err, "record rollback")
	}

	log.WithFields(log.Fields{
		"container": instance.Name,
		"deployID":  prev.DeployID,
		"revision":  prev.Revision,
	}).Info("Rolled back to the previous release")
	return nil
}
