package release

import (
	"context"
	"fmt"
	"strings"
	"time"

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
	"github.com/sidkik/shipyard/pkg/revision"
	"github.com/sidkik/shipyard/pkg/state"
	"github.com/sidkik/shipyard/pkg/version"
)

// New creates a new `release` command.
func New() *cobra.Command {
	var deployID, rev string
	var leaseTTL time.Duration
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build the synced project and replace the running container",
		Long: "Release runs on the remote host, in the synced project directory.\n" +
			"It's normally run by `shipyard deploy` rather than by hand.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			if deployID == "" {
				deployID = uuid.NewString()
			}

			if err := run(ctx, deployID, rev, leaseTTL); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&deployID, "deploy-id", "",
		"The ID of the deploy. Defaults to a random ID.")
	cmd.Flags().StringVar(&rev, "revision", revision.Unknown,
		"The source revision being released")
	cmd.Flags().DurationVar(&leaseTTL, "lease-ttl", lock.DefaultTTL,
		"How long the deploy lease is held before other deploys may break it")
	return cmd
}

func run(ctx context.Context, deployID, rev string, leaseTTL time.Duration) error {
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
	clock := clockwork.NewRealClock()
	return releaser{
		project: project,
		running: version.Version,
		fs:      fs,
		clock:   clock,
		docker:  dockerClient,
		store:   state.NewStore(fs, project.Root()),
		lock:    lock.New(fs, project.Root(), leaseTTL, clock),
	}.release(ctx, deployID, rev)
}

type releaser struct {
	project config.Project
	running string
	fs      afero.Fs
	clock   clockwork.Clock
	docker  docker.Client
	store   state.Store
	lock    lock.Lock
}

// release builds the image, and then replaces the primary instance. If the
// build fails, the running instances aren't touched.
func (r releaser) release(ctx context.Context, deployID, rev string) error {
	// The remote binary may be older than the one that ran the sync.
	if err := r.project.CheckMinVersion(r.running); err != nil {
		return err
	}

	unlock, err := r.lock.Acquire(deployID)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			log.WithError(err).Warn("Failed to release deploy lease")
		}
	}()

	env, err := util.ReadEnv(r.project)
	if err != nil {
		return err
	}

	labels := lifecycle.DeployLabels(deployID, rev)
	imageID, err := docker.Builder{Client: r.docker}.Build(ctx, docker.BuildOptions{
		ContextDir: r.project.Root(),
		Dockerfile: r.project.Dockerfile,
		Tag:        r.project.Image,
		Labels:     labels,
		Excludes:   []string{config.StateDir},
	})
	if err != nil {
		return errors.WithContext(err, "build image")
	}

	spec, err := lifecycle.SpecFromProject(r.project, r.project.Image, env, labels)
	if err != nil {
		return errors.WithContext(err, "create container spec")
	}

	instance, err := lifecycle.Manager{Client: r.docker}.Deploy(ctx, spec)
	if err != nil {
		return errors.WithContext(err, "replace container")
	}

	startedAt := instance.StartedAt
	if startedAt.IsZero() {
		startedAt = r.clock.Now()
	}
	err = r.store.Record(spec.Name, state.Release{
		DeployID:    deployID,
		Image:       r.project.Image,
		ImageID:     imageID,
		Revision:    rev,
		ContainerID: instance.ID,
		StartedAt:   startedAt,
		Ports:       instance.Ports,
	})
	if err != nil {
		return errors.WithContext(err, "record release")
	}

	checkPorts(r.project, instance)
	log.WithFields(log.Fields{
		"container": instance.Name,
		"image":     imageID,
		"ports":     strings.Join(instance.Ports, ","),
	}).Info("Release complete")
	return nil
}

// checkPorts warns if the new instance isn't published on the configured
// ports. This happens if the instance exits right after starting.
func checkPorts(project config.Project, instance lifecycle.Instance) {
	mappings, err := project.PortMappings()
	if err != nil {
		return
	}

	published := map[string]struct{}{}
	for _, port := range instance.Ports {
		published[port] = struct{}{}
	}

	for _, mapping := range mappings {
		exp := fmt.Sprintf("%s->%s", mapping.Binding.HostPort, mapping.Port)
		if _, ok := published[exp]; !ok {
			log.WithFields(log.Fields{
				"container": instance.Name,
				"expected":  exp,
				"state":     instance.State,
			}).Warn("Container isn't published on the configured port. " +
				"Check `shipyard logs` for errors.")
		}
	}
}
