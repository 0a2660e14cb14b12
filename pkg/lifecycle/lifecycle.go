// Package lifecycle replaces the primary container instance with one running a
// newly built image.
//
// A deploy stops the primary instance, and then either renames it to the
// backup name (PolicyBackup) or removes it (PolicyRemove), before running the
// new image under the primary name. Stopping, removing or renaming an instance
// that doesn't exist is not an error. Failing to run the new instance is.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker"
	"github.com/sidkik/shipyard/pkg/errors"
)

// Instance is the observed state of a container.
type Instance struct {
	Name    string
	Exists  bool
	ID      string
	Image   string
	ImageID string
	State   string

	// Ports are the published ports, e.g. "3001->3000/tcp".
	Ports     []string
	StartedAt time.Time
}

// Manager manages the primary and backup instances.
type Manager struct {
	Client docker.Client

	// StopTimeout is how long the daemon waits before killing an instance
	// that's being stopped. Nil uses the daemon's default.
	StopTimeout *int
}

// Deploy replaces the primary instance with one running `spec.Image`, and
// returns the new instance.
func (m Manager) Deploy(ctx context.Context, spec Spec) (Instance, error) {
	logger := log.WithField("container", spec.Name)

	logger.Info("Stopping primary instance")
	if err := m.stop(ctx, spec.Name); err != nil {
		return Instance{}, errors.WithContext(err, "stop primary")
	}

	switch spec.Policy {
	case config.PolicyBackup:
		logger.WithField("backup", spec.BackupName).Info("Moving primary instance to backup")
		if err := m.remove(ctx, spec.BackupName); err != nil {
			return Instance{}, errors.WithContext(err, "remove stale backup")
		}
		if err := m.rename(ctx, spec.Name, spec.BackupName); err != nil {
			return Instance{}, errors.WithContext(err, "rename primary to backup")
		}
	case config.PolicyRemove:
		logger.Info("Removing primary instance")
		if err := m.remove(ctx, spec.Name); err != nil {
			return Instance{}, errors.WithContext(err, "remove primary")
		}
	default:
		return Instance{}, errors.New("unknown policy %q", spec.Policy)
	}

	return m.run(ctx, spec)
}

// Rollback puts the previous release back under the primary name. Under
// PolicyBackup, the backup instance is renamed to the primary name and
// started. Under PolicyRemove there's no backup instance, so a new primary is
// created from `previousImage`.
func (m Manager) Rollback(ctx context.Context, spec Spec, previousImage string) (Instance, error) {
	switch spec.Policy {
	case config.PolicyBackup:
		backup, err := m.inspect(ctx, spec.BackupName)
		if err != nil {
			return Instance{}, errors.WithContext(err, "inspect backup")
		}
		if !backup.Exists {
			return Instance{}, errors.NewFriendlyError("There is no backup "+
				"instance named %q to roll back to.", spec.BackupName)
		}
	case config.PolicyRemove:
		if previousImage == "" {
			return Instance{}, errors.NewFriendlyError("There is no previous " +
				"image to roll back to.")
		}
	default:
		return Instance{}, errors.New("unknown policy %q", spec.Policy)
	}

	logger := log.WithField("container", spec.Name)
	logger.Info("Removing primary instance")
	if err := m.stop(ctx, spec.Name); err != nil {
		return Instance{}, errors.WithContext(err, "stop primary")
	}
	if err := m.remove(ctx, spec.Name); err != nil {
		return Instance{}, errors.WithContext(err, "remove primary")
	}

	if spec.Policy == config.PolicyRemove {
		spec.Image = previousImage
		return m.run(ctx, spec)
	}

	logger.WithField("backup", spec.BackupName).Info("Restoring backup instance")
	if err := m.Client.ContainerRename(ctx, spec.BackupName, spec.Name); err != nil {
		return Instance{}, errors.WithContext(err, "rename backup to primary")
	}
	if err := m.Client.ContainerStart(ctx, spec.Name, container.StartOptions{}); err != nil {
		return Instance{}, errors.WithContext(err, "start primary")
	}
	return m.inspect(ctx, spec.Name)
}

// Status returns the state of each named instance.
func (m Manager) Status(ctx context.Context, names ...string) ([]Instance, error) {
	var instances []Instance
	for _, name := range names {
		instance, err := m.inspect(ctx, name)
		if err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("inspect %s", name))
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// LogsOptions configures Logs.
type LogsOptions struct {
	Follow bool

	// Tail is the number of lines to show from the end of the logs, or "all".
	Tail       string
	Timestamps bool
}

// Logs copies the logs of the named instance to `stdout` and `stderr`.
func (m Manager) Logs(ctx context.Context, name string, opts LogsOptions,
	stdout, stderr io.Writer) error {
	instance, err := m.Client.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return errors.NewFriendlyError("There is no instance named %q.", name)
		}
		return errors.WithContext(err, "inspect")
	}

	logs, err := m.Client.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return errors.WithContext(err, "get logs")
	}
	defer logs.Close()

	// Logs of containers with a TTY aren't multiplexed.
	if instance.Config != nil && instance.Config.Tty {
		_, err = io.Copy(stdout, logs)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, logs)
	}
	if err != nil && ctx.Err() == nil {
		return errors.WithContext(err, "copy logs")
	}
	return nil
}

func (m Manager) run(ctx context.Context, spec Spec) (Instance, error) {
	cfg, hostConfig, err := spec.containerConfig()
	if err != nil {
		return Instance{}, err
	}

	logger := log.WithFields(log.Fields{
		"container": spec.Name,
		"image":     spec.Image,
		"publish":   spec.Publish,
	})
	logger.Info("Starting primary instance")

	created, err := m.Client.ContainerCreate(ctx, cfg, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return Instance{}, errors.WithContext(err, "create primary")
	}
	for _, warning := range created.Warnings {
		logger.Warn(warning)
	}

	if err := m.Client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return Instance{}, errors.WithContext(err, "start primary")
	}
	return m.inspect(ctx, spec.Name)
}

func (m Manager) stop(ctx context.Context, name string) error {
	err := m.Client.ContainerStop(ctx, name, container.StopOptions{Timeout: m.StopTimeout})
	return ignoreNotFound(err, name, "stop")
}

func (m Manager) remove(ctx context.Context, name string) error {
	err := m.Client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	return ignoreNotFound(err, name, "remove")
}

func (m Manager) rename(ctx context.Context, from, to string) error {
	err := m.Client.ContainerRename(ctx, from, to)
	return ignoreNotFound(err, from, "rename")
}

func ignoreNotFound(err error, name, action string) error {
	if err != nil && errdefs.IsNotFound(err) {
		log.WithField("container", name).Debugf("Instance doesn't exist. Skipping %s.", action)
		return nil
	}
	return err
}

func (m Manager) inspect(ctx context.Context, name string) (Instance, error) {
	resp, err := m.Client.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Instance{Name: name}, nil
		}
		return Instance{}, err
	}

	instance := Instance{Name: name, Exists: true}
	if resp.ContainerJSONBase != nil {
		instance.ID = resp.ID
		instance.ImageID = resp.Image
		if resp.State != nil {
			instance.State = resp.State.Status
			if startedAt, err := time.Parse(time.RFC3339Nano, resp.State.StartedAt); err == nil {
				instance.StartedAt = startedAt
			}
		}
	}

	if resp.Config != nil {
		instance.Image = resp.Config.Image
	}

	if resp.NetworkSettings != nil {
		for port, bindings := range resp.NetworkSettings.Ports {
			for _, binding := range bindings {
				instance.Ports = append(instance.Ports,
					fmt.Sprintf("%s->%s", binding.HostPort, port))
			}
		}
		sort.Strings(instance.Ports)
	}
	return instance, nil
}
