package lifecycle

import (
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/mitchellh/go-homedir"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker"
	"github.com/sidkik/shipyard/pkg/errors"
)

// Spec describes how the primary instance is run.
type Spec struct {
	Name       string
	BackupName string
	Policy     config.Policy

	// Image is the tag (or ID) that the primary instance is created from.
	Image string

	// Env is the container's environment in `KEY=VALUE` form.
	Env []string

	// Binds are bind mounts in `host:container` form.
	Binds []string

	// Publish is a port mapping in `docker run -p` form.
	Publish string

	LogDriver string
	Restart   string
	Labels    map[string]string
}

// SpecFromProject returns the spec for running `image` according to the
// project config. `env` is the parsed env file.
func SpecFromProject(project config.Project, image string, env []string,
	labels map[string]string) (Spec, error) {
	hostDir, err := homedir.Expand(project.Container.Volume.Host)
	if err != nil {
		return Spec{}, errors.WithContext(err, "expand volume path")
	}

	c := project.Container
	return Spec{
		Name:       c.Name,
		BackupName: c.BackupName,
		Policy:     c.Policy,
		Image:      image,
		Env:        env,
		Binds:      []string{hostDir + ":" + c.Volume.Container},
		Publish:    c.Publish,
		LogDriver:  c.LogDriver,
		Restart:    c.Restart,
		Labels:     labels,
	}, nil
}

// containerConfig translates the spec into the Docker API's representation.
func (spec Spec) containerConfig() (*container.Config, *container.HostConfig, error) {
	exposed, bindings, err := nat.ParsePortSpecs([]string{spec.Publish})
	if err != nil {
		return nil, nil, errors.WithContext(err, "parse port mapping")
	}

	labels := map[string]string{}
	for k, v := range spec.Labels {
		labels[k] = v
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: exposed,
		Labels:       labels,
	}

	hostConfig := &container.HostConfig{
		Binds:        spec.Binds,
		PortBindings: bindings,
		LogConfig:    container.LogConfig{Type: spec.LogDriver},
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyMode(spec.Restart),
		},
	}
	return cfg, hostConfig, nil
}

// DeployLabels returns the labels set on the image and container of a deploy.
func DeployLabels(deployID, revision string) map[string]string {
	return map[string]string{
		docker.DeployIDLabel: deployID,
		docker.RevisionLabel: revision,
	}
}
