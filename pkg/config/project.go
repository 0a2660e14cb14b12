package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/errors"
)

const (
	// ProjectConfigFile is the name of the project config within the project
	// root.
	ProjectConfigFile = "shipyard.yaml"

	// InitialProjectConfigVersion is the first version of the project config.
	// Config files that do not specify a version will default to this
	// version.
	InitialProjectConfigVersion = "v1alpha1"

	// SupportedProjectConfigVersion is the supported version of the project
	// config of the current shipyard binary.
	SupportedProjectConfigVersion = "v1alpha1"

	// CacheDir is the build cache directory that's never synced, regardless
	// of the contents of the ignore file.
	CacheDir = "__pycache__"

	// StateDir holds the deploy record and lease within the remote project
	// directory.
	StateDir = ".shipyard"
)

// AlwaysExcluded contains the patterns that are excluded from every sync.
var AlwaysExcluded = []string{CacheDir}

// Policy decides what happens to the previous primary instance during a
// deploy.
type Policy string

const (
	// PolicyBackup renames the previous primary to the backup name, after
	// removing any stale backup.
	PolicyBackup Policy = "backup"

	// PolicyRemove removes the previous primary. No backup instance is kept.
	PolicyRemove Policy = "remove"
)

var restartPolicies = map[string]struct{}{
	"no":             {},
	"always":         {},
	"on-failure":     {},
	"unless-stopped": {},
}

// Project is the deployment configuration for a single application.
type Project struct {
	Version    string    `json:"version,omitempty"`
	Name       string    `json:"name"`
	MinVersion string    `json:"minVersion,omitempty"`
	Remote     Remote    `json:"remote"`
	Artifacts  []string  `json:"artifacts"`
	IgnoreFile string    `json:"ignoreFile,omitempty"`
	Image      string    `json:"image,omitempty"`
	Dockerfile string    `json:"dockerfile,omitempty"`
	Container  Container `json:"container"`

	// Only populated and consumed by shipyard. Never set by user.
	root string
}

// Remote describes the deployment target.
type Remote struct {
	// Host is either an alias from the ssh config, or a hostname.
	Host string `json:"host"`

	// Dir is the project directory on the remote host. It may start with ~.
	Dir string `json:"dir"`

	// Command is the shipyard binary on the remote host.
	Command string `json:"command,omitempty"`
}

// Container describes how the primary instance is run.
type Container struct {
	Name        string   `json:"name,omitempty"`
	BackupName  string   `json:"backupName,omitempty"`
	Policy      Policy   `json:"policy,omitempty"`
	EnvFile     string   `json:"envFile,omitempty"`
	RequiredEnv []string `json:"requiredEnv,omitempty"`

	// Publish maps a host port to a container port, using the same syntax as
	// `docker run -p`.
	Publish   string `json:"publish"`
	Volume    Volume `json:"volume"`
	LogDriver string `json:"logDriver,omitempty"`
	Restart   string `json:"restart,omitempty"`
}

// Volume is a host directory that's bind mounted into the container. It's the
// only state that survives a deploy.
type Volume struct {
	Host      string `json:"host"`
	Container string `json:"container"`
}

// Root returns the directory that the project config was parsed from.
func (p Project) Root() string {
	return p.root
}

// Path returns the path to the project config.
func (p Project) Path() string {
	return filepath.Join(p.root, ProjectConfigFile)
}

// invalidConfigTemplate is used when the YAML doesn't decode into a Project.
// ghodss/yaml loses the line numbers, so only its message is passed on.
const invalidConfigTemplate = "The project config %q could not be parsed. " +
	"Check it for misspelled fields, and for fields with the wrong type.\n\n" +
	"The parser reported:\n%s"

type versionError struct {
	path, supported, actual string
}

func (err versionError) Error() string {
	return err.FriendlyMessage()
}

func (err versionError) FriendlyMessage() string {
	return fmt.Sprintf("The project config %q has version %q, but this "+
		"shipyard binary only reads version %q.\n"+
		"Install a shipyard release that supports it, or run `shipyard init "+
		"--force` to write a new config.", err.path, err.actual, err.supported)
}

// Parse parses the project config in the directory `dir`.
func Parse(dir string) (Project, error) {
	path := filepath.Join(dir, ProjectConfigFile)
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Project{}, errors.NewFriendlyError("The project config "+
				"doesn't exist at %q. Please run `shipyard init` in your "+
				"project directory to create it.", path)
		}
		return Project{}, errors.WithContext(err, "read project config")
	}

	// The version is checked before unknown fields are rejected, so that a
	// config written for a newer release reports the version instead.
	project := Project{Version: InitialProjectConfigVersion}
	if err := yaml.Unmarshal(contents, &project); err != nil {
		return Project{}, errors.NewFriendlyError(invalidConfigTemplate, path, err)
	}

	if project.Version != SupportedProjectConfigVersion {
		return Project{}, versionError{path, SupportedProjectConfigVersion, project.Version}
	}

	err = yaml.UnmarshalStrict(contents, &project, yaml.DisallowUnknownFields)
	if err != nil {
		return Project{}, errors.NewFriendlyError(invalidConfigTemplate, path, err)
	}

	project.root = dir
	project.setDefaults()
	if err := project.validate(); err != nil {
		return Project{}, err
	}
	return project, nil
}

// Write writes the project config into the directory `dir`.
func Write(dir string, project Project) error {
	project.Version = SupportedProjectConfigVersion
	yamlBytes, err := yaml.Marshal(project)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	path := filepath.Join(dir, ProjectConfigFile)
	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// WithRoot returns a copy of the project that's rooted at `dir`.
func (p Project) WithRoot(dir string) Project {
	p.root = dir
	return p
}

// Example returns a starting point for a new project config, with the
// defaults filled in.
func Example(name string) Project {
	project := Project{
		Name: name,
		Remote: Remote{
			Host: name,
			Dir:  "~/" + name,
		},
		Artifacts: []string{"src", "data", "requirements.txt", "keys.env", "Dockerfile"},
		Container: Container{
			Policy:  PolicyBackup,
			Publish: "3000:3000",
			Volume: Volume{
				Host:      "~/" + name + "/data",
				Container: "/app/data",
			},
		},
	}
	project.setDefaults()
	return project
}

func (p *Project) setDefaults() {
	if p.Image == "" {
		p.Image = p.Name
	}
	if p.Dockerfile == "" {
		p.Dockerfile = "Dockerfile"
	}
	if p.IgnoreFile == "" {
		p.IgnoreFile = ".deployignore"
	}
	if p.Remote.Command == "" {
		p.Remote.Command = "shipyard"
	}

	c := &p.Container
	if c.Name == "" {
		c.Name = p.Name
	}
	if c.BackupName == "" {
		c.BackupName = c.Name + "-old"
	}
	if c.Policy == "" {
		c.Policy = PolicyBackup
	}
	if c.EnvFile == "" {
		c.EnvFile = "keys.env"
	}
	if c.LogDriver == "" {
		c.LogDriver = "journald"
	}
	if c.Restart == "" {
		c.Restart = "unless-stopped"
	}

	var artifacts []string
	for _, artifact := range p.Artifacts {
		artifacts = append(artifacts, filepath.Clean(artifact))
	}

	// The remote side of a deploy parses the same config, so it always has to
	// be synced.
	if !covers(artifacts, ProjectConfigFile) {
		artifacts = append(artifacts, ProjectConfigFile)
	}
	p.Artifacts = artifacts
	p.Dockerfile = filepath.Clean(p.Dockerfile)
	p.Container.EnvFile = filepath.Clean(p.Container.EnvFile)
}

const missingFieldTemplate = "The project config %q is missing the " +
	"required field %q."

func (p Project) validate() error {
	required := []struct {
		field, value string
	}{
		{"name", p.Name},
		{"remote.host", p.Remote.Host},
		{"remote.dir", p.Remote.Dir},
		{"container.publish", p.Container.Publish},
		{"container.volume.host", p.Container.Volume.Host},
		{"container.volume.container", p.Container.Volume.Container},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.NewFriendlyError(missingFieldTemplate, p.Path(), r.field)
		}
	}

	for _, artifact := range p.Artifacts {
		if filepath.IsAbs(artifact) || artifact == ".." ||
			strings.HasPrefix(artifact, "../") {
			return errors.NewFriendlyError("The artifact %q in %q must be "+
				"a path inside the project directory.", artifact, p.Path())
		}

		for _, part := range strings.Split(filepath.ToSlash(artifact), "/") {
			if part == CacheDir {
				return errors.NewFriendlyError("The artifact %q in %q is "+
					"inside %s, which is never synced.", artifact, p.Path(), CacheDir)
			}
		}
	}

	// The synced files must be enough to build the image on the remote host.
	for _, needed := range []string{p.Dockerfile, p.Container.EnvFile} {
		if !covers(p.Artifacts, needed) {
			return errors.NewFriendlyError("The artifacts in %q don't "+
				"include %q, which is needed to deploy on the remote host.",
				p.Path(), needed)
		}
	}

	switch p.Container.Policy {
	case PolicyBackup, PolicyRemove:
	default:
		return errors.NewFriendlyError("Unknown container policy %q in %q. "+
			"It must be either %q or %q.", p.Container.Policy, p.Path(),
			PolicyBackup, PolicyRemove)
	}

	if p.Container.Policy == PolicyBackup && p.Container.BackupName == p.Container.Name {
		return errors.NewFriendlyError("The backup name in %q must differ "+
			"from the container name.", p.Path())
	}

	if _, ok := restartPolicies[p.Container.Restart]; !ok {
		return errors.NewFriendlyError("Unknown restart policy %q in %q.",
			p.Container.Restart, p.Path())
	}

	if _, err := p.PortMappings(); err != nil {
		return err
	}
	return nil
}

// PortMappings parses the publish field.
func (p Project) PortMappings() ([]nat.PortMapping, error) {
	mappings, err := nat.ParsePortSpec(p.Container.Publish)
	if err != nil {
		return nil, errors.NewFriendlyError("Failed to parse the port "+
			"mapping %q in %q: %s", p.Container.Publish, p.Path(), err)
	}

	for _, mapping := range mappings {
		if mapping.Binding.HostPort == "" {
			return nil, errors.NewFriendlyError("The port mapping %q in %q "+
				"must set a host port, e.g. \"3001:3000\".",
				p.Container.Publish, p.Path())
		}
	}
	return mappings, nil
}

// covers returns whether `path` is one of the artifacts, or is inside one of
// them.
func covers(artifacts []string, path string) bool {
	path = filepath.Clean(path)
	for _, artifact := range artifacts {
		if artifact == "." || artifact == path ||
			strings.HasPrefix(path, artifact+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// String returns a one line description of the deployment target.
func (r Remote) String() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Dir)
}
