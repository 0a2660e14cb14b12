// Package ssh runs shipyard on the deployment target over SSH.
package ssh

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/errors"
)

var fs = afero.NewOsFs()

// homeDir is mocked out by tests.
var homeDir = homedir.Dir

const systemConfigPath = "/etc/ssh/ssh_config"

var defaultIdentityFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// Host is a connection target with the ssh config applied.
type Host struct {
	// Alias is the name that was resolved, e.g. the `remote.host` field of
	// the project config.
	Alias    string
	HostName string
	Port     string
	User     string

	IdentityFiles   []string
	KnownHostsFiles []string
}

// Address returns the host:port to dial.
func (h Host) Address() string {
	return h.HostName + ":" + h.Port
}

// ResolveHost applies the user's ssh config, and then the system ssh config,
// to `alias`. This lets `shipyard` connect to the same hosts as `ssh` and
// `rsync` do.
func ResolveHost(alias string) (Host, error) {
	home, err := homeDir()
	if err != nil {
		return Host{}, errors.WithContext(err, "get home directory")
	}

	var configs []*ssh_config.Config
	for _, path := range []string{filepath.Join(home, ".ssh", "config"), systemConfigPath} {
		cfg, err := readConfig(path)
		if err != nil {
			return Host{}, errors.WithContext(err, "read "+path)
		}
		if cfg != nil {
			configs = append(configs, cfg)
		}
	}

	get := func(key string) string {
		for _, cfg := range configs {
			if val, err := cfg.Get(alias, key); err == nil && val != "" {
				return val
			}
		}
		return ""
	}

	getAll := func(key string) []string {
		for _, cfg := range configs {
			if vals, err := cfg.GetAll(alias, key); err == nil && len(vals) != 0 {
				return vals
			}
		}
		return nil
	}

	host := Host{
		Alias:    alias,
		HostName: strings.Replace(get("HostName"), "%h", alias, -1),
		Port:     get("Port"),
		User:     get("User"),
	}
	if host.HostName == "" {
		host.HostName = alias
	}
	if host.Port == "" {
		host.Port = ssh_config.Default("Port")
	}
	if host.User == "" {
		current, err := user.Current()
		if err != nil {
			return Host{}, errors.WithContext(err, "get current user")
		}
		host.User = current.Username
	}

	identities := getAll("IdentityFile")
	if len(identities) == 0 {
		for _, name := range defaultIdentityFiles {
			identities = append(identities, filepath.Join("~", ".ssh", name))
		}
	}
	for _, path := range identities {
		host.IdentityFiles = append(host.IdentityFiles, expandHome(home, path))
	}

	knownHosts := strings.Fields(get("UserKnownHostsFile"))
	if len(knownHosts) == 0 {
		knownHosts = []string{filepath.Join("~", ".ssh", "known_hosts")}
	}
	for _, path := range knownHosts {
		host.KnownHostsFiles = append(host.KnownHostsFiles, expandHome(home, path))
	}

	log.WithFields(log.Fields{
		"alias":    alias,
		"hostname": host.HostName,
		"port":     host.Port,
		"user":     host.User,
	}).Debug("Resolved ssh host")
	return host, nil
}

// readConfig parses the ssh config at `path`. A missing config is nil.
func readConfig(path string) (*ssh_config.Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return ssh_config.Decode(f)
}

func expandHome(home, path string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
