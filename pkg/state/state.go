// Package state keeps the durable deploy record on the remote host. Each slot
// (the primary container name) tracks the release that's currently running,
// and the one it replaced, so that rollbacks don't depend on container names.
package state

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

const (
	// FileName is the name of the record within the state directory.
	FileName = "state.yaml"

	// SupportedVersion is the version of the record written by this binary.
	SupportedVersion = "v1alpha1"
)

// ErrNoPreviousRelease is returned when rolling back a slot that has never
// been replaced.
var ErrNoPreviousRelease = errors.NewFriendlyError("There is no previous " +
	"release to roll back to.")

// Release describes a deployed container.
type Release struct {
	DeployID    string    `json:"deployID"`
	Image       string    `json:"image"`
	ImageID     string    `json:"imageID"`
	Revision    string    `json:"revision,omitempty"`
	ContainerID string    `json:"containerID,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	Ports       []string  `json:"ports,omitempty"`
}

// Slot is the record for a single primary container name.
type Slot struct {
	Current  *Release `json:"current,omitempty"`
	Previous *Release `json:"previous,omitempty"`
}

// State is the contents of the record.
type State struct {
	Version string          `json:"version"`
	Slots   map[string]Slot `json:"slots"`
}

// Store reads and writes the record.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a Store for the project directory `dir`.
func NewStore(fs afero.Fs, dir string) Store {
	return Store{fs: fs, path: filepath.Join(dir, config.StateDir, FileName)}
}

// Path returns the path to the record.
func (s Store) Path() string {
	return s.path
}

// Load returns the record. A missing record is empty.
func (s Store) Load() (State, error) {
	state := State{Version: SupportedVersion, Slots: map[string]Slot{}}
	contents, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return State{}, errors.WithContext(err, "read")
	}

	if err := yaml.Unmarshal(contents, &state); err != nil {
		return State{}, errors.WithContext(err, "unmarshal")
	}

	if state.Version != SupportedVersion {
		return State{}, errors.NewFriendlyError("The deploy record %q has "+
			"version %q, but this version of shipyard expects %q.",
			s.path, state.Version, SupportedVersion)
	}

	if state.Slots == nil {
		state.Slots = map[string]Slot{}
	}
	return state, nil
}

// Get returns the record for `slot`.
func (s Store) Get(slot string) (Slot, error) {
	state, err := s.Load()
	if err != nil {
		return Slot{}, err
	}
	return state.Slots[slot], nil
}

// Record marks `release` as the current release of `slot`. The release it
// replaces becomes the previous release.
func (s Store) Record(slot string, release Release) error {
	state, err := s.Load()
	if err != nil {
		return errors.WithContext(err, "load")
	}

	curr := state.Slots[slot]
	state.Slots[slot] = Slot{Current: &release, Previous: curr.Current}
	return s.save(state)
}

// Rollback swaps the current and previous releases of `slot`, and returns the
// updated slot.
func (s Store) Rollback(slot string) (Slot, error) {
	state, err := s.Load()
	if err != nil {
		return Slot{}, errors.WithContext(err, "load")
	}

	curr := state.Slots[slot]
	if curr.Previous == nil {
		return Slot{}, ErrNoPreviousRelease
	}

	swapped := Slot{Current: curr.Previous, Previous: curr.Current}
	state.Slots[slot] = swapped
	if err := s.save(state); err != nil {
		return Slot{}, err
	}
	return swapped, nil
}

// save writes the record to a temporary file, and then renames it into place
// so that readers never see a partial record.
func (s Store) save(state State) error {
	state.Version = SupportedVersion
	contents, err := yaml.Marshal(state)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.WithContext(err, "create state directory")
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}
