// Package lock implements the lease that serializes releases on a deployment
// target.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

const (
	// FileName is the name of the lease file within the state directory.
	FileName = "deploy.lock"

	// DefaultTTL is how long a lease is honored before it's considered
	// abandoned. Builds that take longer than this should pass a larger TTL.
	DefaultTTL = 30 * time.Minute
)

// Lease is the contents of the lease file.
type Lease struct {
	Owner    string    `json:"owner"`
	Acquired time.Time `json:"acquired"`
	Expires  time.Time `json:"expires"`
}

// HeldError is returned when another owner holds an unexpired lease.
type HeldError struct {
	Lease Lease
}

func (err HeldError) Error() string {
	return fmt.Sprintf("%s (held by %s until %s)", errors.ErrDeployInProgress,
		err.Lease.Owner, err.Lease.Expires.Format(time.RFC3339))
}

// FriendlyMessage implements the friendly error interface.
func (err HeldError) FriendlyMessage() string {
	return fmt.Sprintf("Another deploy is in progress (%s). It started at %s. "+
		"If it was abandoned, the lease expires at %s.", err.Lease.Owner,
		err.Lease.Acquired.Format(time.RFC3339), err.Lease.Expires.Format(time.RFC3339))
}

// Is lets callers check for errors.ErrDeployInProgress.
func (err HeldError) Is(target error) bool {
	return target == errors.ErrDeployInProgress
}

// Lock guards a project directory on the deployment target.
type Lock struct {
	fs    afero.Fs
	path  string
	ttl   time.Duration
	clock clockwork.Clock
}

// New returns a Lock for the project directory `dir`.
func New(fs afero.Fs, dir string, ttl time.Duration, clock clockwork.Clock) Lock {
	return Lock{
		fs:    fs,
		path:  filepath.Join(dir, config.StateDir, FileName),
		ttl:   ttl,
		clock: clock,
	}
}

// Path returns the path to the lease file.
func (l Lock) Path() string {
	return l.path
}

// Acquire takes the lease for `owner`. The returned function releases it.
func (l Lock) Acquire(owner string) (func() error, error) {
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, errors.WithContext(err, "create state directory")
	}

	now := l.clock.Now()
	lease := Lease{Owner: owner, Acquired: now, Expires: now.Add(l.ttl)}
	err := l.create(lease)
	if err == nil {
		return func() error { return l.release(owner) }, nil
	}

	if !os.IsExist(err) {
		return nil, errors.WithContext(err, "create lease")
	}

	held, err := l.read()
	if err != nil {
		return nil, errors.WithContext(err, "read lease")
	}

	if now.Before(held.Expires) {
		return nil, HeldError{held}
	}

	log.WithFields(log.Fields{
		"owner":   held.Owner,
		"expired": held.Expires,
	}).Warn("Breaking expired deploy lease")
	current, broken, err := l.breakLease(held)
	if err != nil {
		return nil, err
	}
	if !broken {
		return nil, HeldError{current}
	}

	// Another release may have broken the lease at the same time, in which
	// case only one of the creates succeeds.
	if err := l.create(lease); err != nil {
		if os.IsExist(err) {
			held, readErr := l.read()
			if readErr != nil {
				return nil, errors.WithContext(readErr, "read lease")
			}
			return nil, HeldError{held}
		}
		return nil, errors.WithContext(err, "create lease")
	}
	return func() error { return l.release(owner) }, nil
}

// breakLease removes the expired lease `stale`. The lease file is first
// renamed to a name no one else uses, so that a lease which replaced `stale`
// after it was read is never deleted. If that happened, the replacement is
// put back and returned with broken set to false.
func (l Lock) breakLease(stale Lease) (current Lease, broken bool, err error) {
	tombstone := fmt.Sprintf("%s.%s", l.path, uuid.NewString())
	if err := l.fs.Rename(l.path, tombstone); err != nil {
		// Someone else already moved it aside. The create decides who gets
		// the lease.
		if os.IsNotExist(err) {
			return Lease{}, true, nil
		}
		return Lease{}, false, errors.WithContext(err, "move expired lease")
	}

	moved, err := l.readFile(tombstone)
	if err != nil {
		return Lease{}, false, errors.WithContext(err, "read expired lease")
	}

	if moved.sameAs(stale) {
		if err := l.fs.Remove(tombstone); err != nil {
			return Lease{}, false, errors.WithContext(err, "remove expired lease")
		}
		return Lease{}, true, nil
	}

	// The lease was replaced after it was read. Restore it, unless yet
	// another lease has been created in its place.
	if err := l.create(moved); err != nil && !os.IsExist(err) {
		return Lease{}, false, errors.WithContext(err, "restore lease")
	}
	if err := l.fs.Remove(tombstone); err != nil {
		log.WithError(err).WithField("path", tombstone).Warn("Failed to remove moved lease")
	}
	return moved, false, nil
}

func (lease Lease) sameAs(other Lease) bool {
	return lease.Owner == other.Owner &&
		lease.Acquired.Equal(other.Acquired) &&
		lease.Expires.Equal(other.Expires)
}

func (l Lock) create(lease Lease) error {
	contents, err := yaml.Marshal(lease)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	if _, err := f.Write(contents); err != nil {
		f.Close()
		return errors.WithContext(err, "write")
	}
	return f.Close()
}

func (l Lock) read() (Lease, error) {
	return l.readFile(l.path)
}

func (l Lock) readFile(path string) (Lease, error) {
	contents, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return Lease{}, err
	}

	var lease Lease
	if err := yaml.Unmarshal(contents, &lease); err != nil {
		return Lease{}, errors.WithContext(err, "unmarshal")
	}
	return lease, nil
}

// release removes the lease if it's still held by `owner`. A lease that was
// broken and taken by someone else is left alone.
func (l Lock) release(owner string) error {
	held, err := l.read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithContext(err, "read lease")
	}

	if held.Owner != owner {
		log.WithField("owner", held.Owner).Warn(
			"Deploy lease was taken over by another owner. Leaving it in place.")
		return nil
	}
	return l.fs.Remove(l.path)
}
