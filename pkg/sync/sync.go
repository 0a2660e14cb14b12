package sync

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

// Synchronizer mirrors a project's artifacts to its remote directory.
type Synchronizer struct {
	project   config.Project
	filter    Filter
	transport Transport
}

// New creates a Synchronizer for the project. The ignore file is read once,
// when the Synchronizer is created.
func New(project config.Project, transport Transport) (Synchronizer, error) {
	patterns, err := LoadIgnoreFile(filepath.Join(project.Root(), project.IgnoreFile))
	if err != nil {
		return Synchronizer{}, errors.WithContext(err, "load ignore file")
	}

	filter, err := NewFilter(patterns)
	if err != nil {
		return Synchronizer{}, errors.WithContext(err, "create filter")
	}
	return Synchronizer{project: project, filter: filter, transport: transport}, nil
}

// Filter returns the exclusion rules used by the Synchronizer.
func (s Synchronizer) Filter() Filter {
	return s.filter
}

// Snapshot returns the files that would be transferred by Sync.
func (s Synchronizer) Snapshot() (LocalSnapshot, error) {
	snapshot, err := SnapshotArtifacts(s.project.Root(), s.project.Artifacts, s.filter)
	if err != nil {
		if dneErr, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return nil, errors.NewFriendlyError(
				"Failed to sync files.\n"+
					"%q doesn't exist.\n\n"+
					"Are the artifacts in %q correct?",
				dneErr.Path, s.project.Path())
		}
		return nil, err
	}
	return snapshot, nil
}

// Sync snapshots the artifacts, then transfers them. It blocks until the
// transfer has completed.
func (s Synchronizer) Sync(ctx context.Context) (LocalSnapshot, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, errors.WithContext(err, "get local files")
	}

	if err := s.SyncSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SyncSnapshot transfers the artifacts without taking a new snapshot.
func (s Synchronizer) SyncSnapshot(ctx context.Context, snapshot LocalSnapshot) error {
	plan := Plan{
		Root:      s.project.Root(),
		Artifacts: s.project.Artifacts,
		Remote:    s.project.Remote,
	}

	ignorePath := filepath.Join(s.project.Root(), s.project.IgnoreFile)
	if _, err := fs.Stat(ignorePath); err == nil {
		plan.IgnoreFile = s.project.IgnoreFile
	} else if !os.IsNotExist(err) {
		return errors.WithContext(err, "stat ignore file")
	}

	log.WithFields(log.Fields{
		"files":  len(snapshot),
		"remote": s.project.Remote.String(),
	}).Info("Syncing files")
	if err := s.transport.Transfer(ctx, plan); err != nil {
		return errors.WithContext(err, "transfer")
	}

	log.WithField("remote", s.project.Remote.String()).Info("Sync complete")
	return nil
}
