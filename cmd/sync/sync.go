package sync

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/fswatch"
	"github.com/sidkik/shipyard/pkg/sync"
)

// The interval to poll the filesystem for any changes that need to be synced.
const pollInterval = 15 * time.Second

// New creates a new `sync` command.
func New() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the project's artifacts to the remote host",
		Long: "Sync copies the project's artifacts to the remote host without\n" +
			"releasing them. With --watch, it keeps syncing whenever they change.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := util.SignalContext()
			defer cancel()

			if err := run(ctx, watch); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"Keep syncing whenever the artifacts change")
	return cmd
}

func run(ctx context.Context, watch bool) error {
	project, err := util.ParseProject()
	if err != nil {
		return err
	}

	synchronizer, err := sync.New(project, sync.NewRsync())
	if err != nil {
		return errors.WithContext(err, "create synchronizer")
	}

	if !watch {
		_, err := synchronizer.Sync(ctx)
		return err
	}

	var fileUpdates <-chan struct{}
	fileWatcher, err := fswatch.Watch(project.Root(), project.Artifacts, synchronizer.Filter())
	switch {
	case err == nil:
		defer fileWatcher.Close()
		fileUpdates = fileWatcher.C
	case strings.Contains(errors.RootCause(err).Error(), "too many open files"):
		log.Warnf("Too many files for shipyard to automatically watch for "+
			"changes. Shipyard will poll for changes every %s instead.", pollInterval)
	default:
		return errors.WithContext(err, "watch files")
	}

	ticker := clockwork.NewRealClock().NewTicker(pollInterval)
	defer ticker.Stop()

	return (&watcher{syncer: synchronizer}).run(ctx, fileUpdates, ticker.Chan())
}

type snapshotSyncer interface {
	Snapshot() (sync.LocalSnapshot, error)
	SyncSnapshot(ctx context.Context, snapshot sync.LocalSnapshot) error
}

type watcher struct {
	syncer snapshotSyncer

	// lastAttempt is the version of the last snapshot that was synced,
	// whether or not the sync succeeded. Failed syncs aren't retried until
	// the files change again.
	lastAttempt string
	lastSynced  sync.LocalSnapshot
}

// run syncs whenever there's a file update or a poll, until the context is
// cancelled.
func (w *watcher) run(ctx context.Context, fileUpdates <-chan struct{},
	poll <-chan time.Time) error {
	for {
		if err := w.syncOnce(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Sync failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-fileUpdates:
		case <-poll:
		}
	}
}

func (w *watcher) syncOnce(ctx context.Context) error {
	snapshot, err := w.syncer.Snapshot()
	if err != nil {
		return errors.WithContext(err, "get local files")
	}

	version := snapshot.Version()
	if version == w.lastAttempt {
		log.Debug("No changes to sync")
		return nil
	}
	w.lastAttempt = version

	changed, removed := snapshot.Diff(w.lastSynced)
	log.WithFields(log.Fields{
		"changed": len(changed),
		"removed": len(removed),
	}).Info("Detected changes")
	for _, path := range changed {
		log.WithField("path", path).Debug("Changed")
	}
	for _, path := range removed {
		log.WithField("path", path).Debug("Removed")
	}

	if err := w.syncer.SyncSnapshot(ctx, snapshot); err != nil {
		return err
	}
	w.lastSynced = snapshot
	return nil
}
