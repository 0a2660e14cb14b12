package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/sync"
)

type fakeSyncer struct {
	snapshots []sync.LocalSnapshot
	syncErrs  []error
	synced    []sync.LocalSnapshot
}

func (s *fakeSyncer) Snapshot() (sync.LocalSnapshot, error) {
	snapshot := s.snapshots[0]
	if len(s.snapshots) > 1 {
		s.snapshots = s.snapshots[1:]
	}
	return snapshot, nil
}

func (s *fakeSyncer) SyncSnapshot(_ context.Context, snapshot sync.LocalSnapshot) error {
	s.synced = append(s.synced, snapshot)
	if len(s.syncErrs) == 0 {
		return nil
	}
	err := s.syncErrs[0]
	s.syncErrs = s.syncErrs[1:]
	return err
}

func snapshot(hash string) sync.LocalSnapshot {
	return sync.LocalSnapshot{
		"src/app.py": {
			SyncPath:       "src/app.py",
			FileAttributes: sync.FileAttributes{ContentsHash: hash},
		},
	}
}

func TestWatcherRun(t *testing.T) {
	a, b := snapshot("a"), snapshot("b")
	syncer := &fakeSyncer{snapshots: []sync.LocalSnapshot{a, a, b, b}}
	w := &watcher{syncer: syncer}

	ctx, cancel := context.WithCancel(context.Background())
	fileUpdates := make(chan struct{})
	poll := make(chan time.Time)
	done := make(chan error)
	go func() {
		done <- w.run(ctx, fileUpdates, poll)
	}()

	// The first sync happens immediately. Unchanged snapshots aren't synced.
	fileUpdates <- struct{}{}
	fileUpdates <- struct{}{}
	poll <- time.Now()
	cancel()

	assert.NoError(t, <-done)
	assert.Equal(t, []sync.LocalSnapshot{a, b}, syncer.synced)
	assert.Equal(t, b, w.lastSynced)
}

func TestWatcherDoesNotRetryFailedSync(t *testing.T) {
	a, b := snapshot("a"), snapshot("b")
	syncer := &fakeSyncer{
		snapshots: []sync.LocalSnapshot{a, a, b},
		syncErrs:  []error{errors.New("rsync exited with status 12")},
	}
	w := &watcher{syncer: syncer}

	assert.EqualError(t, w.syncOnce(context.Background()), "rsync exited with status 12")
	assert.Nil(t, w.lastSynced)

	// The failed snapshot is only synced again once it changes.
	assert.NoError(t, w.syncOnce(context.Background()))
	assert.Len(t, syncer.synced, 1)

	assert.NoError(t, w.syncOnce(context.Background()))
	assert.Equal(t, []sync.LocalSnapshot{a, b}, syncer.synced)
	assert.Equal(t, b, w.lastSynced)
}
