package rollback

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker/mocks"
	"github.com/sidkik/shipyard/pkg/lock"
	"github.com/sidkik/shipyard/pkg/state"
)

func newRollbacker(t *testing.T) (rollbacker, *mocks.Client) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	project := config.Example("chore-bot").WithRoot(dir)
	project.Container.Volume.Host = filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.env"),
		[]byte("SLACK_BOT_TOKEN=xoxb-1\n"), 0600))

	client := &mocks.Client{}
	return rollbacker{
		project: project,
		fs:      fs,
		docker:  client,
		store:   state.NewStore(fs, project.Root()),
		lock:    lock.New(fs, project.Root(), lock.DefaultTTL, clockwork.NewFakeClock()),
	}, client
}

func release(id string) state.Release {
	return state.Release{
		DeployID:  id,
		Image:     "chore-bot",
		ImageID:   "sha256:" + id,
		Revision:  "rev-" + id,
		StartedAt: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
	}
}

func TestRollbackNoPreviousRelease(t *testing.T) {
	r, client := newRollbacker(t)
	require.NoError(t, r.store.Record("chore-bot", release("first")))

	err := r.rollback(context.Background(), "rollback-1")
	assert.Equal(t, state.ErrNoPreviousRelease, err)
	assert.Empty(t, client.Calls)
}

func TestRollback(t *testing.T) {
	r, client := newRollbacker(t)
	first, second := release("first"), release("second")
	require.NoError(t, r.store.Record("chore-bot", first))
	require.NoError(t, r.store.Record("chore-bot", second))

	backup := types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{ID: "old", Image: "sha256:first"},
	}
	client.On("ContainerInspect", mock.Anything, "chore-bot-old").Return(backup, nil)
	client.On("ContainerStop", mock.Anything, "chore-bot", mock.Anything).Return(nil)
	client.On("ContainerRemove", mock.Anything, "chore-bot", mock.Anything).Return(nil)
	client.On("ContainerRename", mock.Anything, "chore-bot-old", "chore-bot").Return(nil)
	client.On("ContainerStart", mock.Anything, "chore-bot", container.StartOptions{}).Return(nil)
	client.On("ContainerInspect", mock.Anything, "chore-bot").Return(backup, nil)

	require.NoError(t, r.rollback(context.Background(), "rollback-1"))
	client.AssertExpectations(t)

	slot, err := r.store.Get("chore-bot")
	require.NoError(t, err)
	assert.Equal(t, state.Slot{Current: &first, Previous: &second}, slot)

	exists, err := afero.Exists(r.fs, r.lock.Path())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRollbackFailureKeepsRecord(t *testing.T) {
	r, client := newRollbacker(t)
	first, second := release("first"), release("second")
	require.NoError(t, r.store.Record("chore-bot", first))
	require.NoError(t, r.store.Record("chore-bot", second))

	client.On("ContainerInspect", mock.Anything, "chore-bot-old").Return(types.ContainerJSON{},
		assert.AnError)

	err := r.rollback(context.Background(), "rollback-1")
	assert.EqualError(t, err, "roll back container: inspect backup: "+assert.AnError.Error())

	slot, err := r.store.Get("chore-bot")
	require.NoError(t, err)
	assert.Equal(t, state.Slot{Current: &second, Previous: &first}, slot)
}
