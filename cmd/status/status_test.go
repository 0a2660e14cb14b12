package status

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/buger/goterm"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/docker/mocks"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/lifecycle"
	"github.com/sidkik/shipyard/pkg/state"
)

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	oldStdout := stdout
	stdout = &out
	defer func() { stdout = oldStdout }()

	project := config.Example("chore-bot").WithRoot("/home/bot/chore-bot")
	store := state.NewStore(afero.NewMemMapFs(), project.Root())
	require.NoError(t, store.Record("chore-bot", state.Release{
		DeployID:  "deploy-1",
		Image:     "chore-bot",
		ImageID:   "sha256:0123456789abcdef",
		Revision:  "abc1234",
		StartedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}))

	client := &mocks.Client{}
	client.On("ContainerInspect", mock.Anything, "chore-bot").Return(types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    "new",
			Image: "sha256:0123456789abcdef",
			State: &types.ContainerState{
				Status:    "running",
				StartedAt: "2026-10-18T09:30:01Z",
			},
		},
		NetworkSettings: &types.NetworkSettings{
			NetworkSettingsBase: types.NetworkSettingsBase{
				Ports: nat.PortMap{"3000/tcp": {{HostPort: "3000"}}},
			},
		},
	}, nil)
	client.On("ContainerInspect", mock.Anything, "chore-bot-old").Return(
		types.ContainerJSON{}, errdefs.NotFound(errors.New("No such container")))

	err := printStatus(context.Background(), project, lifecycle.Manager{Client: client}, store)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, strings.Fields("CONTAINER IMAGE PORTS STARTED STATE"), strings.Fields(lines[0]))
	assert.Equal(t, []string{"chore-bot", "0123456789ab", "3000->3000/tcp",
		"2026-10-18T09:30:01Z", goterm.Color("running", goterm.GREEN)}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"chore-bot-old", "-", "-", "-",
		goterm.Color("missing", goterm.YELLOW)}, strings.Fields(lines[2]))
	assert.Equal(t, "", lines[3])
	assert.Equal(t, []string{"current", "deploy-1", "abc1234", "0123456789ab",
		"2026-10-18T09:30:00Z"}, strings.Fields(lines[5]))
	assert.Equal(t, []string{"previous", "-", "-", "-", "-"}, strings.Fields(lines[6]))
}

func TestPrintStatusPolicyRemove(t *testing.T) {
	var out bytes.Buffer
	oldStdout := stdout
	stdout = &out
	defer func() { stdout = oldStdout }()

	project := config.Example("chore-bot").WithRoot("/home/bot/chore-bot")
	project.Container.Policy = config.PolicyRemove

	client := &mocks.Client{}
	client.On("ContainerInspect", mock.Anything, "chore-bot").Return(
		types.ContainerJSON{}, errdefs.NotFound(errors.New("No such container")))

	err := printStatus(context.Background(), project, lifecycle.Manager{Client: client},
		state.NewStore(afero.NewMemMapFs(), project.Root()))
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "chore-bot-old")
	client.AssertNotCalled(t, "ContainerInspect", mock.Anything, "chore-bot-old")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortID("sha256:0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "", shortID(""))
}
