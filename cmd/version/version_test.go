package version

import (
	"bytes"
	"context"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/ssh"
	"github.com/sidkik/shipyard/pkg/ssh/mocks"
	"github.com/sidkik/shipyard/pkg/version"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name          string
		local, remote string
		expOK         bool
	}{
		{"Same", "0.3.0", "0.3.0", true},
		{"Remote older", "0.3.0", "0.2.1", false},
		{"Remote newer", "0.3.0", "0.4.0", false},
		{"Local dev build", version.EmptyValue, "0.4.0", true},
		{"Remote dev build", "0.3.0", version.EmptyValue, true},
		{"Unparseable", "0.3.0", "abc1234", true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			msg, ok := compareVersions(test.local, test.remote)
			assert.Equal(t, test.expOK, ok)
			assert.Equal(t, test.expOK, msg == "")
		})
	}
}

func mockRemote(t *testing.T, output string, err error) *mocks.Client {
	remote := config.Example("chore-bot").Remote
	cmd := ssh.Invoker{Remote: remote}.Command("version", "--short")

	client := &mocks.Client{}
	client.On("Run", mock.Anything, cmd,
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, writeErr := io.WriteString(args.Get(2).(io.Writer), output)
			require.NoError(t, writeErr)
		}).
		Return(err)
	client.On("Close").Return(nil)

	dialRemote = func(_ context.Context, project config.Project) (ssh.Invoker, ssh.Client, error) {
		return ssh.Invoker{Client: client, Remote: project.Remote}, client, nil
	}
	return client
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	stdout = &out
	version.Version = "0.3.0"
	defer func() { version.Version = version.EmptyValue }()

	parseProject = func() (config.Project, error) {
		return config.Example("chore-bot"), nil
	}
	client := mockRemote(t, "0.2.0\n", nil)

	hook := logrusTest.NewGlobal()
	require.NoError(t, run(context.Background()))

	assert.Equal(t, "local version:  0.3.0\nremote version: 0.2.0\n", out.String())
	client.AssertExpectations(t)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "0.2.0", hook.LastEntry().Data["remote"])
}

func TestRunOutsideProject(t *testing.T) {
	var out bytes.Buffer
	stdout = &out
	parseProject = func() (config.Project, error) {
		return config.Project{}, errors.NewFriendlyError("no project")
	}
	dialRemote = func(context.Context, config.Project) (ssh.Invoker, ssh.Client, error) {
		t.Fatal("shouldn't connect outside a project")
		return ssh.Invoker{}, nil, nil
	}

	require.NoError(t, run(context.Background()))
	assert.Equal(t, "local version:  "+version.Version+"\n", out.String())
}

func TestRunRemoteError(t *testing.T) {
	stdout = &bytes.Buffer{}
	parseProject = func() (config.Project, error) {
		return config.Example("chore-bot"), nil
	}
	client := mockRemote(t, "", errors.New("command not found"))

	err := run(context.Background())
	assert.EqualError(t, err, "get remote version: command not found")
	client.AssertExpectations(t)
}
