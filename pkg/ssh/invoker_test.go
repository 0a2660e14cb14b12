package ssh_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
	"github.com/sidkik/shipyard/pkg/ssh"
	"github.com/sidkik/shipyard/pkg/ssh/mocks"
)

var testRemote = config.Remote{
	Host:    "chores",
	Dir:     "~/chore-bot",
	Command: "~/bin/shipyard",
}

func TestCommand(t *testing.T) {
	inv := ssh.Invoker{Remote: testRemote}
	assert.Equal(t, "cd ~/'chore-bot' && ~/'bin/shipyard' 'status'", inv.Command("status"))
	assert.Equal(t, "cd ~/'chore-bot' && ~/'bin/shipyard'", inv.Command())

	inv.Env = map[string]string{"SHIPYARD_LOG_VERBOSE": "true", "A": "b c"}
	assert.Equal(t, "cd ~/'chore-bot' && A='b c' SHIPYARD_LOG_VERBOSE='true' ~/'bin/shipyard' 'version'",
		inv.Command("version"))
}

func TestRelease(t *testing.T) {
	client := &mocks.Client{}
	var stdout, stderr bytes.Buffer
	client.On("Run", mock.Anything,
		"cd ~/'chore-bot' && ~/'bin/shipyard' 'release' '--deploy-id' 'deploy-1' '--revision' 'abc1234'",
		&stdout, &stderr).Return(nil).Once()

	inv := ssh.Invoker{Client: client, Remote: testRemote, Stdout: &stdout, Stderr: &stderr}
	err := inv.Release(context.Background(), ssh.ReleaseOptions{DeployID: "deploy-1", Revision: "abc1234"})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestReleaseExitCode(t *testing.T) {
	client := &mocks.Client{}
	client.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(exec.ExitError{Command: "ssh", Code: 3})

	inv := ssh.Invoker{Client: client, Remote: testRemote}
	err := inv.Release(context.Background(), ssh.ReleaseOptions{DeployID: "deploy-1", Revision: "abc1234"})
	assert.EqualError(t, err, "remote release: ssh exited with status 3")
	assert.Equal(t, exec.ExitError{Command: "ssh", Code: 3}, errors.RootCause(err))
}

func TestOutput(t *testing.T) {
	client := &mocks.Client{}
	client.On("Run", mock.Anything, "cd ~/'chore-bot' && ~/'bin/shipyard' 'version' '--short'",
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_, err := io.WriteString(args.Get(2).(io.Writer), "0.3.0\n")
			require.NoError(t, err)
		}).
		Return(nil)

	out, err := ssh.Invoker{Client: client, Remote: testRemote}.Output(
		context.Background(), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", out)
}

func TestShell(t *testing.T) {
	term := ssh.Terminal{Stdin: &bytes.Buffer{}, Stdout: &bytes.Buffer{}, Width: 80, Height: 24}

	client := &mocks.Client{}
	client.On("Shell", mock.Anything, `cd ~/'chore-bot' && exec "${SHELL:-sh}" -l`, term).
		Return(nil).Once()
	client.On("Shell", mock.Anything, "cd ~/'chore-bot' && 'docker' 'exec' '-it' 'chore-bot' 'sh'", term).
		Return(exec.ExitError{Command: "ssh", Code: 130}).Once()

	inv := ssh.Invoker{Client: client, Remote: testRemote}
	assert.NoError(t, inv.Shell(context.Background(), term))

	err := inv.Shell(context.Background(), term, "docker", "exec", "-it", "chore-bot", "sh")
	assert.Equal(t, exec.ExitError{Command: "ssh", Code: 130}, err)
	client.AssertExpectations(t)
}
