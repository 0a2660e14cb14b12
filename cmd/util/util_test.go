package util

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
)

func mockExit(t *testing.T) (*int, *bytes.Buffer) {
	oldExit, oldStderr := exit, stderr
	t.Cleanup(func() {
		exit, stderr = oldExit, oldStderr
	})

	code := -1
	exit = func(c int) {
		code = c
	}

	var out bytes.Buffer
	stderr = &out
	return &code, &out
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("error")))
	assert.Equal(t, 12, ExitCode(exec.ExitError{Command: "rsync", Code: 12}))
	assert.Equal(t, 3, ExitCode(errors.WithContext(
		errors.WithContext(exec.ExitError{Command: "ssh", Code: 3}, "remote release"), "deploy")))
}

func TestHandleFatalErrorFriendly(t *testing.T) {
	hook := logrusTest.NewGlobal()
	defer hook.Reset()
	code, out := mockExit(t)

	HandleFatalError(errors.WithContext(errors.NewFriendlyError("Fix the config."), "parse"))
	assert.Equal(t, 1, *code)
	assert.Empty(t, hook.AllEntries())
	assert.Equal(t, "Fix the config.\n", out.String())
}

func TestHandleFatalErrorExitCode(t *testing.T) {
	hook := logrusTest.NewGlobal()
	defer hook.Reset()
	code, _ := mockExit(t)

	HandleFatalError(errors.WithContext(exec.ExitError{Command: "rsync", Code: 23}, "sync"))
	assert.Equal(t, 23, *code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.ErrorLevel, entry.Level)
	assert.Equal(t, "Fatal error", entry.Message)
}

func TestHandlePanic(t *testing.T) {
	hook := logrusTest.NewGlobal()
	defer hook.Reset()
	code, _ := mockExit(t)

	func() {
		defer HandlePanic()
		panic("boom")
	}()
	assert.Equal(t, 1, *code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}

func TestReadEnv(t *testing.T) {
	project := config.Example("chore-bot").WithRoot(t.TempDir())
	project.Container.RequiredEnv = []string{"SLACK_BOT_TOKEN", "SLACK_SIGNING_SECRET"}
	envPath := filepath.Join(project.Root(), project.Container.EnvFile)

	_, err := ReadEnv(project)
	assert.Error(t, err, "the env file is required")

	require.NoError(t, os.WriteFile(envPath, []byte("SLACK_BOT_TOKEN=xoxb\n"), 0600))
	_, err = ReadEnv(project)
	assert.IsType(t, errors.FriendlyError{}, err)
	assert.Contains(t, err.Error(), "SLACK_SIGNING_SECRET")
	assert.NotContains(t, err.Error(), "xoxb")

	require.NoError(t, os.WriteFile(envPath,
		[]byte("SLACK_BOT_TOKEN=xoxb\nSLACK_SIGNING_SECRET=s3cret\n"), 0600))
	env, err := ReadEnv(project)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SLACK_BOT_TOKEN=xoxb", "SLACK_SIGNING_SECRET=s3cret"}, env)
}
