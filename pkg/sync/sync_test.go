package sync

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

type fakeTransport struct {
	plans []Plan
	err   error
}

func (t *fakeTransport) Transfer(_ context.Context, plan Plan) error {
	t.plans = append(t.plans, plan)
	return t.err
}

func testProject() config.Project {
	project := config.Example("chore-bot").WithRoot("/project")
	project.Artifacts = []string{"src", "keys.env", "Dockerfile"}
	return project
}

func TestSync(t *testing.T) {
	fs = afero.NewMemMapFs()
	for _, f := range []string{"src/main.py", "src/__pycache__/main.pyc", "keys.env", "Dockerfile"} {
		require.NoError(t, randomFile(mockFile{path: "/project/" + f}).writeToFs())
	}
	require.NoError(t, afero.WriteFile(fs, "/project/.deployignore", []byte("*.tmp\n"), 0644))

	project := testProject()

	hook := logrusTest.NewGlobal()
	transport := &fakeTransport{}
	synchronizer, err := New(project, transport)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.tmp"}, synchronizer.Filter().Patterns)

	snapshot, err := synchronizer.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot, 3)
	assert.NotContains(t, snapshot, "src/__pycache__/main.pyc")

	assert.Equal(t, []Plan{{
		Root:       project.Root(),
		Artifacts:  project.Artifacts,
		IgnoreFile: ".deployignore",
		Remote:     project.Remote,
	}}, transport.plans)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "Sync complete", hook.LastEntry().Message)
}

func TestSyncMissingArtifact(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, randomFile(mockFile{path: "/project/src/main.py"}).writeToFs())

	project := testProject()
	transport := &fakeTransport{}
	synchronizer, err := New(project, transport)
	require.NoError(t, err)

	_, err = synchronizer.Sync(context.Background())
	assert.Equal(t, errors.WithContext(errors.NewFriendlyError(
		"Failed to sync files.\n"+
			"%q doesn't exist.\n\n"+
			"Are the artifacts in %q correct?",
		"/project/keys.env", project.Path()), "get local files"), err)

	// Nothing is transferred if the snapshot fails.
	assert.Empty(t, transport.plans)
}

func TestSyncTransportError(t *testing.T) {
	fs = afero.NewMemMapFs()
	for _, f := range []string{"src/main.py", "keys.env", "Dockerfile"} {
		require.NoError(t, randomFile(mockFile{path: "/project/" + f}).writeToFs())
	}

	transport := &fakeTransport{err: assert.AnError}
	synchronizer, err := New(testProject(), transport)
	require.NoError(t, err)

	_, err = synchronizer.Sync(context.Background())
	assert.Equal(t, errors.WithContext(assert.AnError, "transfer"), err)
	assert.Len(t, transport.plans, 1)
}
