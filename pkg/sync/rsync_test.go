package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/exec"
	execMocks "github.com/sidkik/shipyard/pkg/exec/mocks"
)

func TestRsyncArgs(t *testing.T) {
	plan := Plan{
		Root:       "/project",
		Artifacts:  []string{"src", "data", "keys.env", "Dockerfile"},
		IgnoreFile: ".deployignore",
		Remote:     config.Remote{Host: "chores", Dir: "~/chore-bot/"},
	}

	exp := []string{
		"-az", "--relative", "--delete", "--delete-excluded",
		"--rsync-path=mkdir -p ~/'chore-bot/' && rsync",
		"--filter=P /.shipyard/",
		"--exclude=__pycache__",
		"--exclude-from=.deployignore",
		"--",
		"src", "data", "keys.env", "Dockerfile",
		"chores:~/chore-bot/",
	}
	assert.Equal(t, exp, NewRsync().Args(plan))
}

func TestRsyncArgsNestedArtifact(t *testing.T) {
	plan := Plan{
		Root:      "/project",
		Artifacts: []string{"src", "docker/Dockerfile", "config/keys.env"},
		Remote:    config.Remote{Host: "chores", Dir: "~/chore-bot"},
	}

	// The nested paths are passed as is, and --relative recreates them under
	// the remote directory.
	args := NewRsync().Args(plan)
	assert.Contains(t, args, "--relative")
	assert.Equal(t, []string{"--", "src", "docker/Dockerfile", "config/keys.env",
		"chores:~/chore-bot/"}, args[len(args)-5:])
}

func TestRsyncArgsWithoutIgnoreFile(t *testing.T) {
	plan := Plan{
		Artifacts: []string{"."},
		Remote:    config.Remote{Host: "deploy@10.0.0.5", Dir: "/srv/bot's app"},
	}

	args := NewRsync().Args(plan)
	assert.NotContains(t, args, "--exclude-from=")
	assert.Contains(t, args, "--exclude=__pycache__")
	assert.Contains(t, args, `--rsync-path=mkdir -p '/srv/bot'\''s app' && rsync`)
	assert.Equal(t, "deploy@10.0.0.5:/srv/bot's app/", args[len(args)-1])
}

func TestRsyncTransfer(t *testing.T) {
	plan := Plan{
		Root:      "/project",
		Artifacts: []string{"src"},
		Remote:    config.Remote{Host: "chores", Dir: "~/chore-bot"},
	}

	runner := &execMocks.Runner{}
	transport := Rsync{Runner: runner, Binary: "rsync"}
	runner.On("Run", mock.Anything, exec.Command{
		Name: "rsync",
		Args: transport.Args(plan),
		Dir:  "/project",
	}).Return(exec.ExitError{Command: "rsync", Code: 12})

	err := transport.Transfer(context.Background(), plan)
	assert.Equal(t, exec.ExitError{Command: "rsync", Code: 12}, err)
	runner.AssertExpectations(t)
}
