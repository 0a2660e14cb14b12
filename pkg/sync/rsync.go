package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/exec"
)

// Plan describes a single transfer.
type Plan struct {
	// Root is the local project directory. Artifacts are relative to it.
	Root      string
	Artifacts []string

	// IgnoreFile is the ignore file relative to Root. It's only passed to the
	// transport if it exists.
	IgnoreFile string

	Remote config.Remote
}

// Transport copies the planned artifacts to the remote host.
type Transport interface {
	Transfer(ctx context.Context, plan Plan) error
}

// Rsync transfers files by running rsync over the system ssh client, so that
// aliases in the ssh config work the same way they do for `ssh`.
type Rsync struct {
	Runner exec.Runner
	Binary string
}

// NewRsync returns an rsync transport that logs rsync's output.
func NewRsync() Rsync {
	return Rsync{Runner: exec.NewLogRunner(), Binary: "rsync"}
}

// Transfer runs rsync from the project root. There are no retries: the first
// failure aborts with rsync's exit status.
func (r Rsync) Transfer(ctx context.Context, plan Plan) error {
	return r.Runner.Run(ctx, exec.Command{
		Name: r.Binary,
		Args: r.Args(plan),
		Dir:  plan.Root,
	})
}

// Args returns the rsync arguments for the plan.
// -a preserves permissions and timestamps, and -z compresses in transit.
// --relative keeps each artifact's path under the remote directory, so
// docker/Dockerfile is synced to <dir>/docker/Dockerfile rather than
// <dir>/Dockerfile. It also makes the ignore file's anchored patterns relative
// to the project root. --delete-excluded removes remote files that are now
// excluded locally.
func (r Rsync) Args(plan Plan) []string {
	args := []string{"-az", "--relative", "--delete", "--delete-excluded",
		fmt.Sprintf("--rsync-path=mkdir -p %s && rsync", exec.ShellPath(plan.Remote.Dir))}
	// Deploy state lives next to the synced files on the remote host.
	args = append(args, fmt.Sprintf("--filter=P /%s/", config.StateDir))
	for _, pattern := range config.AlwaysExcluded {
		args = append(args, "--exclude="+pattern)
	}
	if plan.IgnoreFile != "" {
		args = append(args, "--exclude-from="+plan.IgnoreFile)
	}
	args = append(args, "--")
	args = append(args, plan.Artifacts...)
	return append(args, fmt.Sprintf("%s:%s/", plan.Remote.Host, strings.TrimSuffix(plan.Remote.Dir, "/")))
}
