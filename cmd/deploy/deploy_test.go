package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/exec"
	"github.com/sidkik/shipyard/pkg/ssh"
	"github.com/sidkik/shipyard/pkg/sync"
)

type step struct {
	name string
	err  error
	log  *[]string
}

func (s step) Sync(context.Context) (sync.LocalSnapshot, error) {
	*s.log = append(*s.log, s.name)
	return sync.LocalSnapshot{}, s.err
}

func (s step) Release(_ context.Context, opts ssh.ReleaseOptions) error {
	*s.log = append(*s.log, s.name+" "+opts.DeployID)
	return s.err
}

// connect records the dial and close of the remote session.
func connect(r step, err error) connectFunc {
	return func(context.Context) (releaser, func() error, error) {
		*r.log = append(*r.log, "dial")
		if err != nil {
			return nil, nil, err
		}
		return r, func() error {
			*r.log = append(*r.log, "close")
			return nil
		}, nil
	}
}

func TestDeploy(t *testing.T) {
	rsyncFailed := exec.ExitError{Command: "rsync", Code: 23}
	remoteFailed := errors.WithContext(exec.ExitError{Command: "ssh", Code: 1}, "remote release")

	tests := []struct {
		name       string
		syncErr    error
		releaseErr error
		dialErr    error
		expSteps   []string
		expErr     error
	}{
		{
			name:     "Success",
			expSteps: []string{"sync", "dial", "release deploy-1", "close"},
		},
		{
			name:     "SyncFailureSkipsRelease",
			syncErr:  rsyncFailed,
			expSteps: []string{"sync"},
			expErr:   errors.WithContext(rsyncFailed, "sync"),
		},
		{
			name:       "ReleaseFailure",
			releaseErr: remoteFailed,
			expSteps:   []string{"sync", "dial", "release deploy-1", "close"},
			expErr:     remoteFailed,
		},
		{
			name:     "DialFailure",
			dialErr:  errors.New("connection refused"),
			expSteps: []string{"sync", "dial"},
			expErr:   errors.New("connection refused"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var steps []string
			err := deploy(context.Background(),
				step{name: "sync", err: test.syncErr, log: &steps},
				connect(step{name: "release", err: test.releaseErr, log: &steps}, test.dialErr),
				ssh.ReleaseOptions{DeployID: "deploy-1", Revision: "abc1234"})
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, test.expSteps, steps)
		})
	}
}
