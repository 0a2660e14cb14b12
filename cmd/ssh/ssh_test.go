package ssh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/shipyard/pkg/config"
)

func TestShellArgs(t *testing.T) {
	project := config.Example("chore-bot")
	assert.Empty(t, shellArgs(project, false))
	assert.Equal(t, []string{"docker", "exec", "-it", "chore-bot", "sh"},
		shellArgs(project, true))
}
