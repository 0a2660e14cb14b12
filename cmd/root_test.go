package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubcommands(t *testing.T) {
	root := New()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"init", "deploy", "logs", "release",
		"rollback", "ssh", "status", "sync", "version"}, names)

	cmd, _, err := root.Find([]string{"config"})
	assert.NoError(t, err)
	assert.Equal(t, "init", cmd.Name())
}
