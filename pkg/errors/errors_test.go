package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	err := WithContext(WithContext(FileNotFound{Path: "keys.env"}, "read env file"), "release")
	assert.EqualError(t, err, `release: read env file: "keys.env" does not exist`)
	assert.Equal(t, FileNotFound{Path: "keys.env"}, RootCause(err))

	var notFound FileNotFound
	assert.True(t, As(err, &notFound))
	assert.Equal(t, "keys.env", notFound.Path)
}

func TestGetPrintableMessage(t *testing.T) {
	friendly := NewFriendlyError("The port %q is invalid.", "abc")
	assert.Equal(t, `The port "abc" is invalid.`,
		GetPrintableMessage(WithContext(friendly, "parse config")))

	plain := WithContext(New("boom"), "build image")
	assert.Equal(t, "build image: boom", GetPrintableMessage(plain))
}

func TestNew(t *testing.T) {
	assert.EqualError(t, New("no args %d"), "no args %d")
	assert.EqualError(t, New("exit %d", 3), "exit 3")
}
