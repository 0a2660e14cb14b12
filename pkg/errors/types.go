package errors

import (
	"fmt"
)

// ErrDeployInProgress is returned when another deploy holds the lease on the
// deployment target.
var ErrDeployInProgress = New("another deploy is in progress")

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}
