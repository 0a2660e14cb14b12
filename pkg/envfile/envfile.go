// Package envfile reads the secrets file that's passed to the container as
// its environment. Values are never logged.
package envfile

import (
	"os"
	"strings"

	"github.com/docker/cli/opts"

	"github.com/sidkik/shipyard/pkg/errors"
)

// Read reads the env file at `path` with the same rules as
// `docker run --env-file`, and returns its variables in the `KEY=VALUE` form
// expected by the Docker API. Values are passed through literally: quotes
// and `#` characters are part of the value. A line with only a key takes its
// value from the local environment, and is dropped if it isn't set.
func Read(path string) ([]string, error) {
	env, err := opts.ParseEnvFile(path)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			return nil, errors.WithContext(err, "read")
		}

		// The parse errors quote the offending line, which may hold a secret.
		return nil, errors.NewFriendlyError("Failed to parse the env file %q. "+
			"Each line must be KEY=VALUE, a KEY on its own, or a # comment, "+
			"and keys can't contain whitespace.", path)
	}
	return env, nil
}

// Missing returns the keys in `required` that aren't set in `env`.
func Missing(env []string, required []string) (missing []string) {
	set := map[string]struct{}{}
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i > 0 {
			set[kv[:i]] = struct{}{}
		}
	}

	for _, key := range required {
		if _, ok := set[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
