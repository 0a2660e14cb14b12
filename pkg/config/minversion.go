package config

import (
	goversion "github.com/hashicorp/go-version"

	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/version"
)

// CheckMinVersion returns an error if `running` is older than the minimum
// version required by the project. Development builds are never rejected.
func (p Project) CheckMinVersion(running string) error {
	if p.MinVersion == "" || running == version.EmptyValue {
		return nil
	}

	minVersion, err := goversion.NewVersion(p.MinVersion)
	if err != nil {
		return errors.NewFriendlyError("The minimum version %q in %q "+
			"is not a valid version.", p.MinVersion, p.Path())
	}

	runningVersion, err := goversion.NewVersion(running)
	if err != nil {
		return errors.WithContext(err, "parse running version")
	}

	if runningVersion.LessThan(minVersion) {
		return errors.NewFriendlyError("This project requires shipyard "+
			"%s or newer, but this binary is %s.\n"+
			"Please upgrade shipyard before deploying.", minVersion, runningVersion)
	}
	return nil
}
