package scenario

import (
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

func parseConstraint(constraint string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version constraint %q", constraint)
	}
	return c, nil
}

// Constraint reports whether version satisfies constraint.
func Constraint(constraint, version string) (bool, error) {
	// Drop everything after first dash.
	// Version with dash is considered a pre-release
	// but some MongoDB builds add additional information after dash
	// even though it's not considered a pre-release but a release.
	s := strings.SplitN(version, "-", 2)
	version = s[0]

	v, err := semver.NewVersion(version)
	if err != nil {
		return false, errors.Wrapf(err, "invalid server version %q", version)
	}

	constraints, err := parseConstraint(constraint)
	if err != nil {
		return false, err
	}
	return constraints.Check(v), nil
}
