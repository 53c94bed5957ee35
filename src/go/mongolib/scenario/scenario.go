// Package scenario runs profiler scenarios: seed a fixture, send one command,
// read the profile entry it produced and check its shape.
package scenario

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/check"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/command"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/indexes"
)

// Fixture is the state a scenario starts from. The collection is dropped and rebuilt
// before the scenario runs: indexes first, then documents.
type Fixture struct {
	Collection string
	Documents  []bson.D
	Indexes    []command.Index
}

// validateIndexes rejects fixtures where an index is a prefix of another one. The
// planner would never pick between them the way the scenario expects.
func (f Fixture) validateIndexes() error {
	idx := make([]indexes.Index, 0, len(f.Indexes))
	for _, i := range f.Indexes {
		idx = append(idx, indexes.Index{Name: i.IndexName(), Key: i.Keys})
	}
	if dups := indexes.Duplicated(f.Collection, idx); len(dups) > 0 {
		return errors.Errorf("fixture index %s (%s) is a prefix of %s (%s)",
			dups[0].Name, dups[0].Key, dups[0].ContainerName, dups[0].ContainerKey)
	}
	return nil
}

// Scenario is one command and the expectations about its result and profile entry.
type Scenario struct {
	Name        string
	Description string
	// Versions is a semver constraint on the server version, like ">= 3.2".
	// Empty means every version.
	Versions string
	Fixture  Fixture
	Command  command.Command
	// ExpectResult is the document the command must return, if set.
	ExpectResult bson.D
	// ExpectNoResult requires the command to return a null value.
	ExpectNoResult bool
	Checks         []Check
}

// Validate checks that s can run.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario without a name")
	}
	if s.Command == nil {
		return errors.Errorf("scenario %q has no command", s.Name)
	}
	if s.Fixture.Collection == "" {
		return errors.Errorf("scenario %q has no fixture collection", s.Name)
	}
	if s.Command.Collection() != s.Fixture.Collection {
		return errors.Errorf("scenario %q runs on %q but its fixture is %q", s.Name, s.Command.Collection(), s.Fixture.Collection)
	}
	if s.ExpectNoResult && s.ExpectResult != nil {
		return errors.Errorf("scenario %q expects both a result and no result", s.Name)
	}
	if err := command.Validate(s.Command); err != nil {
		return errors.Wrapf(err, "scenario %q", s.Name)
	}
	if err := s.Fixture.validateIndexes(); err != nil {
		return errors.Wrapf(err, "scenario %q", s.Name)
	}
	if s.Versions != "" {
		if _, err := parseConstraint(s.Versions); err != nil {
			return errors.Wrapf(err, "scenario %q", s.Name)
		}
	}
	for _, c := range s.Checks {
		if c.versions == "" {
			continue
		}
		if _, err := parseConstraint(c.versions); err != nil {
			return errors.Wrapf(err, "scenario %q, check %s", s.Name, c)
		}
	}
	return nil
}

// Select returns the scenarios whose name matches any of patterns, keeping their order.
// No patterns selects everything.
func Select(scenarios []Scenario, patterns []string) ([]Scenario, error) {
	if len(patterns) == 0 {
		return scenarios, nil
	}

	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid scenario pattern %q", p)
		}
		res = append(res, re)
	}

	var selected []Scenario
	for _, s := range scenarios {
		for _, re := range res {
			if re.MatchString(s.Name) {
				selected = append(selected, s)
				break
			}
		}
	}
	return selected, nil
}

type checkKind int

const (
	checkEqual checkKind = iota
	checkPresent
	checkAbsent
	checkEcho
	checkNonNegative
)

// Check is one expectation about a profile entry.
type Check struct {
	kind     checkKind
	path     string
	value    interface{}
	versions string
}

// Equal requires the field at path to equal v.
func Equal(path string, v interface{}) Check {
	return Check{kind: checkEqual, path: path, value: v}
}

// Present requires the field at path to exist.
func Present(path string) Check {
	return Check{kind: checkPresent, path: path}
}

// Absent requires the field at path to be missing.
func Absent(path string) Check {
	return Check{kind: checkAbsent, path: path}
}

// Echo requires every parameter of the command to be echoed under "command".
func Echo() Check {
	return Check{kind: checkEcho}
}

// NonNegative requires the field at path to be an integer >= 0.
func NonNegative(path string) Check {
	return Check{kind: checkNonNegative, path: path}
}

// Versions returns a copy of c that only runs on servers matching constraint.
func (c Check) Versions(constraint string) Check {
	c.versions = constraint
	return c
}

func (c Check) String() string {
	var s string
	switch c.kind {
	case checkEqual:
		s = fmt.Sprintf("%s == %s", c.path, check.Serialize(c.value))
	case checkPresent:
		s = c.path + " present"
	case checkAbsent:
		s = c.path + " absent"
	case checkEcho:
		s = "command echoed"
	case checkNonNegative:
		s = c.path + " >= 0"
	default:
		s = fmt.Sprintf("unknown check %d", c.kind)
	}
	if c.versions != "" {
		s += " (" + c.versions + ")"
	}
	return s
}

// Run runs c against the entry produced by cmd.
func (c Check) Run(doc check.Document, cmd command.Command) error {
	switch c.kind {
	case checkEqual:
		return check.ExpectFieldEqual(doc, c.path, c.value)
	case checkPresent:
		return check.ExpectPresent(doc, c.path)
	case checkAbsent:
		return check.ExpectAbsent(doc, c.path)
	case checkEcho:
		e, ok := cmd.(check.Echoer)
		if !ok {
			return errors.Errorf("%s parameters cannot be listed", cmd.Name())
		}
		return check.ExpectEcho(doc, e)
	case checkNonNegative:
		return check.ExpectNonNegative(doc, c.path)
	}
	return errors.Errorf("unknown check %d", c.kind)
}
