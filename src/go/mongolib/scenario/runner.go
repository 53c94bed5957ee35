package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/check"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/command"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/driver"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/profiler"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/stats"
)

//go:generate mockgen -source=runner.go -destination=scenariomock/runner.go -package=scenariomock

// Executor sends commands to the server under test.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (*driver.Result, error)
	Seed(ctx context.Context, collection string, docs []bson.D, indexes []command.Index) error
	Namespace(collection string) string
}

// EntryReader reads the profile entries of a namespace.
type EntryReader interface {
	Latest(ctx context.Context, ns string) (*profiler.Entry, error)
	LatestByComment(ctx context.Context, ns, comment string) (*profiler.Entry, error)
}

// Explainer explains a command document.
type Explainer interface {
	JSON(ctx context.Context, cmd bson.D) ([]byte, error)
}

// Steps of a scenario, in the order they run.
const (
	StepValidate = "validate"
	StepSeed     = "seed"
	StepExecute  = "execute"
	StepResult   = "result"
	StepProfile  = "profile"
	StepCheck    = "check"
)

// Failure is the first error of a run, with the scenario and the step it happened at.
type Failure struct {
	Scenario string
	Step     string
	Err      error
	// Explain is the server explain output of the failing command, when available.
	Explain string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("scenario %q failed at %s: %s", f.Scenario, f.Step, f.Err)
}

func (f *Failure) Cause() error  { return f.Err }
func (f *Failure) Unwrap() error { return f.Err }

// Statuses of a scenario result.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusSkip = "skip"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario    string        `json:"scenario"`
	Description string        `json:"description,omitempty"`
	Status      string        `json:"status"`
	Step        string        `json:"step,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Explain     string        `json:"explain,omitempty"`
	Checks      int           `json:"checks"`
	Duration    time.Duration `json:"duration"`
	// Entry is the profile entry the checks ran against, as relaxed Extended JSON.
	Entry string `json:"entry,omitempty"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithServerVersion enables version gating of scenarios and checks.
func WithServerVersion(version string) Option {
	return func(r *Runner) { r.serverVersion = version }
}

// WithExplainer attaches the explain output of the command to failures.
func WithExplainer(e Explainer) Option {
	return func(r *Runner) { r.explainer = e }
}

// WithStats collects the profile entry of every passed scenario into s.
func WithStats(s *stats.Stats) Option {
	return func(r *Runner) { r.stats = s }
}

// Runner runs scenarios one after the other and stops at the first failure.
type Runner struct {
	exec          Executor
	reader        EntryReader
	explainer     Explainer
	stats         *stats.Stats
	serverVersion string
}

// NewRunner returns a runner sending commands through exec and reading entries with reader.
func NewRunner(exec Executor, reader EntryReader, opts ...Option) *Runner {
	r := &Runner{
		exec:   exec,
		reader: reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run runs scenarios in order. It returns the results collected so far and a *Failure
// as soon as a scenario fails; the remaining scenarios are not run.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		if ok, reason := r.applies(s.Versions); !ok {
			log.Infof("skipping %s: %s", s.Name, reason)
			results = append(results, Result{Scenario: s.Name, Description: s.Description, Status: StatusSkip, Reason: reason})
			continue
		}

		log.Debugf("running %s", s.Name)
		start := time.Now()
		res, err := r.run(ctx, s)
		res.Scenario = s.Name
		res.Description = s.Description
		res.Duration = time.Since(start)
		if err != nil {
			var f *Failure
			if errors.As(err, &f) {
				res.Status = StatusFail
				res.Step = f.Step
				res.Reason = f.Err.Error()
				res.Explain = f.Explain
			}
			results = append(results, res)
			return results, err
		}
		res.Status = StatusPass
		log.Infof("%s passed (%d checks)", s.Name, res.Checks)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) applies(constraint string) (bool, string) {
	if constraint == "" || r.serverVersion == "" {
		return true, ""
	}
	ok, err := Constraint(constraint, r.serverVersion)
	if err != nil {
		return false, err.Error()
	}
	if !ok {
		return false, fmt.Sprintf("server %s does not match %s", r.serverVersion, constraint)
	}
	return true, ""
}

func (r *Runner) run(ctx context.Context, s Scenario) (Result, error) {
	var res Result
	fail := func(step string, err error) (Result, error) {
		return res, &Failure{Scenario: s.Name, Step: step, Err: err}
	}

	if err := s.Validate(); err != nil {
		return fail(StepValidate, err)
	}

	fx := s.Fixture
	if err := r.exec.Seed(ctx, fx.Collection, fx.Documents, fx.Indexes); err != nil {
		return fail(StepSeed, err)
	}

	out, err := r.exec.Execute(ctx, s.Command)
	if err != nil {
		return fail(StepExecute, err)
	}

	switch {
	case s.ExpectNoResult:
		if err := check.ExpectEqual(out.Value, nil); err != nil {
			return res, r.explain(ctx, s, StepResult, err)
		}
	case s.ExpectResult != nil:
		if err := check.ExpectEqual(out.Value, s.ExpectResult); err != nil {
			return res, r.explain(ctx, s, StepResult, err)
		}
	}

	ns := r.exec.Namespace(s.Command.Collection())
	var entry *profiler.Entry
	if out.Comment != "" {
		entry, err = r.reader.LatestByComment(ctx, ns, out.Comment)
	} else {
		entry, err = r.reader.Latest(ctx, ns)
	}
	if err != nil {
		return fail(StepProfile, err)
	}
	res.Entry = entry.String()

	// not counted in res.Checks, every scenario gets it
	if err := check.ExpectFieldEqual(entry, "ns", ns); err != nil {
		return res, r.explain(ctx, s, StepCheck, err)
	}

	for _, c := range s.Checks {
		if ok, reason := r.applies(c.versions); !ok {
			log.Debugf("%s: skipping check %s: %s", s.Name, c, reason)
			continue
		}
		if err := c.Run(entry, s.Command); err != nil {
			return res, r.explain(ctx, s, StepCheck, err)
		}
		res.Checks++
	}

	if r.stats != nil {
		if err := r.stats.Add(entry.SystemProfile); err != nil {
			log.Warnf("%s: cannot collect stats: %s", s.Name, err)
		}
	}
	return res, nil
}

// explain builds the failure for step, attaching the explain output of the command
// when an explainer is configured.
func (r *Runner) explain(ctx context.Context, s Scenario, step string, err error) *Failure {
	f := &Failure{Scenario: s.Name, Step: step, Err: err}
	if r.explainer != nil {
		out, xerr := r.explainer.JSON(ctx, s.Command.Doc())
		if xerr != nil {
			log.Warnf("%s: cannot explain %s: %s", s.Name, s.Command.Name(), xerr)
		} else {
			f.Explain = string(out)
		}
	}
	return f
}
