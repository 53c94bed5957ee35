package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/howeyc/gopass"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/percona/mongodb-profile-check/src/go/lib/config"
	"github.com/percona/mongodb-profile-check/src/go/lib/profiling"
	"github.com/percona/mongodb-profile-check/src/go/lib/versioncheck"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/driver"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/explain"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/filter"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/fingerprinter"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/indexes"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/profiler"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/scenario"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/stats"
)

const (
	TOOLNAME = "pt-mongodb-profile-check"

	DEFAULT_DATABASE         = "profile_findandmodify"
	DEFAULT_COLLECTIONPREFIX = "test"
	DEFAULT_LOGLEVEL         = "warn"
	DEFAULT_URI              = "mongodb://localhost:27017"
	DEFAULT_CONNECT_TIMEOUT  = 10 * time.Second
)

const (
	exitOK = iota
	exitBadOptions
	exitConnection
	exitScenarioFailed
)

var (
	Build     string = "01-01-1980"
	GoVersion string = "1.18"
	Version   string = "3.4.0"
)

type cmdlineArgs struct {
	Run  struct{} `cmd:"" default:"1" help:"Run the profiler scenarios against the server."`
	List struct{} `cmd:"" help:"List the available scenarios."`

	URI              string   `name:"mongodb.uri" help:"Connection URI" default:"${uri}"`
	Database         string   `name:"database" help:"Database the scenarios run in. It is dropped before and after the run." default:"${database}"`
	Username         string   `name:"username" short:"u" help:"Username to use for optional MongoDB authentication"`
	Password         string   `name:"password" short:"p" help:"Password to use for optional MongoDB authentication. Prompted if empty"`
	AuthDB           string   `name:"authenticationDatabase" help:"Database to use for optional MongoDB authentication" default:"admin"`
	CollectionPrefix string   `name:"collection-prefix" help:"Prefix of the scenario collections" default:"${prefix}"`
	Scenarios        []string `name:"scenario" help:"Run only scenarios whose name matches one of these regular expressions"`
	SlowMS           int      `name:"slowms" help:"Profiler slowms threshold. Negative leaves the server setting alone" default:"0"`
	Correlate        bool     `name:"correlate" help:"Find profile entries by a unique command comment instead of recency"`
	Explain          bool     `name:"explain" help:"Attach the explain output of the failing command to the report"`
	KeepDatabase     bool     `name:"keep-database" help:"Do not drop the database after the run"`
	Output           string   `name:"output" help:"Report format: text or json" enum:"text,json" default:"text"`
	LogLevel         string   `name:"log-level" help:"Log level: panic, fatal, error, warn, info, debug" default:"${loglevel}"`
	NoVersionCheck   bool     `name:"no-version-check" help:"Don't check for updates"`
	Version          bool     `name:"version" short:"v" help:"Show version & exit"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var opts cmdlineArgs
	parser, err := kong.New(&opts,
		kong.Name(TOOLNAME),
		kong.Description("Checks the profile entries MongoDB writes for findAndModify."),
		kong.UsageOnError(),
		kong.Writers(stdout, os.Stderr),
		kong.Vars{
			"uri":      DEFAULT_URI,
			"database": DEFAULT_DATABASE,
			"prefix":   DEFAULT_COLLECTIONPREFIX,
			"loglevel": DEFAULT_LOGLEVEL,
		},
	)
	if err != nil {
		log.Errorf("cannot build the command line parser: %s", err)
		return exitBadOptions
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		log.Errorf("error processing command line arguments: %s", err)
		return exitBadOptions
	}

	logLevel, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Errorf("cannot set log level: %s", err)
		return exitBadOptions
	}
	log.SetLevel(logLevel)

	if opts.Output != "text" && opts.Output != "json" {
		log.Errorf("invalid output format %q", opts.Output)
		return exitBadOptions
	}

	if opts.Version {
		fmt.Fprintln(stdout, TOOLNAME)
		fmt.Fprintf(stdout, "Version %s\n", Version)
		fmt.Fprintf(stdout, "Build: %s using %s\n", Build, GoVersion)
		return exitOK
	}

	conf, err := config.DefaultConfig(TOOLNAME)
	if err != nil {
		log.Errorf("cannot read config files: %s", err)
		return exitBadOptions
	}
	applyConfig(kctx, conf, &opts)

	if !conf.GetBool("no-version-check") && !opts.NoVersionCheck {
		advice, err := versioncheck.CheckUpdates(context.Background(), TOOLNAME, Version)
		if err != nil {
			log.Infof("cannot check version updates: %s", err.Error())
		} else if advice != "" {
			log.Warn(advice)
		}
	}

	scenarios, err := scenario.Select(scenario.FindAndModifySuite(opts.CollectionPrefix), opts.Scenarios)
	if err != nil {
		log.Error(err)
		return exitBadOptions
	}
	if len(scenarios) == 0 {
		log.Errorf("no scenario matches %v", opts.Scenarios)
		return exitBadOptions
	}

	if kctx.Command() == "list" {
		listScenarios(stdout, scenarios)
		return exitOK
	}

	if flagSet(kctx, "password") && opts.Password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		pass, err := gopass.GetPasswd()
		if err != nil {
			log.Errorf("cannot read the password: %s", err)
			return exitBadOptions
		}
		opts.Password = string(pass)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client, err := connect(ctx, &opts)
	if err != nil {
		log.Errorf("cannot connect to %s: %s", opts.URI, err)
		return exitConnection
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	cfg := driver.DefaultConfig(opts.Database)
	cfg.SlowMS = opts.SlowMS
	cfg.Correlate = opts.Correlate
	d := driver.New(client, cfg)

	report, err := runScenarios(ctx, d, &opts, scenarios)
	if report == nil {
		log.Error(err)
		return exitConnection
	}

	if opts.Output == "json" {
		err = report.WriteJSON(stdout)
	} else {
		err = report.WriteText(stdout)
	}
	if err != nil {
		log.Error(err)
	}

	if !report.Passed() {
		return exitScenarioFailed
	}
	return exitOK
}

func connect(ctx context.Context, opts *cmdlineArgs) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, DEFAULT_CONNECT_TIMEOUT)
	defer cancel()

	clientOpts := driver.ClientOptions(opts.URI, opts.Username, opts.Password, opts.AuthDB)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create the client")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background()) //nolint:errcheck
		return nil, errors.Wrap(err, "ping failed")
	}
	return client, nil
}

// runScenarios prepares the database, runs scenarios and cleans up. It returns a nil
// report when the database could not be prepared.
func runScenarios(ctx context.Context, d *driver.Driver, opts *cmdlineArgs, scenarios []scenario.Scenario) (*scenario.Report, error) {
	bi, err := d.BuildInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get the server version")
	}
	log.Infof("connected to MongoDB %s", bi.Version)

	if err := d.DropDatabase(ctx); err != nil {
		return nil, errors.Wrapf(err, "cannot drop %s", opts.Database)
	}
	if err := d.SetProfilingLevel(ctx, -1); err != nil {
		return nil, errors.Wrapf(err, "cannot enable the profiler on %s", opts.Database)
	}
	if !opts.KeepDatabase {
		defer cleanup(d)
	}
	ps, err := d.ProfilingStatus(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot get the profiler status of %s", opts.Database)
	}
	if !ps.Enabled() {
		return nil, errors.Errorf("the profiler of %s is still disabled", opts.Database)
	}

	fp, err := fingerprinter.NewFingerprinter(fingerprinter.DefaultKeyFilters())
	if err != nil {
		return nil, err
	}
	st := stats.New(fp)

	runnerOpts := []scenario.Option{
		scenario.WithServerVersion(bi.Version),
		scenario.WithStats(st),
	}
	if opts.Explain {
		runnerOpts = append(runnerOpts, scenario.WithExplainer(explain.New(d.Database())))
	}

	runner := scenario.NewRunner(d, profiler.NewReader(d.Database(), filter.NewFilterByCollection([]string{profiling.Collection})), runnerOpts...)
	results, runErr := runner.Run(ctx, scenarios)

	report := &scenario.Report{
		Server:   bi.Version,
		Database: opts.Database,
		Results:  results,
		Stats:    st.Queries().CalcQueriesStats(),
		Indexes:  indexUsage(ctx, d, scenarios, results),
	}
	if runErr != nil {
		log.Error(runErr)
		report.Failure = runErr.Error()
		if log.IsLevelEnabled(log.DebugLevel) {
			dumpEntries(ctx, d, scenarios, runErr)
		}
	}
	return report, nil
}

// dumpEntries logs every findAndModify profile entry of the scenario that stopped the run.
func dumpEntries(ctx context.Context, d *driver.Driver, scenarios []scenario.Scenario, runErr error) {
	var f *scenario.Failure
	if !errors.As(runErr, &f) {
		return
	}
	for _, s := range scenarios {
		if s.Name != f.Scenario {
			continue
		}
		ns := d.Namespace(s.Fixture.Collection)
		entries, err := profiler.NewReader(d.Database(), filter.NewFilterByCommand("findAndModify")).Entries(ctx, ns)
		if err != nil {
			log.Debugf("cannot read the profile entries of %s: %s", ns, err)
			return
		}
		for i, e := range entries {
			log.Debugf("%s entry #%d: %s", ns, i, e)
		}
	}
}

// indexUsage returns the usage of the fixture indexes of the scenarios that ran.
func indexUsage(ctx context.Context, d *driver.Driver, scenarios []scenario.Scenario, results []scenario.Result) []indexes.Usage {
	var res []indexes.Usage
	for i, r := range results {
		s := scenarios[i]
		if r.Status == scenario.StatusSkip || len(s.Fixture.Indexes) == 0 {
			continue
		}
		u, err := indexes.FindUsage(ctx, d.Database().Collection(s.Fixture.Collection))
		if err != nil {
			log.Warnf("cannot get the index usage of %s: %s", s.Fixture.Collection, err)
			continue
		}
		res = append(res, u...)
	}
	return res
}

func cleanup(d *driver.Driver) {
	ctx, cancel := context.WithTimeout(context.Background(), DEFAULT_CONNECT_TIMEOUT)
	defer cancel()

	db := d.Database()
	if err := profiling.Disable(ctx, db); err != nil {
		log.Warnf("cannot disable the profiler: %s", err)
	} else if err := profiling.Drop(ctx, db); err != nil {
		log.Warnf("cannot drop %s.%s: %s", db.Name(), profiling.Collection, err)
	}
	if err := d.DropDatabase(ctx); err != nil {
		log.Warnf("cannot drop %s: %s", d.Config().Database, err)
	}
}

// applyConfig fills the options not given on the command line from the config files.
func applyConfig(kctx *kong.Context, conf *config.Config, opts *cmdlineArgs) {
	if !flagSet(kctx, "mongodb.uri") && conf.HasKey("mongodb.uri") {
		opts.URI = conf.GetString("mongodb.uri")
	}
	if !flagSet(kctx, "database") && conf.HasKey("database") {
		opts.Database = conf.GetString("database")
	}
	if !flagSet(kctx, "collection-prefix") && conf.HasKey("collection-prefix") {
		opts.CollectionPrefix = conf.GetString("collection-prefix")
	}
}

func flagSet(kctx *kong.Context, name string) bool {
	for _, p := range kctx.Path {
		if p.Flag != nil && p.Flag.Name == name {
			return true
		}
	}
	return false
}

func listScenarios(w io.Writer, scenarios []scenario.Scenario) {
	for _, s := range scenarios {
		versions := s.Versions
		if versions == "" {
			versions = "any"
		}
		fmt.Fprintf(w, "%-20s %-10s %s\n", s.Name, versions, s.Description)
		for _, c := range s.Checks {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}
}
