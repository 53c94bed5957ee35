// Package driver sends commands to the server under test.
package driver

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/percona/mongodb-profile-check/src/go/lib/profiling"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/command"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

// CommentPrefix starts every correlation comment stamped by the driver.
const CommentPrefix = "pt-profile-check-"

// Config is the explicit state of a driver.
type Config struct {
	// Database all commands run against.
	Database string
	// ProfilingLevel applied by SetProfilingLevel when called with a negative level.
	ProfilingLevel int
	// SlowMS sent together with the profiling level; negative leaves the server setting alone.
	SlowMS int
	// Correlate stamps findAndModify commands with a unique comment so the profile
	// entry can be found by identity instead of recency.
	Correlate bool
}

// DefaultConfig returns a config profiling every operation on database.
func DefaultConfig(database string) Config {
	return Config{
		Database:       database,
		ProfilingLevel: profiling.All,
		SlowMS:         0,
	}
}

// Result is the reply of a command.
type Result struct {
	Raw bson.Raw
	// Value is the document returned by findAndModify, nil when the server returned null.
	Value           bson.D
	LastErrorObject LastErrorObject
	// Comment is the comment sent with the command, if any.
	Comment string
}

// LastErrorObject is the findAndModify lastErrorObject sub-document.
type LastErrorObject struct {
	N               int64       `bson:"n"`
	UpdatedExisting bool        `bson:"updatedExisting"`
	Upserted        interface{} `bson:"upserted"`
}

// Driver runs commands synchronously; nothing is cached.
type Driver struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    Config
}

// New returns a driver for cfg.Database.
func New(client *mongo.Client, cfg Config) *Driver {
	return &Driver{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
	}
}

// ClientOptions returns client options for uri with the command monitor installed.
// Credentials given here override the ones in the URI.
func ClientOptions(uri, username, password, authDB string) *options.ClientOptions {
	opts := options.Client().ApplyURI(uri).SetMonitor(NewMonitor())
	if username != "" {
		opts.SetAuth(options.Credential{
			Username:   username,
			Password:   password,
			AuthSource: authDB,
		})
	}
	return opts
}

// Config returns the driver configuration.
func (d *Driver) Config() Config { return d.cfg }

// Database returns the database the driver works on.
func (d *Driver) Database() *mongo.Database { return d.db }

// Namespace returns the full namespace of collection.
func (d *Driver) Namespace(collection string) string {
	return d.cfg.Database + "." + collection
}

// Execute validates and sends cmd. A rejection by the server is returned as *ServerError.
func (d *Driver) Execute(ctx context.Context, cmd command.Command) (*Result, error) {
	if err := command.Validate(cmd); err != nil {
		return nil, err
	}

	var comment string
	if fam, ok := cmd.(command.FindAndModify); ok {
		if fam.Comment == "" && d.cfg.Correlate {
			fam = fam.WithComment(CommentPrefix + uuid.New().String())
			cmd = fam
		}
		comment = fam.Comment
	}

	log.Debugf("running %s on %s", cmd.Name(), d.Namespace(cmd.Collection()))

	raw, err := d.db.RunCommand(ctx, cmd.Doc()).DecodeBytes()
	if err != nil {
		return nil, serverError(cmd.Name(), err)
	}
	if err := writeErrors(cmd.Name(), raw); err != nil {
		return nil, err
	}

	res := &Result{Raw: raw, Comment: comment}
	if v, err := raw.LookupErr("value"); err == nil && v.Type == bsontype.EmbeddedDocument {
		if err := bson.Unmarshal(v.Document(), &res.Value); err != nil {
			return nil, errors.Wrapf(err, "cannot decode %s value", cmd.Name())
		}
	}
	if v, err := raw.LookupErr("lastErrorObject"); err == nil && v.Type == bsontype.EmbeddedDocument {
		if err := bson.Unmarshal(v.Document(), &res.LastErrorObject); err != nil {
			return nil, errors.Wrapf(err, "cannot decode %s lastErrorObject", cmd.Name())
		}
	}

	return res, nil
}

// SetProfilingLevel sets the profiling level of the driver's database.
// A negative level applies the configured one. It is safe to call it many times.
func (d *Driver) SetProfilingLevel(ctx context.Context, level int) error {
	if level < 0 {
		level = d.cfg.ProfilingLevel
	}
	prev, err := profiling.SetLevel(ctx, d.db, level, d.cfg.SlowMS)
	if err != nil {
		return serverError("profile", errors.Cause(err))
	}
	log.Debugf("profiling level of %s changed from %d to %d", d.cfg.Database, prev.Was, level)
	return nil
}

// ProfilingStatus returns the current profiler settings.
func (d *Driver) ProfilingStatus(ctx context.Context) (proto.ProfilerStatus, error) {
	ps, err := profiling.Status(ctx, d.db)
	if err != nil {
		return ps, serverError("profile", errors.Cause(err))
	}
	return ps, nil
}

// BuildInfo returns the server build information.
func (d *Driver) BuildInfo(ctx context.Context) (proto.BuildInfo, error) {
	var bi proto.BuildInfo
	if err := d.db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&bi); err != nil {
		return bi, serverError("buildInfo", err)
	}
	return bi, nil
}

// DropDatabase drops the driver's database, including its system.profile collection.
func (d *Driver) DropDatabase(ctx context.Context) error {
	_, err := d.Execute(ctx, command.DropDatabase{})
	return err
}

// Reset drops and recreates collection.
func (d *Driver) Reset(ctx context.Context, collection string) error {
	if _, err := d.Execute(ctx, command.Drop{Coll: collection}); err != nil && !HasCode(err, codeNamespaceNotFound) {
		return err
	}
	_, err := d.Execute(ctx, command.Create{Coll: collection})
	return err
}

// Seed resets collection, builds indexes and then inserts docs, in that order.
func (d *Driver) Seed(ctx context.Context, collection string, docs []bson.D, indexes []command.Index) error {
	if err := d.Reset(ctx, collection); err != nil {
		return errors.Wrapf(err, "cannot reset %s", d.Namespace(collection))
	}
	if len(indexes) > 0 {
		if _, err := d.Execute(ctx, command.CreateIndexes{Coll: collection, Indexes: indexes}); err != nil {
			return errors.Wrapf(err, "cannot create indexes on %s", d.Namespace(collection))
		}
	}
	if len(docs) > 0 {
		if _, err := d.Execute(ctx, command.Insert{Coll: collection, Documents: docs}); err != nil {
			return errors.Wrapf(err, "cannot insert into %s", d.Namespace(collection))
		}
	}
	return nil
}
