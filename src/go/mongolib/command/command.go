// Package command models the commands the profile checker sends to the server.
//
// Every command kind is a plain struct with a closed set of optional fields. Unset fields are
// left out of the wire document so the profiler echoes back exactly what the caller asked for.
package command

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrInvalid is returned (wrapped) when a command cannot be sent as built.
var ErrInvalid = errors.New("invalid command")

// Command is a single server command.
type Command interface {
	// Name is the command name, the first key of the wire document.
	Name() string
	// Collection is the target collection. It is empty for database level commands.
	Collection() string
	// Doc returns the wire document.
	Doc() bson.D
}

// Validator is implemented by commands that can be checked before they are sent.
type Validator interface {
	Validate() error
}

// Validate validates cmd if it implements Validator.
func Validate(cmd Command) error {
	if v, ok := cmd.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// FindAndModify is the findAndModify command.
type FindAndModify struct {
	Coll    string
	Query   bson.D
	Sort    bson.D
	Update  bson.D
	Fields  bson.D
	Remove  *bool
	Upsert  *bool
	New     *bool
	Comment string
}

func (f FindAndModify) Name() string       { return "findAndModify" }
func (f FindAndModify) Collection() string { return f.Coll }

// Params returns the parameters set in the command, without the command name.
func (f FindAndModify) Params() bson.D {
	params := bson.D{}
	if f.Query != nil {
		params = append(params, bson.E{Key: "query", Value: f.Query})
	}
	if f.Sort != nil {
		params = append(params, bson.E{Key: "sort", Value: f.Sort})
	}
	if f.Update != nil {
		params = append(params, bson.E{Key: "update", Value: f.Update})
	}
	if f.Remove != nil {
		params = append(params, bson.E{Key: "remove", Value: *f.Remove})
	}
	if f.Upsert != nil {
		params = append(params, bson.E{Key: "upsert", Value: *f.Upsert})
	}
	if f.New != nil {
		params = append(params, bson.E{Key: "new", Value: *f.New})
	}
	if f.Fields != nil {
		params = append(params, bson.E{Key: "fields", Value: f.Fields})
	}
	if f.Comment != "" {
		params = append(params, bson.E{Key: "comment", Value: f.Comment})
	}
	return params
}

func (f FindAndModify) Doc() bson.D {
	return append(bson.D{{Key: f.Name(), Value: f.Coll}}, f.Params()...)
}

// IsRemove reports whether the command deletes the matched document.
func (f FindAndModify) IsRemove() bool {
	return f.Remove != nil && *f.Remove
}

// WithComment returns a copy of the command carrying the given comment.
func (f FindAndModify) WithComment(comment string) FindAndModify {
	f.Comment = comment
	return f
}

func (f FindAndModify) Validate() error {
	if f.Coll == "" {
		return errors.Wrap(ErrInvalid, "findAndModify: empty collection name")
	}
	isUpsert := f.Upsert != nil && *f.Upsert
	isNew := f.New != nil && *f.New
	switch {
	case f.IsRemove() && f.Update != nil:
		return errors.Wrap(ErrInvalid, "findAndModify: cannot specify both an update and remove=true")
	case !f.IsRemove() && f.Update == nil:
		return errors.Wrap(ErrInvalid, "findAndModify: either an update or remove=true must be specified")
	case f.IsRemove() && isUpsert:
		return errors.Wrap(ErrInvalid, "findAndModify: cannot specify both upsert=true and remove=true")
	case f.IsRemove() && isNew:
		return errors.Wrap(ErrInvalid, "findAndModify: cannot specify both new=true and remove=true")
	}
	return nil
}

// Insert is the insert command.
type Insert struct {
	Coll      string
	Documents []bson.D
}

func (i Insert) Name() string       { return "insert" }
func (i Insert) Collection() string { return i.Coll }

func (i Insert) Doc() bson.D {
	docs := make(bson.A, 0, len(i.Documents))
	for _, d := range i.Documents {
		docs = append(docs, d)
	}
	return bson.D{
		{Key: i.Name(), Value: i.Coll},
		{Key: "documents", Value: docs},
		{Key: "ordered", Value: true},
	}
}

func (i Insert) Validate() error {
	if i.Coll == "" {
		return errors.Wrap(ErrInvalid, "insert: empty collection name")
	}
	if len(i.Documents) == 0 {
		return errors.Wrap(ErrInvalid, "insert: no documents")
	}
	return nil
}

// Index describes a single index to build.
type Index struct {
	Keys   bson.D
	Name   string
	Unique bool
}

// IndexName returns the index name, deriving it from the keys the way the server does
// when none was given: {a: 1, b: -1} becomes a_1_b_-1.
func (idx Index) IndexName() string {
	if idx.Name != "" {
		return idx.Name
	}
	parts := make([]string, 0, len(idx.Keys)*2)
	for _, k := range idx.Keys {
		parts = append(parts, k.Key, fmt.Sprint(k.Value))
	}
	return strings.Join(parts, "_")
}

// CreateIndexes is the createIndexes command.
type CreateIndexes struct {
	Coll    string
	Indexes []Index
}

func (c CreateIndexes) Name() string       { return "createIndexes" }
func (c CreateIndexes) Collection() string { return c.Coll }

func (c CreateIndexes) Doc() bson.D {
	specs := make(bson.A, 0, len(c.Indexes))
	for _, idx := range c.Indexes {
		spec := bson.D{
			{Key: "key", Value: idx.Keys},
			{Key: "name", Value: idx.IndexName()},
		}
		if idx.Unique {
			spec = append(spec, bson.E{Key: "unique", Value: true})
		}
		specs = append(specs, spec)
	}
	return bson.D{
		{Key: c.Name(), Value: c.Coll},
		{Key: "indexes", Value: specs},
	}
}

func (c CreateIndexes) Validate() error {
	if c.Coll == "" {
		return errors.Wrap(ErrInvalid, "createIndexes: empty collection name")
	}
	for i, idx := range c.Indexes {
		if len(idx.Keys) == 0 {
			return errors.Wrapf(ErrInvalid, "createIndexes: index #%d has no keys", i)
		}
	}
	return nil
}

// Create is the create (collection) command.
type Create struct {
	Coll string
}

func (c Create) Name() string       { return "create" }
func (c Create) Collection() string { return c.Coll }
func (c Create) Doc() bson.D        { return bson.D{{Key: c.Name(), Value: c.Coll}} }

// Drop is the drop (collection) command.
type Drop struct {
	Coll string
}

func (d Drop) Name() string       { return "drop" }
func (d Drop) Collection() string { return d.Coll }
func (d Drop) Doc() bson.D        { return bson.D{{Key: d.Name(), Value: d.Coll}} }

// DropDatabase is the dropDatabase command. It acts on the driver's database.
type DropDatabase struct{}

func (DropDatabase) Name() string       { return "dropDatabase" }
func (DropDatabase) Collection() string { return "" }
func (d DropDatabase) Doc() bson.D      { return bson.D{{Key: d.Name(), Value: 1}} }

// Profile is the profile command behind db.setProfilingLevel().
// Level -1 only reads the current settings.
type Profile struct {
	Level  int
	SlowMS *int
}

func (Profile) Name() string       { return "profile" }
func (Profile) Collection() string { return "" }

func (p Profile) Doc() bson.D {
	doc := bson.D{{Key: p.Name(), Value: p.Level}}
	if p.SlowMS != nil {
		doc = append(doc, bson.E{Key: "slowms", Value: *p.SlowMS})
	}
	return doc
}

func (p Profile) Validate() error {
	if p.Level < -1 || p.Level > 2 {
		return errors.Wrapf(ErrInvalid, "profile: invalid level %d", p.Level)
	}
	return nil
}
