// Package profiler reads the profiler log of a database.
package profiler

import (
	"context"
	"fmt"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/percona/mongodb-profile-check/src/go/lib/profiling"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/filter"
)

// NotFoundError means there is no profile entry for the namespace yet; usually the
// profiler is not enabled.
type NotFoundError struct {
	Namespace string
	Comment   string
}

func (e *NotFoundError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("no profile entry for %s with comment %q (is the profiler enabled?)", e.Namespace, e.Comment)
	}
	return fmt.Sprintf("no profile entry for %s (is the profiler enabled?)", e.Namespace)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Iter is the part of *mongo.Cursor the reader uses.
type Iter interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// Reader reads system.profile. It trusts the server's natural order for recency.
type Reader struct {
	coll    *mongo.Collection
	filters []filter.Filter
}

// NewReader returns a reader of db's profiler log. Entries not passing every filter are ignored.
func NewReader(db *mongo.Database, filters ...filter.Filter) *Reader {
	return &Reader{
		coll:    db.Collection(profiling.Collection),
		filters: filters,
	}
}

// Latest returns the most recent entry for the namespace.
func (r *Reader) Latest(ctx context.Context, ns string) (*Entry, error) {
	return r.latest(ctx, bson.D{{Key: "ns", Value: ns}}, &NotFoundError{Namespace: ns})
}

// LatestByComment returns the most recent entry for the namespace whose command
// carries the given comment.
func (r *Reader) LatestByComment(ctx context.Context, ns, comment string) (*Entry, error) {
	query := bson.D{
		{Key: "ns", Value: ns},
		{Key: "command.comment", Value: comment},
	}
	return r.latest(ctx, query, &NotFoundError{Namespace: ns, Comment: comment})
}

func (r *Reader) latest(ctx context.Context, query bson.D, notFound *NotFoundError) (*Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: -1}})
	if len(r.filters) == 0 {
		opts.SetLimit(1)
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query %s", profiling.Collection)
	}

	entries, err := readEntries(ctx, cursor, r.filters, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, notFound
	}

	entry := entries[0]
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("latest profile entry for %s: %# v", notFound.Namespace, pretty.Formatter(entry.SystemProfile))
	}
	return entry, nil
}

// Entries returns every entry of the namespace, oldest first.
func (r *Reader) Entries(ctx context.Context, ns string) ([]*Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.D{{Key: "ns", Value: ns}}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot query %s", profiling.Collection)
	}
	return readEntries(ctx, cursor, r.filters, 0)
}

// readEntries decodes up to max entries passing filters (0 means all) and closes it.
func readEntries(ctx context.Context, it Iter, filters []filter.Filter, max int) ([]*Entry, error) {
	defer it.Close(ctx) //nolint:errcheck

	entries := []*Entry{}
	for it.Next(ctx) {
		var raw bson.Raw
		if err := it.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "cannot read profile entry")
		}
		entry, err := NewEntry(raw)
		if err != nil {
			return nil, err
		}
		if !filter.Apply(entry.SystemProfile, filters) {
			continue
		}
		entries = append(entries, entry)
		if max > 0 && len(entries) == max {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot iterate profile entries")
	}
	return entries, nil
}
