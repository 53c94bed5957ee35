package profiler

import (
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

// Entry is a system.profile document. The raw document is kept so the presence of any
// field can be checked, including the ones SystemProfile does not decode.
type Entry struct {
	Raw bson.Raw
	proto.SystemProfile
}

// NewEntry decodes raw.
func NewEntry(raw bson.Raw) (*Entry, error) {
	e := &Entry{Raw: raw}
	if err := bson.Unmarshal(raw, &e.SystemProfile); err != nil {
		return nil, errors.Wrap(err, "cannot decode profile entry")
	}
	return e, nil
}

// Lookup returns the value at the dotted path, like "command.fields".
func (e *Entry) Lookup(path string) (bson.RawValue, bool) {
	if e == nil || len(e.Raw) == 0 || path == "" {
		return bson.RawValue{}, false
	}
	v, err := e.Raw.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return bson.RawValue{}, false
	}
	return v, true
}

// Has reports whether the field at the dotted path exists.
func (e *Entry) Has(path string) bool {
	_, ok := e.Lookup(path)
	return ok
}

// String returns the entry as relaxed Extended JSON.
func (e *Entry) String() string {
	if e == nil {
		return "<nil>"
	}
	b, err := bson.MarshalExtJSON(e.Raw, false, false)
	if err != nil {
		return e.Raw.String()
	}
	return string(b)
}
