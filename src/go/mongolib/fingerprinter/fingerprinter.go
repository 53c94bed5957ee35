package fingerprinter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

const (
	maxDepthLevel = 10
)

// Fingerprint models the fingerprint of a profiled operation.
type Fingerprint struct {
	Namespace   string
	Operation   string
	Collection  string
	Database    string
	Keys        string
	Fingerprint string
}

func (f Fingerprint) String() string {
	return f.Fingerprint
}

// Fingerprinter holds unexported fields and public methods for fingerprinting profile entries.
type Fingerprinter struct {
	keyFilters []*regexp.Regexp
}

// DefaultKeyFilters returns the default keys used to filter out some keys
// from the fingerprinter.
func DefaultKeyFilters() []string {
	return []string{"^shardVersion$", "^comment$"}
}

// NewFingerprinter returns a new Fingerprinter object
func NewFingerprinter(keyFilters []string) (*Fingerprinter, error) {
	f := &Fingerprinter{}
	for _, kf := range keyFilters {
		re, err := regexp.Compile(kf)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid key filter %q", kf)
		}
		f.keyFilters = append(f.keyFilters, re)
	}
	return f, nil
}

// Fingerprint builds the fingerprint of doc: the operation, the collection and the sorted
// set of field names the operation filters or sorts on.
// The same operation with different values yields the same fingerprint.
func (f *Fingerprinter) Fingerprint(doc proto.SystemProfile) (Fingerprint, error) {
	database, collection := splitNamespace(doc.Ns)

	op := doc.Op
	query := doc.Query
	if len(doc.Command) > 0 {
		query = doc.Command
	}
	if doc.Op == "command" {
		if len(query) == 0 {
			return Fingerprint{}, errors.Errorf("command entry for %s has no command document", doc.Ns)
		}
		// first key is the command name, its value the collection
		op = query[0].Key
		if c, ok := query[0].Value.(string); ok {
			collection = c
		}
	}

	var retKeys []string
	switch strings.ToLower(op) {
	case "findandmodify":
		retKeys = append(retKeys, f.keys(lookup(query, "query"))...)
		retKeys = append(retKeys, f.keys(lookup(query, "sort"))...)
	case "find", "query":
		if v := lookup(query, "filter"); v != nil {
			retKeys = append(retKeys, f.keys(v)...)
		} else {
			retKeys = append(retKeys, f.keys(lookup(query, "query"))...)
		}
		retKeys = append(retKeys, f.keys(lookup(query, "sort"))...)
	case "update", "remove", "delete":
		retKeys = append(retKeys, f.keys(lookup(query, "q"))...)
	case "createindexes":
		if indexes, ok := lookup(query, "indexes").(primitive.A); ok {
			for _, idx := range indexes {
				if d, ok := idx.(primitive.D); ok {
					retKeys = append(retKeys, f.keys(lookup(d, "key"))...)
				}
			}
		}
	}

	sort.Strings(retKeys)
	retKeys = deduplicate(retKeys)
	keys := strings.Join(retKeys, ",")
	op = strings.ToUpper(op)

	parts := []string{}
	if op != "" {
		parts = append(parts, op)
	}
	if collection != "" {
		parts = append(parts, collection)
	}
	if keys != "" {
		parts = append(parts, keys)
	}

	ns := []string{}
	if database != "" {
		ns = append(ns, database)
	}
	if collection != "" {
		ns = append(ns, collection)
	}

	return Fingerprint{
		Operation:   op,
		Namespace:   strings.Join(ns, "."),
		Database:    database,
		Collection:  collection,
		Keys:        keys,
		Fingerprint: strings.Join(parts, " "),
	}, nil
}

func splitNamespace(ns string) (database, collection string) {
	parts := strings.SplitN(ns, ".", 2)
	database = parts[0]
	if len(parts) == 2 {
		collection = parts[1]
	}
	return database, collection
}

func lookup(doc bson.D, key string) interface{} {
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func (f *Fingerprinter) keys(query interface{}) []string {
	return f.getKeys(query, 0)
}

func (f *Fingerprinter) getKeys(query interface{}, level int) []string {
	if level > maxDepthLevel {
		return nil
	}

	ks := []string{}
	switch v := query.(type) {
	case primitive.D:
		for _, e := range v {
			ks = append(ks, f.getKeys(e, level+1)...)
		}
	case primitive.M:
		for key, value := range v {
			ks = append(ks, f.getKeys(primitive.E{Key: key, Value: value}, level+1)...)
		}
	case primitive.A:
		for _, intval := range v {
			ks = append(ks, f.getKeys(intval, level+1)...)
		}
	case primitive.E:
		if f.shouldSkipKey(v.Key) {
			return ks
		}
		if !strings.HasPrefix(v.Key, "$") {
			ks = append(ks, v.Key)
		}
		ks = append(ks, f.getKeys(v.Value, level+1)...)
	}
	return ks
}

// Check if a particular key should be excluded from the analysis based on the filters.
func (f *Fingerprinter) shouldSkipKey(key string) bool {
	for _, filter := range f.keyFilters {
		if filter.MatchString(key) {
			return true
		}
	}
	return false
}

func deduplicate(s []string) (r []string) {
	m := map[string]struct{}{}

	for _, v := range s {
		if _, seen := m[v]; !seen {
			r = append(r, v)
			m[v] = struct{}{}
		}
	}

	return r
}
