package filter

import (
	"strings"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

type Filter func(proto.SystemProfile) bool

// This func receives a doc from the profiler and returns:
// true : the document must be considered
// false: the document must be skipped
func NewFilterByCollection(collectionsToSkip []string) func(proto.SystemProfile) bool {
	return func(doc proto.SystemProfile) bool {
		for _, collection := range collectionsToSkip {
			if strings.HasSuffix(doc.Ns, collection) {
				return false
			}
		}
		return true
	}
}

// NewFilterByOp keeps only the entries of the given operations ("command", "insert", ...).
func NewFilterByOp(ops ...string) Filter {
	return func(doc proto.SystemProfile) bool {
		for _, op := range ops {
			if doc.Op == op {
				return true
			}
		}
		return false
	}
}

// NewFilterByCommand keeps only the entries of the given command names.
// Names are compared case insensitively, old servers report "findandmodify".
func NewFilterByCommand(names ...string) Filter {
	return func(doc proto.SystemProfile) bool {
		name := doc.CommandName()
		for _, n := range names {
			if strings.EqualFold(name, n) {
				return true
			}
		}
		return false
	}
}

// Apply reports whether doc passes every filter.
func Apply(doc proto.SystemProfile, filters []Filter) bool {
	for _, f := range filters {
		if !f(doc) {
			return false
		}
	}
	return true
}
