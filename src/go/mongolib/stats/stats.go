// Package stats groups profile entries by fingerprint and summarizes their counters.
package stats

import (
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/fingerprinter"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

// Fingerprinter returns the fingerprint profile entries are grouped by.
type Fingerprinter interface {
	Fingerprint(doc proto.SystemProfile) (fingerprinter.Fingerprint, error)
}

type StatsError struct {
	error
}

func (e *StatsError) Error() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("stats error: %s", e.error)
}

// Cause returns the underlying error for errors.Cause.
func (e *StatsError) Cause() error {
	return e.error
}

type StatsFingerprintError StatsError

func (e *StatsFingerprintError) Error() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("cannot fingerprint entry: %s", e.error)
}

func (e *StatsFingerprintError) Cause() error {
	return e.error
}

// Sample holds the counters of one profile entry.
type Sample struct {
	DocsExamined   float64
	KeysExamined   float64
	Millis         float64
	ResponseLength float64
}

func (s Sample) add(o Sample) Sample {
	return Sample{
		DocsExamined:   s.DocsExamined + o.DocsExamined,
		KeysExamined:   s.KeysExamined + o.KeysExamined,
		Millis:         s.Millis + o.Millis,
		ResponseLength: s.ResponseLength + o.ResponseLength,
	}
}

// GroupKey identifies a group of entries.
type GroupKey struct {
	Operation   string
	Namespace   string
	Fingerprint string
}

func (g GroupKey) String() string {
	return g.Operation + g.Namespace + g.Fingerprint
}

// Group is every entry sharing a GroupKey.
type Group struct {
	ID          string
	Namespace   string
	Operation   string
	Query       string // relaxed Extended JSON of the first command seen
	Fingerprint string
	FirstSeen   time.Time
	LastSeen    time.Time

	MultiPlanner int
	Samples      []Sample
}

// Count is the number of entries in the group.
func (g Group) Count() int {
	return len(g.Samples)
}

func (g Group) column(field func(Sample) float64) []float64 {
	res := make([]float64, 0, len(g.Samples))
	for _, s := range g.Samples {
		res = append(res, field(s))
	}
	return res
}

func (g Group) total() Sample {
	var t Sample
	for _, s := range g.Samples {
		t = t.add(s)
	}
	return t
}

// New creates new instance of stats with given Fingerprinter
func New(fingerprinter Fingerprinter) *Stats {
	s := &Stats{
		fingerprinter: fingerprinter,
	}

	s.Reset()
	return s
}

// Stats collects profile entries. It is safe for concurrent use.
type Stats struct {
	fingerprinter Fingerprinter

	groups map[GroupKey]*Group
	sync.RWMutex
}

// Reset clears the collection of statistics
func (s *Stats) Reset() {
	s.Lock()
	defer s.Unlock()

	s.groups = make(map[GroupKey]*Group)
}

// Add adds a profile entry to its group.
func (s *Stats) Add(doc proto.SystemProfile) error {
	fp, err := s.fingerprinter.Fingerprint(doc)
	if err != nil {
		return &StatsFingerprintError{err}
	}

	key := GroupKey{
		Operation:   fp.Operation,
		Fingerprint: fp.Fingerprint,
		Namespace:   fp.Namespace,
	}

	s.Lock()
	defer s.Unlock()

	g, ok := s.groups[key]
	if !ok {
		query, err := bson.MarshalExtJSON(doc.Command, false, false)
		if err != nil {
			return &StatsError{err}
		}
		g = &Group{
			ID:          fmt.Sprintf("%x", md5.Sum([]byte(key.String()))),
			Operation:   fp.Operation,
			Fingerprint: fp.Fingerprint,
			Namespace:   fp.Namespace,
			Query:       string(query),
		}
		s.groups[key] = g
	}

	if doc.FromMultiPlanner {
		g.MultiPlanner++
	}
	g.Samples = append(g.Samples, Sample{
		DocsExamined:   float64(doc.DocsExamined),
		KeysExamined:   float64(doc.KeysExamined),
		Millis:         float64(doc.Millis),
		ResponseLength: float64(doc.ResponseLength),
	})
	if g.FirstSeen.IsZero() || g.FirstSeen.After(doc.Ts) {
		g.FirstSeen = doc.Ts
	}
	if g.LastSeen.IsZero() || g.LastSeen.Before(doc.Ts) {
		g.LastSeen = doc.Ts
	}

	return nil
}

// Queries returns a copy of every group, sorted by operation, namespace and fingerprint.
func (s *Stats) Queries() Queries {
	s.RLock()
	defer s.RUnlock()

	keys := make([]GroupKey, 0, len(s.groups))
	for key := range s.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	queries := make(Queries, 0, len(keys))
	for _, key := range keys {
		g := *s.groups[key]
		g.Samples = append([]Sample(nil), g.Samples...)
		queries = append(queries, g)
	}
	return queries
}

// Queries is a list of groups.
type Queries []Group

// CalcQueriesStats calculates QueryStats for every group. Percentages are relative
// to the sum over all groups.
func (q Queries) CalcQueriesStats() []QueryStats {
	totals := q.total()

	qs := make([]QueryStats, 0, len(q))
	for _, g := range q {
		qs = append(qs, groupStats(g, totals))
	}
	return qs
}

// CalcTotalQueriesStats calculates QueryStats over all groups.
func (q Queries) CalcTotalQueriesStats() QueryStats {
	var all Group
	for _, g := range q {
		all.MultiPlanner += g.MultiPlanner
		all.Samples = append(all.Samples, g.Samples...)
	}
	return groupStats(all, all.total())
}

func (q Queries) total() Sample {
	var t Sample
	for _, g := range q {
		t = t.add(g.total())
	}
	return t
}

// QueryStats summarizes a group.
type QueryStats struct {
	ID          string
	Namespace   string
	Operation   string
	Query       string
	Fingerprint string
	FirstSeen   time.Time
	LastSeen    time.Time

	Count          int
	MultiPlanner   int
	QueryTime      Statistics
	ResponseLength Statistics
	DocsExamined   Statistics
	KeysExamined   Statistics
}

type Statistics struct {
	Pct    float64
	Total  float64
	Min    float64
	Max    float64
	Avg    float64
	Pct95  float64
	StdDev float64
	Median float64
}

func groupStats(g Group, totals Sample) QueryStats {
	return QueryStats{
		ID:             g.ID,
		Namespace:      g.Namespace,
		Operation:      g.Operation,
		Query:          g.Query,
		Fingerprint:    g.Fingerprint,
		FirstSeen:      g.FirstSeen,
		LastSeen:       g.LastSeen,
		Count:          g.Count(),
		MultiPlanner:   g.MultiPlanner,
		DocsExamined:   calcStats(g.column(func(s Sample) float64 { return s.DocsExamined }), totals.DocsExamined),
		KeysExamined:   calcStats(g.column(func(s Sample) float64 { return s.KeysExamined }), totals.KeysExamined),
		QueryTime:      calcStats(g.column(func(s Sample) float64 { return s.Millis }), totals.Millis),
		ResponseLength: calcStats(g.column(func(s Sample) float64 { return s.ResponseLength }), totals.ResponseLength),
	}
}

// calcStats summarizes samples; Pct is left at 0 when total is 0.
func calcStats(samples []float64, total float64) Statistics {
	var s Statistics
	s.Total, _ = stats.Sum(samples)
	s.Min, _ = stats.Min(samples)
	s.Max, _ = stats.Max(samples)
	s.Avg, _ = stats.Mean(samples)
	s.Pct95, _ = stats.PercentileNearestRank(samples, 95)
	s.StdDev, _ = stats.StandardDeviation(samples)
	s.Median, _ = stats.Median(samples)
	if total > 0 {
		s.Pct = s.Total * 100 / total
	}
	return s
}
