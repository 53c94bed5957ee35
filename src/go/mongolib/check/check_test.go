package check

import (
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/command"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/profiler"
)

func TestExpectEqual(t *testing.T) {
	ts := time.Date(2016, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
		equal    bool
	}{
		{"numbers across kinds", int32(2), 2.0, true},
		{"int64 and int", int64(3), 3, true},
		{"different numbers", int32(2), 3, false},
		{"key order ignored", bson.D{{"_id", int32(2)}, {"a", int32(2)}}, bson.D{{"a", 2}, {"_id", 2}}, true},
		{"map and document", bson.M{"a": 1.0}, bson.D{{"a", 1}}, true},
		{"extra key", bson.D{{"_id", 2}, {"a", 2}, {"b", 1}}, bson.D{{"_id", 2}, {"a", 2}}, false},
		{"sequence order kept", bson.A{1, 2}, bson.A{2, 1}, false},
		{"nested", bson.D{{"$inc", bson.D{{"b", int32(1)}}}}, bson.D{{"$inc", bson.D{{"b", 1}}}}, true},
		{"nil and null", primitive.Null{}, nil, true},
		{"bool", true, true, true},
		{"bool vs number", true, 1, false},
		{"dates", primitive.NewDateTimeFromTime(ts), ts, true},
		{"strings", "a", "b", false},
		{"large integers keep precision", int64(9007199254740993), int64(9007199254740992), false},
		{"large integer and its double", int64(1 << 53), float64(1 << 53), true},
		{"fractional double", 2.5, 2, false},
		{"duplicate keys", bson.D{{"a", 1}, {"a", 2}}, bson.D{{"a", 2}}, false},
		{"same duplicate keys", bson.D{{"a", 1}, {"a", 2}}, bson.D{{"a", int32(1)}, {"a", 2.0}}, true},
		{"duplicate keys in another order", bson.D{{"a", 1}, {"a", 2}}, bson.D{{"a", 2}, {"a", 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExpectEqual(tt.actual, tt.expected)
			assert.Equal(t, tt.equal, Equal(tt.actual, tt.expected))
			if tt.equal {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsAssertionError(err))
			ae := err.(*AssertionError)
			assert.NotEmpty(t, ae.Diff)
			assert.NotEmpty(t, ae.Actual)
			assert.NotEmpty(t, ae.Expected)
		})
	}
}

func TestExpectEqualRaw(t *testing.T) {
	b, err := bson.Marshal(bson.D{{"_id", int32(2)}, {"a", int32(2)}, {"tags", bson.A{"x", int64(1)}}})
	require.NoError(t, err)
	raw := bson.Raw(b)

	assert.NoError(t, ExpectEqual(raw, bson.D{{"tags", bson.A{"x", 1}}, {"a", 2}, {"_id", 2}}))

	v := raw.Lookup("tags")
	assert.NoError(t, ExpectEqual(v, bson.A{"x", 1.0}))
	assert.Error(t, ExpectEqual(v, bson.A{1, "x"}))

	b, err = bson.Marshal(bson.D{{"a", int32(1)}, {"a", int32(2)}})
	require.NoError(t, err)
	assert.Error(t, ExpectEqual(bson.Raw(b), bson.D{{"a", 2}}))
	assert.Error(t, ExpectEqual(bson.Raw(b), bson.M{"a": 2}))
}

func TestSerialize(t *testing.T) {
	assert.Equal(t, "null", Serialize(nil))
	assert.Equal(t, "3", Serialize(3))
	assert.Equal(t, `"x"`, Serialize("x"))
	assert.Equal(t, `{"a":1}`, Serialize(bson.D{{"a", 1}}))
	assert.Equal(t, `[1,"x"]`, Serialize(bson.A{1, "x"}))

	b, err := bson.Marshal(bson.D{{"a", int32(1)}})
	require.NoError(t, err)
	raw := bson.Raw(b)
	assert.Equal(t, `{"a":1}`, Serialize(raw))
	assert.Equal(t, "1", Serialize(raw.Lookup("a")))
	assert.Equal(t, "null", Serialize(raw.Lookup("missing")))
}

func sampleEntry(t *testing.T) *profiler.Entry {
	t.Helper()
	raw, err := bson.Marshal(bson.D{
		{"op", "command"},
		{"ns", "profile_findandmodify.test"},
		{"command", bson.D{
			{"findAndModify", "test"},
			{"query", bson.D{{"a", 2.0}}},
			{"update", bson.D{{"$inc", bson.D{{"b", 1.0}}}}},
		}},
		{"updateobj", bson.D{{"$inc", bson.D{{"b", 1.0}}}}},
		{"keysExamined", int32(0)},
		{"docsExamined", int32(3)},
		{"nMatched", int32(1)},
		{"nModified", int32(1)},
		{"numYield", int32(0)},
		{"responseLength", int64(62)},
		{"millis", -1.0},
		{"ratio", 0.5},
	})
	require.NoError(t, err)
	e, err := profiler.NewEntry(raw)
	require.NoError(t, err)
	return e
}

func TestExpectFieldEqual(t *testing.T) {
	e := sampleEntry(t)

	assert.NoError(t, ExpectFieldEqual(e, "docsExamined", 3))
	assert.NoError(t, ExpectFieldEqual(e, "command.query", bson.D{{"a", 2}}))
	assert.NoError(t, ExpectFieldEqual(e, "command.update.$inc.b", 1))

	err := ExpectFieldEqual(e, "nMatched", 0)
	require.Error(t, err)
	ae := err.(*AssertionError)
	assert.Equal(t, "nMatched", ae.Path)
	assert.Equal(t, "1", ae.Actual)
	assert.Equal(t, "0", ae.Expected)
	assert.Contains(t, ae.Entry, `"op":"command"`)
	assert.Contains(t, err.Error(), "nMatched: got 1, want 0")

	err = ExpectFieldEqual(e, "ndeleted", 1)
	require.Error(t, err)
	assert.Equal(t, "<missing>", err.(*AssertionError).Actual)

	// wrapped errors are still recognized
	assert.True(t, IsAssertionError(errors.Wrap(err, "delete")))
}

func TestExpectPresentAbsent(t *testing.T) {
	e := sampleEntry(t)

	assert.NoError(t, ExpectPresent(e, "numYield"))
	assert.NoError(t, ExpectPresent(e, "responseLength"))
	assert.Error(t, ExpectPresent(e, "ndeleted"))

	assert.NoError(t, ExpectAbsent(e, "ndeleted"))
	assert.NoError(t, ExpectAbsent(e, "command.fields"))

	err := ExpectAbsent(e, "updateobj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absent")
}

func TestExpectEcho(t *testing.T) {
	e := sampleEntry(t)

	cmd := command.FindAndModify{
		Coll:   "test",
		Query:  bson.D{{"a", 2}},
		Update: bson.D{{"$inc", bson.D{{"b", 1}}}},
	}
	assert.NoError(t, ExpectEcho(e, cmd))

	cmd.Fields = bson.D{{"_id", 0}, {"a", 1}}
	err := ExpectEcho(e, cmd)
	require.Error(t, err)
	assert.Equal(t, "command.fields", err.(*AssertionError).Path)

	cmd.Fields = nil
	cmd.Upsert = pointer.ToBool(true)
	assert.Error(t, ExpectEcho(e, cmd))
}

func TestExpectNonNegative(t *testing.T) {
	e := sampleEntry(t)

	assert.NoError(t, ExpectNonNegative(e, "keysExamined"))
	assert.NoError(t, ExpectNonNegative(e, "responseLength"))
	assert.Error(t, ExpectNonNegative(e, "millis"))
	assert.Error(t, ExpectNonNegative(e, "ratio"))
	assert.Error(t, ExpectNonNegative(e, "op"))
	assert.Error(t, ExpectNonNegative(e, "ndeleted"))
}
