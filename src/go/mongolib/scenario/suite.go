package scenario

import (
	"github.com/AlekSi/pointer"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/command"
)

// Profiling of keysExamined and docsExamined for findAndModify starts with 3.2.
const findAndModifyVersions = ">= 3.2"

// Starting with 3.6 the update document is only reported inside "command",
// checked on every version with Equal("command.update", ...).
const updateobjVersions = "< 3.6"

// FindAndModifySuite returns the findAndModify scenarios. Each one works on its own
// collection, named after collectionPrefix and the scenario.
func FindAndModifySuite(collectionPrefix string) []Scenario {
	coll := func(name string) string { return collectionPrefix + "_" + name }

	// {_id: i, a: i} for i in [0, n), the document with _id 2 gets b: 1 when withB is set.
	docs := func(n int, withB bool) []bson.D {
		res := make([]bson.D, 0, n)
		for i := 0; i < n; i++ {
			d := bson.D{{Key: "_id", Value: i}, {Key: "a", Value: i}}
			if withB && i == 2 {
				d = append(d, bson.E{Key: "b", Value: 1})
			}
			res = append(res, d)
		}
		return res
	}

	inc := bson.D{{Key: "$inc", Value: bson.D{{Key: "b", Value: 1}}}}
	projection := bson.D{{Key: "_id", Value: 0}, {Key: "a", Value: 1}}

	return []Scenario{
		{
			Name:        "update",
			Description: "update as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("update"), Documents: docs(3, false)},
			Command: command.FindAndModify{
				Coll:   coll("update"),
				Query:  bson.D{{Key: "a", Value: 2}},
				Update: inc,
			},
			ExpectResult: bson.D{{Key: "_id", Value: 2}, {Key: "a", Value: 2}},
			Checks: []Check{
				Equal("op", "command"),
				Echo(),
				Equal("command.update", inc),
				Equal("updateobj", inc).Versions(updateobjVersions),
				Equal("keysExamined", 0),
				Equal("docsExamined", 3),
				Equal("nMatched", 1),
				Equal("nModified", 1),
				Present("numYield"),
				Present("responseLength"),
				NonNegative("numYield"),
				NonNegative("responseLength"),
			},
		},
		{
			Name:        "delete",
			Description: "delete as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("delete"), Documents: docs(3, true)},
			Command: command.FindAndModify{
				Coll:   coll("delete"),
				Query:  bson.D{{Key: "a", Value: 2}},
				Remove: pointer.ToBool(true),
			},
			ExpectResult: bson.D{{Key: "_id", Value: 2}, {Key: "a", Value: 2}, {Key: "b", Value: 1}},
			Checks: []Check{
				Equal("op", "command"),
				Echo(),
				Equal("command.remove", true),
				Absent("updateobj"),
				Equal("ndeleted", 1),
			},
		},
		{
			Name:        "upsert",
			Description: "update with {upsert: true, new: true} as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("upsert"), Documents: docs(2, false)},
			Command: command.FindAndModify{
				Coll:   coll("upsert"),
				Query:  bson.D{{Key: "_id", Value: 2}, {Key: "a", Value: 2}},
				Update: inc,
				Upsert: pointer.ToBool(true),
				New:    pointer.ToBool(true),
			},
			ExpectResult: bson.D{{Key: "_id", Value: 2}, {Key: "a", Value: 2}, {Key: "b", Value: 1}},
			Checks: []Check{
				Equal("op", "command"),
				Echo(),
				Equal("command.upsert", true),
				Equal("command.new", true),
				Equal("command.update", inc),
				Equal("updateobj", inc).Versions(updateobjVersions),
				Equal("keysExamined", 0),
				Equal("docsExamined", 0),
				Equal("nMatched", 0),
				Equal("nModified", 0),
				Equal("upsert", true),
			},
		},
		{
			Name:        "idhack",
			Description: "update by _id as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("idhack"), Documents: docs(3, true)},
			Command: command.FindAndModify{
				Coll:   coll("idhack"),
				Query:  bson.D{{Key: "_id", Value: 2}},
				Update: inc,
			},
			ExpectResult: bson.D{{Key: "_id", Value: 2}, {Key: "a", Value: 2}, {Key: "b", Value: 1}},
			Checks: []Check{
				Echo(),
				Equal("command.update", inc),
				Equal("keysExamined", 1),
				Equal("docsExamined", 1),
				Equal("nMatched", 1),
				Equal("nModified", 1),
			},
		},
		{
			Name:        "update-projection",
			Description: "update with projection as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("update_projection"), Documents: docs(3, false)},
			Command: command.FindAndModify{
				Coll:   coll("update_projection"),
				Query:  bson.D{{Key: "a", Value: 2}},
				Update: inc,
				Fields: projection,
			},
			ExpectResult: bson.D{{Key: "a", Value: 2}},
			Checks: []Check{
				Equal("op", "command"),
				Echo(),
				Equal("command.fields", projection),
				Equal("command.update", inc),
				Equal("updateobj", inc).Versions(updateobjVersions),
				Equal("keysExamined", 0),
				Equal("docsExamined", 3),
				Equal("nMatched", 1),
				Equal("nModified", 1),
			},
		},
		{
			Name:        "delete-projection",
			Description: "delete with projection as findAndModify",
			Versions:    findAndModifyVersions,
			Fixture:     Fixture{Collection: coll("delete_projection"), Documents: docs(3, false)},
			Command: command.FindAndModify{
				Coll:   coll("delete_projection"),
				Query:  bson.D{{Key: "a", Value: 2}},
				Remove: pointer.ToBool(true),
				Fields: projection,
			},
			ExpectResult: bson.D{{Key: "a", Value: 2}},
			Checks: []Check{
				Equal("op", "command"),
				Echo(),
				Equal("command.remove", true),
				Equal("command.fields", projection),
				Absent("updateobj"),
				Equal("ndeleted", 1),
			},
		},
		{
			Name:        "multiplanner",
			Description: "plan chosen by the multi-planner",
			Versions:    findAndModifyVersions,
			Fixture: Fixture{
				Collection: coll("multiplanner"),
				Indexes: []command.Index{
					{Keys: bson.D{{Key: "a", Value: 1}}},
					{Keys: bson.D{{Key: "b", Value: 1}}},
				},
				Documents: func() []bson.D {
					res := make([]bson.D, 0, 5)
					for i := 0; i < 5; i++ {
						res = append(res, bson.D{{Key: "a", Value: i}, {Key: "b", Value: i}})
					}
					return res
				}(),
			},
			Command: command.FindAndModify{
				Coll:   coll("multiplanner"),
				Query:  bson.D{{Key: "a", Value: 3}, {Key: "b", Value: 3}},
				Update: bson.D{{Key: "$set", Value: bson.D{{Key: "c", Value: 1}}}},
			},
			Checks: []Check{
				Echo(),
				Equal("fromMultiPlanner", true),
			},
		},
	}
}
