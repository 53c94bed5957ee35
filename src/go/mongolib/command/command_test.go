package command

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFindAndModifyDoc(t *testing.T) {
	tests := []struct {
		name string
		cmd  FindAndModify
		want bson.D
	}{
		{
			name: "update",
			cmd: FindAndModify{
				Coll:   "test",
				Query:  bson.D{{"a", 2}},
				Update: bson.D{{"$inc", bson.D{{"b", 1}}}},
			},
			want: bson.D{
				{"findAndModify", "test"},
				{"query", bson.D{{"a", 2}}},
				{"update", bson.D{{"$inc", bson.D{{"b", 1}}}}},
			},
		},
		{
			name: "remove with projection",
			cmd: FindAndModify{
				Coll:   "test",
				Query:  bson.D{{"a", 2}},
				Remove: pointer.ToBool(true),
				Fields: bson.D{{"_id", 0}, {"a", 1}},
			},
			want: bson.D{
				{"findAndModify", "test"},
				{"query", bson.D{{"a", 2}}},
				{"remove", true},
				{"fields", bson.D{{"_id", 0}, {"a", 1}}},
			},
		},
		{
			name: "upsert new with comment",
			cmd: FindAndModify{
				Coll:    "test",
				Query:   bson.D{{"_id", 2}, {"a", 2}},
				Update:  bson.D{{"$inc", bson.D{{"b", 1}}}},
				Upsert:  pointer.ToBool(true),
				New:     pointer.ToBool(true),
				Comment: "abc",
			},
			want: bson.D{
				{"findAndModify", "test"},
				{"query", bson.D{{"_id", 2}, {"a", 2}}},
				{"update", bson.D{{"$inc", bson.D{{"b", 1}}}}},
				{"upsert", true},
				{"new", true},
				{"comment", "abc"},
			},
		},
		{
			name: "explicit false is kept",
			cmd: FindAndModify{
				Coll:   "test",
				Update: bson.D{{"$set", bson.D{{"c", 1}}}},
				Upsert: pointer.ToBool(false),
			},
			want: bson.D{
				{"findAndModify", "test"},
				{"update", bson.D{{"$set", bson.D{{"c", 1}}}}},
				{"upsert", false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Doc())
			assert.Equal(t, tt.want[1:], tt.cmd.Params())
		})
	}
}

func TestFindAndModifyValidate(t *testing.T) {
	update := bson.D{{"$inc", bson.D{{"b", 1}}}}

	tests := map[string]struct {
		cmd     FindAndModify
		wantErr bool
	}{
		"update":            {cmd: FindAndModify{Coll: "c", Update: update}},
		"remove":            {cmd: FindAndModify{Coll: "c", Remove: pointer.ToBool(true)}},
		"no collection":     {cmd: FindAndModify{Update: update}, wantErr: true},
		"nothing to do":     {cmd: FindAndModify{Coll: "c"}, wantErr: true},
		"remove and update": {cmd: FindAndModify{Coll: "c", Update: update, Remove: pointer.ToBool(true)}, wantErr: true},
		"remove and upsert": {cmd: FindAndModify{Coll: "c", Remove: pointer.ToBool(true), Upsert: pointer.ToBool(true)}, wantErr: true},
		"remove and new":    {cmd: FindAndModify{Coll: "c", Remove: pointer.ToBool(true), New: pointer.ToBool(true)}, wantErr: true},
		"remove false":      {cmd: FindAndModify{Coll: "c", Update: update, Remove: pointer.ToBool(false)}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(tc.cmd)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, ErrInvalid, errors.Cause(err))
		})
	}
}

func TestCreateIndexesDoc(t *testing.T) {
	cmd := CreateIndexes{
		Coll: "test",
		Indexes: []Index{
			{Keys: bson.D{{"a", 1}}},
			{Keys: bson.D{{"b", 1}, {"c", -1}}, Name: "bc", Unique: true},
		},
	}
	want := bson.D{
		{"createIndexes", "test"},
		{"indexes", bson.A{
			bson.D{{"key", bson.D{{"a", 1}}}, {"name", "a_1"}},
			bson.D{{"key", bson.D{{"b", 1}, {"c", -1}}}, {"name", "bc"}, {"unique", true}},
		}},
	}
	assert.Equal(t, want, cmd.Doc())
	assert.NoError(t, cmd.Validate())

	bad := CreateIndexes{Coll: "test", Indexes: []Index{{}}}
	assert.Error(t, bad.Validate())
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "a_1_b_-1", Index{Keys: bson.D{{"a", 1}, {"b", -1}}}.IndexName())
	assert.Equal(t, "custom", Index{Keys: bson.D{{"a", 1}}, Name: "custom"}.IndexName())
}

func TestInsertDoc(t *testing.T) {
	cmd := Insert{Coll: "test", Documents: []bson.D{{{"_id", 0}, {"a", 0}}}}
	want := bson.D{
		{"insert", "test"},
		{"documents", bson.A{bson.D{{"_id", 0}, {"a", 0}}}},
		{"ordered", true},
	}
	assert.Equal(t, want, cmd.Doc())
	assert.NoError(t, cmd.Validate())
	assert.Error(t, Insert{Coll: "test"}.Validate())
}

func TestProfileDoc(t *testing.T) {
	assert.Equal(t, bson.D{{"profile", 2}, {"slowms", 0}}, Profile{Level: 2, SlowMS: pointer.ToInt(0)}.Doc())
	assert.Equal(t, bson.D{{"profile", -1}}, Profile{Level: -1}.Doc())
	assert.Error(t, Profile{Level: 3}.Validate())
	assert.NoError(t, Profile{Level: 0}.Validate())
}

func TestSimpleCommands(t *testing.T) {
	assert.Equal(t, bson.D{{"drop", "test"}}, Drop{Coll: "test"}.Doc())
	assert.Equal(t, bson.D{{"create", "test"}}, Create{Coll: "test"}.Doc())
	assert.Equal(t, bson.D{{"dropDatabase", 1}}, DropDatabase{}.Doc())
	assert.Equal(t, "", DropDatabase{}.Collection())
	assert.NoError(t, Validate(Drop{Coll: "test"}))
}
