package proto

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// SystemProfile is a document of the <db>.system.profile collection.
// Only the fields the checker reads are decoded; the raw document keeps the rest.
type SystemProfile struct {
	AllUsers         []interface{} `bson:"allUsers"`
	Client           string        `bson:"client"`
	Command          bson.D        `bson:"command"`
	CursorExhausted  bool          `bson:"cursorExhausted"`
	DocsExamined     int64         `bson:"docsExamined"`
	FromMultiPlanner bool          `bson:"fromMultiPlanner"`
	KeysExamined     int64         `bson:"keysExamined"`
	KeysInserted     int64         `bson:"keysInserted"`
	KeysDeleted      int64         `bson:"keysDeleted"`
	Millis           int64         `bson:"millis"`
	NDeleted         int64         `bson:"ndeleted"`
	NInserted        int64         `bson:"ninserted"`
	NMatched         int64         `bson:"nMatched"`
	NModified        int64         `bson:"nModified"`
	Nreturned        int64         `bson:"nreturned"`
	Ns               string        `bson:"ns"`
	NumYield         int64         `bson:"numYield"`
	Op               string        `bson:"op"`
	PlanSummary      string        `bson:"planSummary"`
	Protocol         string        `bson:"protocol"`
	Query            bson.D        `bson:"query"`
	ReplanReason     string        `bson:"replanReason"`
	Replanned        bool          `bson:"replanned"`
	ResponseLength   int64         `bson:"responseLength"`
	Ts               time.Time     `bson:"ts"`
	UpdateObj        bson.D        `bson:"updateobj"`
	Upsert           bool          `bson:"upsert"`
	User             string        `bson:"user"`
	WriteConflicts   int64         `bson:"writeConflicts"`
}

// CommandName returns the first key of the profiled command, e.g. "findAndModify".
func (sp SystemProfile) CommandName() string {
	if len(sp.Command) == 0 {
		return ""
	}
	return sp.Command[0].Key
}

// ProfilerStatus is the reply of {profile: -1}.
type ProfilerStatus struct {
	Was        int64   `bson:"was"`
	SlowMs     int64   `bson:"slowms"`
	SampleRate float64 `bson:"sampleRate"`
	Ok         float64 `bson:"ok"`
}

// Enabled reports whether every operation is being profiled.
func (ps ProfilerStatus) Enabled() bool {
	return ps.Was == 2
}

// BuildInfo is the part of the buildInfo reply the checker needs.
type BuildInfo struct {
	Version      string  `bson:"version"`
	GitVersion   string  `bson:"gitVersion"`
	VersionArray []int32 `bson:"versionArray"`
	Bits         int64   `bson:"bits"`
	Ok           float64 `bson:"ok"`
}
