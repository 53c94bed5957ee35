package scenario

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/check"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/driver"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/fingerprinter"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/profiler"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/scenario/scenariomock"
	"github.com/percona/mongodb-profile-check/src/go/mongolib/stats"
)

func newEntry(t *testing.T, doc bson.D) *profiler.Entry {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	e, err := profiler.NewEntry(raw)
	require.NoError(t, err)
	return e
}

// updateEntry is what a 3.4 server profiles for the update scenario.
func updateEntry(t *testing.T, docsExamined int32, withUpdateobj bool) *profiler.Entry {
	doc := bson.D{
		{"op", "command"},
		{"ns", "profile_findandmodify.test_update"},
		{"command", bson.D{
			{"findandmodify", "test_update"},
			{"query", bson.D{{"a", 2.0}}},
			{"update", bson.D{{"$inc", bson.D{{"b", 1.0}}}}},
		}},
	}
	if withUpdateobj {
		doc = append(doc, bson.E{"updateobj", bson.D{{"$inc", bson.D{{"b", 1.0}}}}})
	}
	doc = append(doc,
		bson.E{"keysExamined", int32(0)},
		bson.E{"docsExamined", docsExamined},
		bson.E{"nMatched", int32(1)},
		bson.E{"nModified", int32(1)},
		bson.E{"numYield", int32(0)},
		bson.E{"responseLength", int32(62)},
		bson.E{"millis", int32(0)},
	)
	return newEntry(t, doc)
}

func updateResult() *driver.Result {
	return &driver.Result{
		Value:           bson.D{{"_id", int32(2)}, {"a", int32(2)}},
		LastErrorObject: driver.LastErrorObject{N: 1, UpdatedExisting: true},
	}
}

func expectSeedAndExecute(exec *scenariomock.MockExecutor, s Scenario, res *driver.Result) {
	gomock.InOrder(
		exec.EXPECT().Seed(gomock.Any(), s.Fixture.Collection, s.Fixture.Documents, s.Fixture.Indexes).Return(nil),
		exec.EXPECT().Execute(gomock.Any(), s.Command).Return(res, nil),
		exec.EXPECT().Namespace(s.Fixture.Collection).Return("profile_findandmodify."+s.Fixture.Collection),
	)
}

func TestRunPasses(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	suite := FindAndModifySuite("test")
	update := suite[0]
	require.Equal(t, "update", update.Name)

	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)

	expectSeedAndExecute(exec, update, updateResult())
	reader.EXPECT().Latest(gomock.Any(), "profile_findandmodify.test_update").Return(updateEntry(t, 3, true), nil)

	fp, err := fingerprinter.NewFingerprinter(fingerprinter.DefaultKeyFilters())
	require.NoError(t, err)
	st := stats.New(fp)

	results, err := NewRunner(exec, reader, WithStats(st)).Run(context.Background(), []Scenario{update})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusPass, results[0].Status)
	assert.Equal(t, "update", results[0].Scenario)
	assert.Equal(t, len(update.Checks), results[0].Checks)
	assert.Contains(t, results[0].Entry, `"docsExamined":3`)

	queries := st.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "FINDANDMODIFY test_update a", queries[0].Fingerprint)
}

func TestRunFailFast(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	suite := FindAndModifySuite("test")
	update := suite[0]

	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)
	explainer := scenariomock.NewMockExplainer(ctrl)

	// only the first scenario runs
	expectSeedAndExecute(exec, update, updateResult())
	reader.EXPECT().Latest(gomock.Any(), "profile_findandmodify.test_update").Return(updateEntry(t, 2, true), nil)
	explainer.EXPECT().JSON(gomock.Any(), update.Command.Doc()).Return([]byte(`{"queryPlanner":{}}`), nil)

	results, err := NewRunner(exec, reader, WithExplainer(explainer)).Run(context.Background(), suite)
	require.Error(t, err)
	require.Len(t, results, 1)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "update", f.Scenario)
	assert.Equal(t, StepCheck, f.Step)
	assert.Equal(t, `{"queryPlanner":{}}`, f.Explain)
	assert.True(t, check.IsAssertionError(err))

	ae := errors.Cause(err).(*check.AssertionError)
	assert.Equal(t, "docsExamined", ae.Path)
	assert.Equal(t, "2", ae.Actual)
	assert.Equal(t, "3", ae.Expected)

	assert.Equal(t, StatusFail, results[0].Status)
	assert.Equal(t, StepCheck, results[0].Step)
	assert.NotEmpty(t, results[0].Entry)
	assert.NotEmpty(t, results[0].Explain)
}

func TestRunResultMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	update := FindAndModifySuite("test")[0]

	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)

	res := updateResult()
	res.Value = bson.D{{"_id", int32(2)}, {"a", int32(2)}, {"b", int32(1)}}
	gomock.InOrder(
		exec.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		exec.EXPECT().Execute(gomock.Any(), update.Command).Return(res, nil),
	)

	_, err := NewRunner(exec, reader).Run(context.Background(), []Scenario{update})
	require.Error(t, err)
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, StepResult, f.Step)
	assert.Empty(t, f.Explain)
}

func TestRunEntryNamespace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	update := FindAndModifySuite("test")[0]

	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)

	gomock.InOrder(
		exec.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		exec.EXPECT().Execute(gomock.Any(), update.Command).Return(updateResult(), nil),
		exec.EXPECT().Namespace("test_update").Return("other_db.test_update"),
	)
	// the entry was written for profile_findandmodify.test_update
	reader.EXPECT().Latest(gomock.Any(), "other_db.test_update").Return(updateEntry(t, 3, true), nil)

	results, err := NewRunner(exec, reader).Run(context.Background(), []Scenario{update})
	require.Error(t, err)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, StepCheck, f.Step)

	ae := errors.Cause(err).(*check.AssertionError)
	assert.Equal(t, "ns", ae.Path)
	assert.Equal(t, `"profile_findandmodify.test_update"`, ae.Actual)
	assert.Equal(t, `"other_db.test_update"`, ae.Expected)
	assert.Equal(t, 0, results[0].Checks)
}

func TestRunCorrelated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	update := FindAndModifySuite("test")[0]

	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)

	res := updateResult()
	res.Comment = driver.CommentPrefix + "1"
	expectSeedAndExecute(exec, update, res)
	reader.EXPECT().LatestByComment(gomock.Any(), "profile_findandmodify.test_update", res.Comment).Return(updateEntry(t, 3, true), nil)

	_, err := NewRunner(exec, reader).Run(context.Background(), []Scenario{update})
	assert.NoError(t, err)
}

func TestRunVersionGating(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	suite := FindAndModifySuite("test")
	exec := scenariomock.NewMockExecutor(ctrl)
	reader := scenariomock.NewMockEntryReader(ctrl)

	// nothing runs on a server too old for the suite
	results, err := NewRunner(exec, reader, WithServerVersion("3.0.15")).Run(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, results, len(suite))
	for _, r := range results {
		assert.Equal(t, StatusSkip, r.Status)
		assert.Contains(t, r.Reason, ">= 3.2")
	}

	// updateobj is not checked on newer servers
	update := suite[0]
	expectSeedAndExecute(exec, update, updateResult())
	reader.EXPECT().Latest(gomock.Any(), gomock.Any()).Return(updateEntry(t, 3, false), nil)

	results, err = NewRunner(exec, reader, WithServerVersion("4.0.3-rc0")).Run(context.Background(), []Scenario{update})
	require.NoError(t, err)
	assert.Equal(t, len(update.Checks)-1, results[0].Checks)
}

func TestRunStepErrors(t *testing.T) {
	update := FindAndModifySuite("test")[0]
	ctx := context.Background()

	t.Run("seed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		exec := scenariomock.NewMockExecutor(ctrl)
		reader := scenariomock.NewMockEntryReader(ctrl)
		seedErr := &driver.ServerError{Command: "insert", Code: 11000, Message: "duplicate key"}
		exec.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(seedErr)

		_, err := NewRunner(exec, reader).Run(ctx, []Scenario{update})
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, StepSeed, f.Step)
		assert.True(t, driver.HasCode(err, 11000))
	})

	t.Run("profile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		exec := scenariomock.NewMockExecutor(ctrl)
		reader := scenariomock.NewMockEntryReader(ctrl)
		expectSeedAndExecute(exec, update, updateResult())
		reader.EXPECT().Latest(gomock.Any(), gomock.Any()).Return(nil, &profiler.NotFoundError{Namespace: "profile_findandmodify.test_update"})

		_, err := NewRunner(exec, reader).Run(ctx, []Scenario{update})
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, StepProfile, f.Step)
		assert.True(t, profiler.IsNotFound(err))
	})

	t.Run("invalid scenario", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		bad := update
		bad.Fixture.Collection = "other"
		_, err := NewRunner(scenariomock.NewMockExecutor(ctrl), scenariomock.NewMockEntryReader(ctrl)).Run(ctx, []Scenario{bad})
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, StepValidate, f.Step)
	})
}
