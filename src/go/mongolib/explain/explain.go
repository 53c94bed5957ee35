package explain

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Verbosity levels accepted by the explain command.
const (
	QueryPlanner      = "queryPlanner"
	ExecutionStats    = "executionStats"
	AllPlansExecution = "allPlansExecution"
)

// Explain contains unexported fields of the command explainer
type Explain struct {
	db        *mongo.Database
	verbosity string
}

// New returns a new explainer for commands run on db, using queryPlanner verbosity.
// queryPlanner does not execute the command so explaining a write leaves the data alone.
func New(db *mongo.Database) *Explain {
	return &Explain{
		db:        db,
		verbosity: QueryPlanner,
	}
}

// WithVerbosity returns a copy of the explainer using verbosity.
func (e *Explain) WithVerbosity(verbosity string) *Explain {
	c := *e
	c.verbosity = verbosity
	return &c
}

// Run runs mongo's explain for cmd, a command document like the ones the driver sends.
func (e *Explain) Run(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	if len(cmd) == 0 {
		return nil, errors.New("explain: empty command")
	}

	explainCmd := bson.D{
		{Key: "explain", Value: cmd},
		{Key: "verbosity", Value: e.verbosity},
	}
	res, err := e.db.RunCommand(ctx, explainCmd).DecodeBytes()
	if err != nil {
		return nil, errors.Wrapf(err, "explain: cannot explain %s", cmd[0].Key)
	}

	return res, nil
}

// JSON returns the explain output of cmd as canonical Extended JSON.
func (e *Explain) JSON(ctx context.Context, cmd bson.D) ([]byte, error) {
	res, err := e.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	resultJSON, err := bson.MarshalExtJSON(res, true, true)
	if err != nil {
		return nil, errors.Wrapf(err, "explain: unable to encode explain result of %s", cmd[0].Key)
	}

	return resultJSON, nil
}
