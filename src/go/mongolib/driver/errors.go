package driver

import (
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// codeNamespaceNotFound is returned by drop on old servers when the collection does not exist.
const codeNamespaceNotFound = 26

// ServerError is a command rejected by the server. It is never retried: the profiler
// counters assume every command ran exactly once.
type ServerError struct {
	Command string
	Code    int32
	Name    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s failed: (%s) %s [code %d]", e.Command, e.Name, e.Message, e.Code)
	}
	return fmt.Sprintf("%s failed: %s [code %d]", e.Command, e.Message, e.Code)
}

// IsServerError reports whether err was caused by a server side rejection.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// HasCode reports whether err is a ServerError with the given code.
func HasCode(err error, code int32) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func serverError(name string, err error) error {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return &ServerError{
			Command: name,
			Code:    ce.Code,
			Name:    ce.Name,
			Message: ce.Message,
		}
	}
	return errors.Wrapf(err, "cannot run %s", name)
}

type writeError struct {
	Index  int    `bson:"index"`
	Code   int32  `bson:"code"`
	ErrMsg string `bson:"errmsg"`
}

type writeReply struct {
	WriteErrors       []writeError `bson:"writeErrors"`
	WriteConcernError *writeError  `bson:"writeConcernError"`
}

// writeErrors turns write errors reported inside an ok:1 reply into a ServerError.
func writeErrors(name string, reply bson.Raw) error {
	var wr writeReply
	if err := bson.Unmarshal(reply, &wr); err != nil {
		return errors.Wrapf(err, "cannot decode %s reply", name)
	}
	if len(wr.WriteErrors) > 0 {
		we := wr.WriteErrors[0]
		return &ServerError{
			Command: name,
			Code:    we.Code,
			Message: fmt.Sprintf("write error at index %d: %s", we.Index, we.ErrMsg),
		}
	}
	if wce := wr.WriteConcernError; wce != nil {
		return &ServerError{
			Command: name,
			Code:    wce.Code,
			Message: "write concern error: " + wce.ErrMsg,
		}
	}
	return nil
}
