package tutil

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// LoadExtJSON decodes a file holding one Extended JSON document, like
// the ones written by mongoexport or printed with --output json.
func LoadExtJSON(filename string, destination interface{}) error {
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := bson.UnmarshalExtJSON(buf, false, destination); err != nil {
		return errors.Wrapf(err, "cannot decode %s", filename)
	}
	return nil
}
