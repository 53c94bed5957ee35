// Package check compares server documents against expectations.
//
// Mappings are compared ignoring key order, sequences in order, and numbers by value
// regardless of their BSON type, the way the mongo shell's assert.eq does.
// Every function returns at the first mismatch.
package check

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Document is a server document whose fields can be looked up by dotted path.
type Document interface {
	Lookup(path string) (bson.RawValue, bool)
	String() string
}

// Echoer is a command able to list the parameters it was sent with.
type Echoer interface {
	Params() bson.D
}

// AssertionError is an observed value diverging from the expected one.
type AssertionError struct {
	// Path is the checked field, empty for whole values.
	Path     string
	Actual   string
	Expected string
	Diff     string
	// Entry is the whole document the field belongs to.
	Entry string
	// Reason replaces the got/want message for presence checks.
	Reason string
}

func (e *AssertionError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path + ": ")
	}
	if e.Reason != "" {
		sb.WriteString(e.Reason)
	} else {
		fmt.Fprintf(&sb, "got %s, want %s", e.Actual, e.Expected)
	}
	if e.Diff != "" {
		sb.WriteString("\ndiff (-want +got):\n" + e.Diff)
	}
	if e.Entry != "" {
		sb.WriteString("\nentry: " + e.Entry)
	}
	return sb.String()
}

// IsAssertionError reports whether err is an AssertionError.
func IsAssertionError(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

var cmpOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether actual and expected are structurally equal.
func Equal(actual, expected interface{}) bool {
	return cmp.Equal(Normalize(expected), Normalize(actual), cmpOpts...)
}

// ExpectEqual returns an AssertionError when actual and expected differ.
func ExpectEqual(actual, expected interface{}) error {
	na, ne := Normalize(actual), Normalize(expected)
	if cmp.Equal(ne, na, cmpOpts...) {
		return nil
	}
	return &AssertionError{
		Actual:   Serialize(actual),
		Expected: Serialize(expected),
		Diff:     cmp.Diff(ne, na, cmpOpts...),
	}
}

// ExpectFieldEqual checks the field at path. A missing field is a mismatch.
func ExpectFieldEqual(doc Document, path string, expected interface{}) error {
	v, ok := doc.Lookup(path)
	if !ok {
		return &AssertionError{
			Path:     path,
			Actual:   "<missing>",
			Expected: Serialize(expected),
			Entry:    doc.String(),
		}
	}
	if err := ExpectEqual(v, expected); err != nil {
		ae := err.(*AssertionError)
		ae.Path = path
		ae.Entry = doc.String()
		return ae
	}
	return nil
}

// ExpectPresent checks that the field at path exists, whatever its value.
func ExpectPresent(doc Document, path string) error {
	if _, ok := doc.Lookup(path); ok {
		return nil
	}
	return &AssertionError{
		Path:   path,
		Reason: "field is missing",
		Entry:  doc.String(),
	}
}

// ExpectAbsent checks that the field at path does not exist.
func ExpectAbsent(doc Document, path string) error {
	v, ok := doc.Lookup(path)
	if !ok {
		return nil
	}
	return &AssertionError{
		Path:   path,
		Reason: "field must be absent, got " + Serialize(v),
		Entry:  doc.String(),
	}
}

// ExpectEcho checks that every parameter of cmd is echoed in the command field of doc.
func ExpectEcho(doc Document, cmd Echoer) error {
	for _, p := range cmd.Params() {
		if err := ExpectFieldEqual(doc, "command."+p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// ExpectNonNegative checks that the field at path is an integer >= 0.
func ExpectNonNegative(doc Document, path string) error {
	v, ok := doc.Lookup(path)
	if !ok {
		return &AssertionError{Path: path, Reason: "field is missing", Entry: doc.String()}
	}

	var n int64
	switch v.Type {
	case bsontype.Int32:
		n = int64(v.Int32())
	case bsontype.Int64:
		n = v.Int64()
	case bsontype.Double:
		f := v.Double()
		if f != float64(int64(f)) {
			return &AssertionError{Path: path, Reason: "not an integer: " + Serialize(v), Entry: doc.String()}
		}
		n = int64(f)
	default:
		return &AssertionError{Path: path, Reason: "not a number: " + Serialize(v), Entry: doc.String()}
	}

	if n < 0 {
		return &AssertionError{Path: path, Reason: fmt.Sprintf("negative value %d", n), Entry: doc.String()}
	}
	return nil
}
