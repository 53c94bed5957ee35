package check

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Normalize converts v into a form where structurally equal values are == under go-cmp.
// Documents become map[string]interface{}, arrays []interface{} and dates UTC time.Time
// truncated to milliseconds. Whole numbers become int64 so large integers keep their
// precision, other numbers float64. A document repeating a key becomes a DuplicateKeys,
// which never equals a map.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case bson.RawValue:
		return normalizeRawValue(t)
	case *bson.RawValue:
		if t == nil {
			return nil
		}
		return normalizeRawValue(*t)
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(t, &d); err != nil {
			return fmt.Sprintf("<invalid document: %s>", err)
		}
		return Normalize(d)
	case bson.D:
		if t == nil {
			return nil
		}
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			if _, ok := m[e.Key]; ok {
				return normalizeDuplicateKeys(t)
			}
			m[e.Key] = Normalize(e.Value)
		}
		return m
	case []bson.D:
		l := make([]interface{}, len(t))
		for i, d := range t {
			l[i] = Normalize(d)
		}
		return l
	case bson.M:
		return normalizeMap(t)
	case map[string]interface{}:
		return normalizeMap(t)
	case bson.A:
		return normalizeSlice(t)
	case []interface{}:
		return normalizeSlice(t)
	case bson.E:
		return map[string]interface{}{t.Key: Normalize(t.Value)}

	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case primitive.Decimal128:
		return t.String()

	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case primitive.Undefined, primitive.Null:
		return nil
	}
	return v
}

// DuplicateKeys is a normalized document holding the same key more than once.
// Its fields keep the document order.
type DuplicateKeys []DuplicateKeysField

type DuplicateKeysField struct {
	Key   string
	Value interface{}
}

func normalizeDuplicateKeys(d bson.D) DuplicateKeys {
	res := make(DuplicateKeys, len(d))
	for i, e := range d {
		res[i] = DuplicateKeysField{Key: e.Key, Value: Normalize(e.Value)}
	}
	return res
}

// int64 range as float64: [-2^63, 2^63).
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

func normalizeFloat(f float64) interface{} {
	if f == math.Trunc(f) && f >= minInt64Float && f < maxInt64Float {
		return int64(f)
	}
	return f
}

func normalizeUint(u uint64) interface{} {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return float64(u)
}

func normalizeMap(m map[string]interface{}) interface{} {
	if m == nil {
		return nil
	}
	res := make(map[string]interface{}, len(m))
	for k, v := range m {
		res[k] = Normalize(v)
	}
	return res
}

func normalizeSlice(s []interface{}) interface{} {
	if s == nil {
		return nil
	}
	res := make([]interface{}, len(s))
	for i, v := range s {
		res[i] = Normalize(v)
	}
	return res
}

func normalizeRawValue(rv bson.RawValue) interface{} {
	switch rv.Type {
	case bsontype.Type(0), bsontype.Null, bsontype.Undefined:
		return nil
	case bsontype.EmbeddedDocument:
		return Normalize(rv.Document())
	case bsontype.Array:
		values, err := rv.Array().Values()
		if err != nil {
			return fmt.Sprintf("<invalid array: %s>", err)
		}
		l := make([]interface{}, len(values))
		for i, v := range values {
			l[i] = normalizeRawValue(v)
		}
		return l
	}

	var x interface{}
	if err := rv.Unmarshal(&x); err != nil {
		return fmt.Sprintf("<invalid %s: %s>", rv.Type, err)
	}
	return Normalize(x)
}

// Serialize renders v as relaxed Extended JSON, falling back to %v for values
// the BSON encoder cannot handle.
func Serialize(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bson.RawValue:
		if t.Type == bsontype.Type(0) {
			return "null"
		}
		return serializeValue(t)
	case *bson.RawValue:
		if t == nil {
			return "null"
		}
		return Serialize(*t)
	case bson.D:
		if t == nil {
			return "null"
		}
	}

	if b, err := bson.MarshalExtJSON(v, false, false); err == nil {
		return string(b)
	}
	return serializeValue(v)
}

// serializeValue wraps v into a document and strips the wrapper off the output,
// so scalars and arrays can be rendered too.
func serializeValue(v interface{}) string {
	const prefix = `{"v":`
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil || len(b) <= len(prefix) {
		return fmt.Sprintf("%v", v)
	}
	return string(b[len(prefix) : len(b)-1])
}
