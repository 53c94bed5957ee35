package indexes

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Index is the name and key of an index, as listIndexes returns it.
type Index struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

func (idx Index) comparableKey() string {
	var sb strings.Builder
	for _, elem := range idx.Key {
		sb.WriteString(sign(elem))
		sb.WriteString(elem.Key)
		sb.WriteByte(',')
	}
	return sb.String()
}

func sign(elem bson.E) string {
	switch v := elem.Value.(type) {
	case int:
		if v < 0 {
			return "-"
		}
	case int32: // internal MongoDB indexes like _id_ have the sign field as int32.
		if v < 0 {
			return "-"
		}
	case int64:
		if v < 0 {
			return "-"
		}
	case float64:
		if v < 0 {
			return "-"
		}
	}
	return "+"
}

// IndexKey holds the list of fields that are part of an index, along with the field order.
type IndexKey []bson.E

// String returns the index fields as a string. The + sign means ascending on this field
// and a - sign indicates a descending order for that field.
func (k IndexKey) String() string {
	parts := make([]string, 0, len(k))
	for _, elem := range k {
		parts = append(parts, sign(elem)+elem.Key)
	}
	return strings.Join(parts, " ")
}

// Duplicate represents a duplicated index pair.
// An index is considered as the duplicate of another one if it is its prefix.
// Example: the index +f1-f2 is the prefix of +f1-f2+f3.
type Duplicate struct {
	Namespace     string
	Name          string
	Key           IndexKey
	ContainerName string
	ContainerKey  IndexKey
}

// Duplicated returns the pairs of idx where the first index is a prefix of the second.
func Duplicated(ns string, idx []Index) []Duplicate {
	sorted := make([]Index, len(idx))
	copy(sorted, idx)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].comparableKey() < sorted[j].comparableKey()
	})

	var res []Duplicate
	for i := 0; i < len(sorted)-1; i++ {
		for j := i + 1; j < len(sorted); j++ {
			if !strings.HasPrefix(sorted[j].comparableKey(), sorted[i].comparableKey()) {
				continue
			}
			res = append(res, Duplicate{
				Namespace:     ns,
				Name:          sorted[i].Name,
				Key:           IndexKey(sorted[i].Key),
				ContainerName: sorted[j].Name,
				ContainerKey:  IndexKey(sorted[j].Key),
			})
		}
	}
	return res
}
