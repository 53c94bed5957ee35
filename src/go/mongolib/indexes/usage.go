package indexes

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Usage is how many times an index was used since the server started tracking it.
type Usage struct {
	Collection string    `json:"collection"`
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	Ops        int64     `json:"ops"`
	Since      time.Time `json:"since"`
}

type indexStat struct {
	Name     string `bson:"name"`
	Key      bson.D `bson:"key"`
	Host     string `bson:"host"`
	Accesses struct {
		Ops   int64     `bson:"ops"`
		Since time.Time `bson:"since"`
	} `bson:"accesses"`
}

// FindUsage returns the $indexStats of every index of coll but _id_, sorted by name.
// It needs MongoDB 3.2 or newer.
func FindUsage(ctx context.Context, coll *mongo.Collection) ([]Usage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$indexStats", Value: bson.M{}}},
		{{Key: "$match", Value: bson.M{"name": bson.M{"$ne": "_id_"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot run $indexStats on %s", coll.Name())
	}

	var stats []indexStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, errors.Wrapf(err, "cannot get $indexStats of %s", coll.Name())
	}

	res := make([]Usage, 0, len(stats))
	for _, s := range stats {
		res = append(res, Usage{
			Collection: coll.Name(),
			Name:       s.Name,
			Key:        IndexKey(s.Key).String(),
			Ops:        s.Accesses.Ops,
			Since:      s.Accesses.Since,
		})
	}
	return res, nil
}
