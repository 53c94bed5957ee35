/*
   Copyright (c) 2017, Percona LLC and/or its affiliates. All rights reserved.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <http://www.gnu.org/licenses/>
*/

package profiling

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/percona/mongodb-profile-check/src/go/mongolib/proto"
)

const (
	// Off disables the profiler.
	Off = 0
	// Slow profiles operations slower than slowms.
	Slow = 1
	// All profiles every operation.
	All = 2

	// Collection is the profiler log collection of every database.
	Collection = "system.profile"
)

// SetLevel sets the profiling level of the database. slowms is only sent when it is >= 0.
func SetLevel(ctx context.Context, db *mongo.Database, level, slowms int) (proto.ProfilerStatus, error) {
	cmd := bson.D{{Key: "profile", Value: level}}
	if slowms >= 0 {
		cmd = append(cmd, bson.E{Key: "slowms", Value: slowms})
	}

	// the reply carries the settings that were in place before the change
	var prev proto.ProfilerStatus
	if err := db.RunCommand(ctx, cmd).Decode(&prev); err != nil {
		return prev, errors.Wrapf(err, "cannot set profiling level %d on %s", level, db.Name())
	}
	return prev, nil
}

// Disable disables the profiler on the database.
func Disable(ctx context.Context, db *mongo.Database) error {
	_, err := SetLevel(ctx, db, Off, -1)
	return err
}

// Status returns the current profiler settings of the database.
func Status(ctx context.Context, db *mongo.Database) (proto.ProfilerStatus, error) {
	var ps proto.ProfilerStatus
	if err := db.RunCommand(ctx, bson.D{{Key: "profile", Value: -1}}).Decode(&ps); err != nil {
		return ps, errors.Wrapf(err, "cannot get profiler status of %s", db.Name())
	}
	return ps, nil
}

// Drop drops the system.profile collection for clean up.
// The profiler must be disabled first, the server refuses otherwise.
func Drop(ctx context.Context, db *mongo.Database) error {
	return db.Collection(Collection).Drop(ctx)
}
