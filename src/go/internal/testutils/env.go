package testutils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	envMongoDBURI = "TEST_MONGODB_URI"
	//
	envMongoDBShard1ReplsetName = "TEST_MONGODB_S1_RS"
	envMongoDBShard1PrimaryPort = "TEST_MONGODB_S1_PRIMARY_PORT"
	//
	envMongoDBUser     = "TEST_MONGODB_ADMIN_USERNAME"
	envMongoDBPassword = "TEST_MONGODB_ADMIN_PASSWORD"
)

var (
	MongoDBHost = "127.0.0.1"
	//
	MongoDBURI               = os.Getenv(envMongoDBURI)
	MongoDBShard1ReplsetName = os.Getenv(envMongoDBShard1ReplsetName)
	MongoDBShard1PrimaryPort = os.Getenv(envMongoDBShard1PrimaryPort)
	//
	MongoDBUser     = os.Getenv(envMongoDBUser)
	MongoDBPassword = os.Getenv(envMongoDBPassword)
	MongoDBTimeout  = time.Duration(10) * time.Second
)

// URI returns the connection string of the test server and false when none is configured.
// TEST_MONGODB_URI wins over the sandbox port variables.
func URI(port string) (string, bool) {
	if MongoDBURI != "" {
		return MongoDBURI, true
	}
	if port == "" {
		return "", false
	}

	var auth string
	if MongoDBUser != "" {
		auth = MongoDBUser + ":" + MongoDBPassword + "@"
	}
	uri := fmt.Sprintf("mongodb://%s%s:%s/", auth, MongoDBHost, port)
	if MongoDBShard1ReplsetName != "" {
		uri += "?replicaSet=" + MongoDBShard1ReplsetName
	}
	return uri, true
}

// TestClient returns a connected client for the test server on port.
func TestClient(ctx context.Context, port string) (*mongo.Client, error) {
	uri, ok := URI(port)
	if !ok {
		return nil, fmt.Errorf("no test MongoDB configured, set %s or %s", envMongoDBURI, envMongoDBShard1PrimaryPort)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(MongoDBTimeout))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background()) //nolint:errcheck
		return nil, err
	}
	return client, nil
}

// SkipIfNoServer skips the test when no test MongoDB is configured.
func SkipIfNoServer(t testing.TB) {
	t.Helper()

	if _, ok := URI(MongoDBShard1PrimaryPort); !ok {
		t.Skipf("no test MongoDB configured, set %s or %s", envMongoDBURI, envMongoDBShard1PrimaryPort)
	}
}

// DatabaseName returns a database name unique to the test.
func DatabaseName(t testing.TB) string {
	t.Helper()

	name := strings.ToLower(t.Name())
	name = strings.NewReplacer("/", "_", " ", "_", ".", "_", "$", "_").Replace(name)
	if len(name) > 60 {
		name = name[:60]
	}
	return name
}
