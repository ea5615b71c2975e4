// Package mongostore implements the repository interfaces on MongoDB.
// Preferences, sections and snapshot rows are embedded in their parent
// documents.
package mongostore

import (
	"context"
	"fmt"
	"time"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	subjectsCollection       = "subjects"
	studentsCollection       = "students"
	allocationsCollection    = "allocations"
	snapshotsCollection      = "allocation_snapshots"
	changeRequestsCollection = "change_requests"

	connectTimeout = 10 * time.Second
)

// Store owns the mongo client and the collections of one database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// Connect dials uri and pings the primary. With transactions enabled,
// multi-step writes run inside a session transaction, which requires a
// replica set.
func Connect(ctx context.Context, uri, database string, transactions bool) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"database":     database,
		"transactions": transactions,
	}).Info("Mongo connection established")

	return &Store{client: client, db: client.Database(database), transactions: transactions}, nil
}

// Repositories returns the repository bundle backed by this store.
func (s *Store) Repositories() interfaces.Repositories {
	repos := interfaces.Repositories{
		Subjects:       &subjectRepository{coll: s.db.Collection(subjectsCollection)},
		Students:       &studentRepository{coll: s.db.Collection(studentsCollection)},
		Allocations:    &allocationRepository{coll: s.db.Collection(allocationsCollection)},
		Snapshots:      &snapshotRepository{coll: s.db.Collection(snapshotsCollection)},
		ChangeRequests: &changeRequestRepository{coll: s.db.Collection(changeRequestsCollection)},
	}
	repos.Tx = &transactor{store: s, repos: repos}
	return repos
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		subjectsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		studentsCollection: {
			{Keys: bson.D{{Key: "roll_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		allocationsCollection: {
			{Keys: bson.D{{Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "subject_id", Value: 1}}},
		},
		snapshotsCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		changeRequestsCollection: {
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for name, models := range indexes {
		created, err := s.db.Collection(name).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		logger.WithFields(logrus.Fields{
			"collection": name,
			"indexes":    created,
		}).Debug("Indexes ensured")
	}
	return nil
}

func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type transactor struct {
	store *Store
	repos interfaces.Repositories
}

// WithinTransaction runs fn in a session transaction when enabled. The
// session context is passed to fn so every repository call joins it.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos interfaces.Repositories) error) error {
	if !t.store.transactions {
		return fn(ctx, t.repos)
	}

	session, err := t.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, t.repos)
	})
	return err
}
