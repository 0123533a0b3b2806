// Package mongo stores the notes corpus in MongoDB.
//
// Notes, thinkers and critical terms live in three collections of one
// database, keyed by their IDs. Thinkers and terms are returned in name
// order and notes in creation order, which fixes the bubble order of the
// matrix built from them.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/store"
)

// Collection names.
const (
	NotesCollection    = "notes"
	ThinkersCollection = "thinkers"
	TermsCollection    = "critical_terms"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "constellation"

// Config configures the connection.
type Config struct {
	URI      string
	Database string
	// Timeout bounds connecting and server selection. Zero keeps the
	// driver defaults.
	Timeout time.Duration
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	s := New(client, cfg.Database)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps a connected client.
func New(client *mongo.Client, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	return &Store{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the indexes the queries use.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(NotesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "folder_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create note indexes: %w", err)
	}
	for _, coll := range []string{ThinkersCollection, TermsCollection} {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "name", Value: 1}},
		}); err != nil {
			return fmt.Errorf("create %s index: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Corpus(ctx context.Context, f matrix.Filter) (matrix.Corpus, error) {
	var c matrix.Corpus
	if err := findAll(ctx, s.db.Collection(NotesCollection), notesFilter(f), notesSort, &c.Notes); err != nil {
		return matrix.Corpus{}, err
	}
	if err := findAll(ctx, s.db.Collection(ThinkersCollection), bson.D{}, nameSort, &c.Thinkers); err != nil {
		return matrix.Corpus{}, err
	}
	if err := findAll(ctx, s.db.Collection(TermsCollection), bson.D{}, nameSort, &c.Terms); err != nil {
		return matrix.Corpus{}, err
	}
	return c, nil
}

var (
	notesSort = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	nameSort  = bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
)

func notesFilter(f matrix.Filter) bson.D {
	if f.FolderID == "" {
		return bson.D{}
	}
	return bson.D{{Key: "folder_id", Value: f.FolderID}}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter, sort bson.D, out *[]T) error {
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "find %s", coll.Name())
	}
	if err := cur.All(ctx, out); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "decode %s", coll.Name())
	}
	return nil
}

func (s *Store) PutNotes(ctx context.Context, notes ...matrix.Note) error {
	models := make([]mongo.WriteModel, 0, len(notes))
	for _, n := range notes {
		models = append(models, replaceByID(n.ID, n))
	}
	return s.bulk(ctx, NotesCollection, models)
}

func (s *Store) PutThinkers(ctx context.Context, thinkers ...matrix.Thinker) error {
	models := make([]mongo.WriteModel, 0, len(thinkers))
	for _, th := range thinkers {
		models = append(models, replaceByID(th.ID, th))
	}
	return s.bulk(ctx, ThinkersCollection, models)
}

func (s *Store) PutTerms(ctx context.Context, terms ...matrix.CriticalTerm) error {
	models := make([]mongo.WriteModel, 0, len(terms))
	for _, t := range terms {
		models = append(models, replaceByID(t.ID, t))
	}
	return s.bulk(ctx, TermsCollection, models)
}

func replaceByID(id string, doc any) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.D{{Key: "_id", Value: id}}).
		SetReplacement(doc).
		SetUpsert(true)
}

func (s *Store) bulk(ctx context.Context, coll string, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := s.db.Collection(coll).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "write %s", coll)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
