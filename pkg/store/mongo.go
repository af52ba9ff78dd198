// Package store persists fitted layout results so the serve command can
// answer repeat queries across restarts. Persistence is keyed the same way
// as the cache: a content hash of the inputs and options.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/spreadline/pkg/render"
)

const collection = "fits"

// Mongo stores fit results in a MongoDB collection, one document per fit
// key, upserted on save.
type Mongo struct {
	client *mongo.Client
	fits   *mongo.Collection
}

type fitDocument struct {
	Key       string         `bson:"_id"`
	Ego       string         `bson:"ego"`
	CreatedAt time.Time      `bson:"created_at"`
	Result    *render.Result `bson:"result"`
}

// NewMongo connects to the given MongoDB URI and verifies connectivity
// with a ping.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Mongo{
		client: client,
		fits:   client.Database(database).Collection(collection),
	}, nil
}

// Save upserts one fit result under its key.
func (s *Mongo) Save(ctx context.Context, key string, res *render.Result) error {
	doc := fitDocument{Key: key, Ego: res.Ego, CreatedAt: time.Now().UTC(), Result: res}
	_, err := s.fits.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// Load returns the stored result for the key, reporting whether it was
// found.
func (s *Mongo) Load(ctx context.Context, key string) (*render.Result, bool, error) {
	var doc fitDocument
	err := s.fits.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Result, true, nil
}

// Delete removes one stored result. Deleting an absent key is not an
// error.
func (s *Mongo) Delete(ctx context.Context, key string) error {
	_, err := s.fits.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects from MongoDB.
func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
