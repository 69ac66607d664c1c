// Package mongo stores profiles in a MongoDB "users" collection, one document
// per email.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "users"

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	now    func() time.Time
}

// Open connects to uri, selects database and ensures the unique email index.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	users := client.Database(database).Collection(collectionName)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create email index: %w", err)
	}

	return &Store{client: client, users: users, now: time.Now}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return storage.Unavailable("mongo ping", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, email string) (*core.Profile, error) {
	var p core.Profile
	err := s.users.FindOne(ctx, emailFilter(email)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.Unavailable("mongo get", err)
	}
	p.Normalize()
	return &p, nil
}

func (s *Store) CreateDefault(ctx context.Context, email string) (*core.Profile, error) {
	p := core.DefaultProfile(email, s.now())
	update := bson.M{"$setOnInsert": p}
	_, err := s.users.UpdateOne(ctx, emailFilter(email), update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, storage.Unavailable("mongo create", err)
	}
	return s.Get(ctx, email)
}

func (s *Store) Save(ctx context.Context, p *core.Profile) (*core.Profile, error) {
	c := p.Clone()
	c.Normalize()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}
	_, err := s.users.ReplaceOne(ctx, emailFilter(c.Email), c, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, storage.Unavailable("mongo save", err)
	}
	return s.Get(ctx, c.Email)
}

func emailFilter(email string) bson.D {
	return bson.D{{Key: "email", Value: email}}
}
