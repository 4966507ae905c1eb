// Package store persists accounts and notification event logs in MongoDB.
// It is the only mutable shared state in the service: request handlers and
// the watch-list watcher coordinate exclusively through it.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/my-favourite-streamers/federation"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
)

type Store struct {
	users  *mongo.Collection
	events *mongo.Collection
}

// New connects to MongoDB and prepares the users and events collections
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		users:  db.Collection(usersCollection),
		events: db.Collection(eventsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure indexes (may already exist with different options)")
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "streamers.id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", usersCollection, err)
	}
	return nil
}

// UpsertAccessToken merges the latest access token into the account record,
// creating the record if it doesn't exist. No other field is touched.
func (s *Store) UpsertAccessToken(ctx context.Context, uid, accessToken string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"accessToken": accessToken}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert access token: %v", federation.ErrAccountStore, err)
	}
	return nil
}

// UpdateProfile sets the display name and avatar on an existing account,
// returning ErrAccountNotFound if no record matches
func (s *Store) UpdateProfile(ctx context.Context, uid, displayName, avatarURL string) error {
	r, err := s.users.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"displayName": displayName, "avatarUrl": avatarURL}},
	)
	if err != nil {
		return fmt.Errorf("%w: update profile: %v", federation.ErrAccountStore, err)
	}
	if r.MatchedCount == 0 {
		return federation.ErrAccountNotFound
	}
	return nil
}

// Create inserts a new account record. If a concurrent login already
// materialized the record, Create converges on it instead of failing.
func (s *Store) Create(ctx context.Context, account *federation.Account) error {
	_, err := s.users.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.UpdateProfile(ctx, account.UID, account.DisplayName, account.AvatarURL)
		}
		return fmt.Errorf("%w: create account: %v", federation.ErrAccountStore, err)
	}
	return nil
}

// Get returns the account record for the given namespaced id
func (s *Store) Get(ctx context.Context, uid string) (*federation.Account, error) {
	var account federation.Account
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, federation.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account: %v", federation.ErrAccountStore, err)
	}
	return &account, nil
}
