package store

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/my-favourite-streamers/federation"
)

// accountChange is the subset of a change-stream event needed to decide
// whether an account's watch-list changed
type accountChange struct {
	OperationType     string             `bson:"operationType"`
	FullDocument      federation.Account `bson:"fullDocument"`
	UpdateDescription struct {
		UpdatedFields bson.M   `bson:"updatedFields"`
		RemovedFields []string `bson:"removedFields"`
	} `bson:"updateDescription"`
}

// touchesWatchList reports whether this change wrote the watch-list. The
// change stream reports incremental array writes under disambiguated paths
// ("streamers.2" for a push of a new entry, "streamers.0.name" for an
// in-place edit), so matching only the bare field name would drop them.
func (c *accountChange) touchesWatchList() bool {
	if c.OperationType != "update" {
		return true
	}
	for key := range c.UpdateDescription.UpdatedFields {
		if key == "streamers" || strings.HasPrefix(key, "streamers.") {
			return true
		}
	}
	for _, key := range c.UpdateDescription.RemovedFields {
		if key == "streamers" {
			return true
		}
	}
	return false
}

// WatchAccounts emits a full account snapshot every time a watch-list
// changes, via a change stream on the users collection. Whether an update
// touched the watch-list is decided here rather than in the $match stage,
// so that array-level writes are seen too; token-only updates (i.e. logins)
// are dropped. The returned channel closes when ctx is canceled or the
// stream breaks; requires the deployment to be a replica set.
func (s *Store) WatchAccounts(ctx context.Context) (<-chan federation.Account, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
		}}},
	}
	cs, err := s.users.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, err
	}

	changes := make(chan federation.Account)
	go func() {
		defer close(changes)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var change accountChange
			if err := cs.Decode(&change); err != nil {
				log.Error().Err(err).Msg("Failed to decode account change")
				continue
			}
			if !change.touchesWatchList() {
				continue
			}
			select {
			case changes <- change.FullDocument:
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Account change stream terminated")
		}
	}()
	return changes, nil
}
