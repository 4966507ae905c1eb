package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/my-favourite-streamers/federation"
)

// PrependEvent records a newly-delivered notification at the head of the
// entity's log, creating the log if it doesn't exist. The prepend is a
// single atomic update: concurrent deliveries for the same entity both land,
// there is no read-modify-write window in which one could be lost.
func (s *Store) PrependEvent(ctx context.Context, entityID string, event federation.Event) error {
	_, err := s.events.UpdateOne(ctx,
		bson.M{"_id": entityID},
		bson.M{"$push": bson.M{"events": bson.M{"$each": bson.A{event}, "$position": 0}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: prepend event for %s: %v", federation.ErrAccountStore, entityID, err)
	}
	return nil
}

// Events returns the accumulated notification log for an entity, most
// recent first. A missing log is an empty log, not an error.
func (s *Store) Events(ctx context.Context, entityID string) ([]federation.Event, error) {
	var doc struct {
		Events []federation.Event `bson:"events"`
	}
	if err := s.events.FindOne(ctx, bson.M{"_id": entityID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read events for %s: %v", federation.ErrAccountStore, entityID, err)
	}
	return doc.Events, nil
}
