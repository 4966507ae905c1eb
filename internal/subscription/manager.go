// Package subscription keeps hub subscriptions in step with account
// watch-lists: every time a watch-list changes, one subscription request is
// re-sent per watched streamer. The hub owns subscription state and lease
// expiry; this service only ever asks it to subscribe.
package subscription

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/my-favourite-streamers/federation"
)

type Manager struct {
	hub HubClient
}

func NewManager(hub HubClient) *Manager {
	return &Manager{hub: hub}
}

// Sync issues one subscribe request per entry in the account's watch-list,
// all concurrently. The batch is all-or-nothing: any single failure fails
// the whole call, and no compensating unsubscribe is issued for entries that
// already succeeded. Re-running Sync with the same watch-list is safe; the
// hub treats a repeated subscribe as renew-or-noop.
func (m *Manager) Sync(ctx context.Context, account *federation.Account) error {
	if len(account.Streamers) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, streamer := range account.Streamers {
		streamer := streamer
		g.Go(func() error {
			if err := m.hub.Subscribe(ctx, federation.StreamTopicURL(streamer.ID), account.AccessToken); err != nil {
				return fmt.Errorf("failed to subscribe to streamer %s: %w", streamer.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
