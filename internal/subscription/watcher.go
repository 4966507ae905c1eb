package subscription

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/my-favourite-streamers/federation"
)

// Watch consumes account snapshots from the store's change feed and re-syncs
// hub subscriptions for each one. Sync failures are logged with the account
// id and do not stop the loop; the next watch-list save retries the batch.
func (m *Manager) Watch(ctx context.Context, changes <-chan federation.Account, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case account, ok := <-changes:
			if !ok {
				return
			}
			if len(account.Streamers) == 0 {
				continue
			}
			logger.Info().
				Str("uid", account.UID).
				Int("numStreamers", len(account.Streamers)).
				Msg("Watch-list changed; syncing hub subscriptions")
			if err := m.Sync(ctx, &account); err != nil {
				logger.Error().Err(err).Str("uid", account.UID).Msg("Failed to sync hub subscriptions")
				continue
			}
			logger.Info().Str("uid", account.UID).Msg("Synced hub subscriptions")
		}
	}
}
