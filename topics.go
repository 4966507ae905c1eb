package federation

const (
	// HubURL is the webhooks hub where per-streamer topic subscriptions are
	// registered.
	HubURL = "https://api.twitch.tv/helix/webhooks/hub"

	// LeaseSeconds is the subscription lease requested from the hub: 10 days.
	// The hub owns lease expiry; we simply re-subscribe whenever a watch-list
	// changes.
	LeaseSeconds = 864000
)

// StreamTopicURL formats the hub topic for stream-change notifications
// scoped to a single streamer.
func StreamTopicURL(userID string) string {
	return "https://api.twitch.tv/helix/streams?user_id=" + userID
}
