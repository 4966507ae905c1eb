package federation

import "fmt"

// Provider is the identity provider whose accounts we federate.
const Provider = "twitch"

// UID returns the namespaced account id under which a remote identity is
// stored, e.g. "twitch:44322889". All account records are keyed by this id.
func UID(remoteID string) string {
	return fmt.Sprintf("%s:%s", Provider, remoteID)
}

// Streamer is a single watch-list entry: a remote channel the account wants
// live notifications for.
type Streamer struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}

// Account is the local record of a federated identity. It's created on first
// successful token exchange, updated on every subsequent login, and never
// deleted by this service. The watch-list is written by the web client; every
// change to it re-triggers subscription sync.
type Account struct {
	UID         string     `bson:"_id" json:"uid"`
	DisplayName string     `bson:"displayName,omitempty" json:"displayName,omitempty"`
	AvatarURL   string     `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	AccessToken string     `bson:"accessToken,omitempty" json:"-"`
	Streamers   []Streamer `bson:"streamers,omitempty" json:"streamers,omitempty"`
}

// Event is a single notification payload as delivered by the hub. The payload
// shape is owned by the hub; the only field this service requires is the id
// of the streamer the event originated from.
type Event map[string]any

// SourceEntityID returns the id of the streamer this event describes, or an
// empty string if the payload doesn't carry one.
func (e Event) SourceEntityID() string {
	if v, ok := e["user_id"].(string); ok {
		return v
	}
	return ""
}
