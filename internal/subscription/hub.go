package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/my-favourite-streamers/federation"
)

// HubClient issues subscription requests to the remote notification hub
type HubClient interface {
	Subscribe(ctx context.Context, topic, accessToken string) error
}

// hubClient talks to the webhooks hub directly: the helix client only models
// EventSub, not this endpoint
type hubClient struct {
	hubUrl      string
	callbackUrl string
	clientId    string
	client      *http.Client
}

func NewHubClient(hubUrl, callbackUrl, clientId string) HubClient {
	return &hubClient{
		hubUrl:      hubUrl,
		callbackUrl: callbackUrl,
		clientId:    clientId,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type hubRequest struct {
	Callback     string `json:"hub.callback"`
	Mode         string `json:"hub.mode"`
	Topic        string `json:"hub.topic"`
	LeaseSeconds int    `json:"hub.lease_seconds"`
}

// Subscribe registers (or renews) a single topic subscription with the hub.
// The hub confirms the subscription out-of-band by probing the callback URL
// with a challenge before it starts delivering notifications.
func (c *hubClient) Subscribe(ctx context.Context, topic, accessToken string) error {
	body, err := json.Marshal(hubRequest{
		Callback:     c.callbackUrl,
		Mode:         "subscribe",
		Topic:        topic,
		LeaseSeconds: federation.LeaseSeconds,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubUrl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-ID", c.clientId)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", federation.ErrRemoteHub, err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: got response %d from hub: %s", federation.ErrRemoteHub, res.StatusCode, detail)
	}
	return nil
}
