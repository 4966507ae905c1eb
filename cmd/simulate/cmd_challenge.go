package main

import (
	"net/http"
	"net/url"
)

var challengeFlags = struct {
	value string
}{}

func initChallengeCommand() {
	fs.StringVar(&challengeFlags.value, "value", "abc123", "challenge value the server should echo back")
}

func runChallengeCommand(callbackUrl string) (*http.Request, error) {
	u, err := url.Parse(callbackUrl)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("hub.challenge", challengeFlags.value)
	u.RawQuery = q.Encode()
	return http.NewRequest(http.MethodGet, u.String(), nil)
}
