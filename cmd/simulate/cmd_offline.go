package main

import (
	"bytes"
	"encoding/json"
	"net/http"
)

var offlineFlags = struct {
	userId string
}{}

func initOfflineCommand() {
	fs.StringVar(&offlineFlags.userId, "user-id", "1337", "id of the streamer going offline")
}

func runOfflineCommand(callbackUrl string) (*http.Request, error) {
	payload := map[string]any{
		"data": []map[string]any{
			{
				"user_id": offlineFlags.userId,
				"type":    "offline",
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, callbackUrl, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
