package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

var liveFlags = struct {
	userId   string
	userName string
}{}

func initLiveCommand() {
	fs.StringVar(&liveFlags.userId, "user-id", "1337", "id of the streamer going live")
	fs.StringVar(&liveFlags.userName, "user-name", "somestreamer", "name of the streamer going live")
}

func runLiveCommand(callbackUrl string) (*http.Request, error) {
	payload := map[string]any{
		"data": []map[string]any{
			{
				"user_id":    liveFlags.userId,
				"user_name":  liveFlags.userName,
				"type":       "live",
				"started_at": time.Now().UTC().Format(time.RFC3339),
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
