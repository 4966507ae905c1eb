// Package callback implements the HTTP endpoint the hub calls back into:
// GET requests are challenge checks verifying that the endpoint is live
// before a subscription is activated, and POST requests deliver stream
// notification payloads which are accumulated per-streamer. The accumulated
// log is readable back via GET /events/{entityId}, most recent first.
package callback
