package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"github.com/my-favourite-streamers/federation"
)

// EventRecorder accumulates delivered notifications in the per-entity log
type EventRecorder interface {
	PrependEvent(ctx context.Context, entityID string, event federation.Event) error
}

// EventReader returns the accumulated log for an entity, most recent first
type EventReader interface {
	Events(ctx context.Context, entityID string) ([]federation.Event, error)
}

// Producer relays accepted notifications to downstream consumers
type Producer interface {
	Send(ctx context.Context, data json.RawMessage) error
}

type Server struct {
	recorder EventRecorder
	reader   EventReader
	producer Producer
}

func NewServer(recorder EventRecorder, reader EventReader, producer Producer) *Server {
	return &Server{
		recorder: recorder,
		reader:   reader,
		producer: producer,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Path("/callback").Methods("GET").HandlerFunc(s.handleGetCallback)
	r.Path("/callback").Methods("POST").HandlerFunc(s.handlePostCallback)
	r.Path("/events/{entityId}").Methods("GET").HandlerFunc(s.handleGetEvents)
}

// handleGetCallback (GET /callback) answers the hub's verification check:
// echoing the challenge value verbatim is what activates the subscription
func (s *Server) handleGetCallback(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	challenge := req.URL.Query().Get("hub.challenge")
	if challenge == "" {
		http.Error(res, "'hub.challenge' value not found in URL query params", http.StatusBadRequest)
		return
	}
	logger.Info().Str("challenge", challenge).Msg("Responding to challenge")

	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.Write([]byte(challenge))
}

// handlePostCallback (POST /callback) records a delivered notification at
// the head of the source streamer's event log
func (s *Server) handlePostCallback(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	var payload struct {
		Data []federation.Event `json:"data"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		logger.Error().Err(err).Msg("Failed to decode request body")
		http.Error(res, fmt.Sprintf("%v: %v", federation.ErrMalformedPayload, err), http.StatusBadRequest)
		return
	}
	defer req.Body.Close()

	if len(payload.Data) == 0 {
		http.Error(res, fmt.Sprintf("%v: 'data' must contain at least one event", federation.ErrMalformedPayload), http.StatusBadRequest)
		return
	}

	// The hub delivers payloads as an array, but each delivery describes a
	// single stream change: only the first element is consumed
	event := payload.Data[0]
	entityID := event.SourceEntityID()
	if entityID == "" {
		http.Error(res, fmt.Sprintf("%v: event is missing 'user_id'", federation.ErrMalformedPayload), http.StatusBadRequest)
		return
	}

	if err := s.recorder.PrependEvent(req.Context(), entityID, event); err != nil {
		logger.Error().Err(err).Str("entityId", entityID).Msg("Failed to record event")
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.producer != nil {
		data, err := json.Marshal(event)
		if err == nil {
			err = s.producer.Send(req.Context(), data)
		}
		if err != nil {
			// The event log is the source of truth; fanout is best-effort
			logger.Warn().Err(err).Str("entityId", entityID).Msg("Failed to relay event to exchange")
		}
	}

	logger.Info().Str("entityId", entityID).Msg("Recorded event")

	// "sucess" is misspelled in the wire contract existing consumers were
	// built against; don't correct it without versioning the endpoint
	res.Header().Set("Content-Type", "application/json")
	res.Write([]byte(`{"sucess":true}`))
}

// handleGetEvents (GET /events/{entityId}) returns the accumulated log for a
// streamer, most recent first, so the web client can render notification
// history. An entity with no deliveries yet gets an empty array.
func (s *Server) handleGetEvents(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	entityID := mux.Vars(req)["entityId"]
	events, err := s.reader.Events(req.Context(), entityID)
	if err != nil {
		logger.Error().Err(err).Str("entityId", entityID).Msg("Failed to read events")
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []federation.Event{}
	}
	res.Header().Set("Content-Type", "application/json")
	json.NewEncoder(res).Encode(events)
}
