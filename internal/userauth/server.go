package userauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/nicklaw5/helix/v2"
	"github.com/rs/zerolog/hlog"

	"github.com/my-favourite-streamers/federation"
)

type NewIdentityClientFunc func(ctx context.Context) (IdentityClient, error)

// Provisioner converges the local account for a remote identity and returns
// a signed assertion bound to it
type Provisioner interface {
	Provision(ctx context.Context, remoteID, displayName, avatarURL, accessToken string) (string, error)
}

// Verifier checks a previously-issued assertion and returns the account id
// it's bound to
type Verifier interface {
	Verify(assertion string) (string, error)
}

// AccountReader loads provisioned account records
type AccountReader interface {
	Get(ctx context.Context, uid string) (*federation.Account, error)
}

type Server struct {
	scopes            []string
	newIdentityClient NewIdentityClientFunc
	provisioner       Provisioner
	verifier          Verifier
	accounts          AccountReader
}

func NewServer(twitchClientId, twitchClientSecret, redirectUrl string, scopes []string, provisioner Provisioner, verifier Verifier, accounts AccountReader) *Server {
	return &Server{
		scopes: scopes,
		newIdentityClient: func(ctx context.Context) (IdentityClient, error) {
			c, err := helix.NewClient(&helix.Options{
				ClientID:     twitchClientId,
				ClientSecret: twitchClientSecret,
				RedirectURI:  redirectUrl,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		provisioner: provisioner,
		verifier:    verifier,
		accounts:    accounts,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Path("/login").Methods("GET").HandlerFunc(s.handleLogin)
	r.Path("/token").Methods("GET").HandlerFunc(s.handleToken)
	r.Path("/account").Methods("GET").HandlerFunc(s.handleAccount)
}

// handleLogin (GET /login) issues a CSRF token in the state cookie and
// redirects the user to the Twitch consent screen
func (s *Server) handleLogin(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	c, err := s.newIdentityClient(req.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize Twitch API client")
		respondError(res, http.StatusInternalServerError, err)
		return
	}

	// Reuse the caller's existing CSRF token while its cookie is still live;
	// otherwise mint a fresh one
	state := readState(req)
	if state == "" {
		state = generateState()
	}
	writeState(res, state)

	u := c.GetAuthorizationURL(&helix.AuthorizationURLParams{
		ResponseType: "code",
		Scopes:       s.scopes,
		State:        state,
	})
	logger.Info().Str("state", state).Msg("Redirecting to consent screen")

	res.Header().Set("Location", u)
	res.WriteHeader(http.StatusFound)
}

// handleToken (GET /token) completes the flow: it verifies the CSRF token,
// exchanges the authorization code for an access token, fetches the remote
// profile, and provisions the local account. The terminal response is a
// signed assertion the web client uses to establish its own session.
func (s *Server) handleToken(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	// The state cookie set when the flow started must be present and must
	// exactly match the value echoed back by the provider; until both hold,
	// no remote call is made
	cookieState := readState(req)
	if cookieState == "" {
		logger.Warn().Msg("State cookie missing")
		respondError(res, http.StatusBadRequest, federation.ErrMissingState)
		return
	}
	queryState := req.URL.Query().Get("state")
	if cookieState != queryState {
		logger.Warn().Str("cookieState", cookieState).Str("queryState", queryState).Msg("State mismatch")
		respondError(res, http.StatusBadRequest, federation.ErrStateMismatch)
		return
	}

	code := req.URL.Query().Get("code")
	if code == "" {
		respondError(res, http.StatusBadRequest, errors.New("'code' value not found in URL query params"))
		return
	}

	c, err := s.newIdentityClient(req.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize Twitch API client")
		respondError(res, http.StatusInternalServerError, err)
		return
	}

	accessToken, err := exchangeCode(c, code)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to exchange authorization code")
		respondError(res, http.StatusBadGateway, err)
		return
	}

	profile, err := fetchProfile(c, accessToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch remote profile")
		respondError(res, http.StatusBadGateway, err)
		return
	}

	assertion, err := s.provisioner.Provision(req.Context(), profile.ID, profile.DisplayName, profile.ProfileImageURL, accessToken)
	if err != nil {
		logger.Error().Err(err).Str("remoteId", profile.ID).Msg("Failed to provision account")
		respondError(res, http.StatusInternalServerError, err)
		return
	}

	logger.Info().Str("uid", federation.UID(profile.ID)).Msg("Issued signed assertion")
	respondJSON(res, http.StatusOK, map[string]string{"token": assertion})
}

// handleAccount (GET /account) lets the web client look up the account its
// assertion is bound to, watch-list included. The assertion travels in the
// Authorization header as a Bearer credential.
func (s *Server) handleAccount(res http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	assertion, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok || assertion == "" {
		respondError(res, http.StatusUnauthorized, errors.New("'Authorization' header must carry a Bearer assertion"))
		return
	}
	uid, err := s.verifier.Verify(assertion)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected assertion")
		respondError(res, http.StatusUnauthorized, err)
		return
	}

	account, err := s.accounts.Get(req.Context(), uid)
	if err != nil {
		if errors.Is(err, federation.ErrAccountNotFound) {
			respondError(res, http.StatusNotFound, err)
			return
		}
		logger.Error().Err(err).Str("uid", uid).Msg("Failed to load account")
		respondError(res, http.StatusInternalServerError, err)
		return
	}
	respondJSON(res, http.StatusOK, account)
}

func respondJSON(res http.ResponseWriter, status int, payload any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	json.NewEncoder(res).Encode(payload)
}

func respondError(res http.ResponseWriter, status int, err error) {
	respondJSON(res, status, map[string]string{"error": err.Error()})
}
