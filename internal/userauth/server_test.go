package userauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nicklaw5/helix/v2"
	"github.com/stretchr/testify/assert"

	"github.com/my-favourite-streamers/federation"
)

func Test_Server_handleLogin(t *testing.T) {
	t.Run("issues a fresh state token when no cookie is present", func(t *testing.T) {
		s := newTestServer(&mockIdentityClient{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		res := httptest.NewRecorder()
		s.handleLogin(res, req)

		assert.Equal(t, http.StatusFound, res.Code)
		cookie := findStateCookie(t, res)
		assert.Len(t, cookie.Value, stateNumBytes*2)
		assert.True(t, cookie.Secure)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
		assert.Equal(t, stateCookieMaxAge, cookie.MaxAge)

		location, err := url.Parse(res.Header().Get("Location"))
		assert.NoError(t, err)
		assert.Equal(t, "id.twitch.tv", location.Host)
		assert.Equal(t, cookie.Value, location.Query().Get("state"))
		assert.Equal(t, "code", location.Query().Get("response_type"))
		assert.Equal(t, "user_read", location.Query().Get("scope"))
	})

	t.Run("reuses an existing state token unchanged", func(t *testing.T) {
		s := newTestServer(&mockIdentityClient{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "previously-issued-token-value"})
		res := httptest.NewRecorder()
		s.handleLogin(res, req)

		assert.Equal(t, http.StatusFound, res.Code)
		cookie := findStateCookie(t, res)
		assert.Equal(t, "previously-issued-token-value", cookie.Value)

		location, err := url.Parse(res.Header().Get("Location"))
		assert.NoError(t, err)
		assert.Equal(t, "previously-issued-token-value", location.Query().Get("state"))
	})
}

func Test_Server_handleToken(t *testing.T) {
	tests := []struct {
		name              string
		cookieState       string
		queryState        string
		queryCode         string
		c                 *mockIdentityClient
		provisioner       *mockProvisioner
		wantStatus        int
		wantBodyContains  string
		wantExchangeCalls int
		wantUsersCalls    int
	}{
		{
			"missing state cookie is rejected before any remote call",
			"",
			"abcdef",
			"some-code",
			&mockIdentityClient{},
			&mockProvisioner{},
			http.StatusBadRequest,
			`"error":"state cookie not set or expired`,
			0,
			0,
		},
		{
			"state mismatch is rejected before any remote call",
			"abcdef",
			"fedcba",
			"some-code",
			&mockIdentityClient{},
			&mockProvisioner{},
			http.StatusBadRequest,
			`"error":"state validation failed"`,
			0,
			0,
		},
		{
			"missing code is rejected",
			"abcdef",
			"abcdef",
			"",
			&mockIdentityClient{},
			&mockProvisioner{},
			http.StatusBadRequest,
			`"error":"'code' value not found in URL query params"`,
			0,
			0,
		},
		{
			"failed code exchange aborts the flow",
			"abcdef",
			"abcdef",
			"some-code",
			&mockIdentityClient{exchangeStatus: 400, exchangeErrorMessage: "Invalid authorization code"},
			&mockProvisioner{},
			http.StatusBadGateway,
			"authorization code exchange failed",
			1,
			0,
		},
		{
			"failed profile fetch aborts the flow",
			"abcdef",
			"abcdef",
			"some-code",
			&mockIdentityClient{exchangeStatus: 200, accessToken: "user-token", usersStatus: 401},
			&mockProvisioner{},
			http.StatusBadGateway,
			"remote profile fetch failed",
			1,
			1,
		},
		{
			"provisioning failure yields an explicit error, not a token",
			"abcdef",
			"abcdef",
			"some-code",
			&mockIdentityClient{
				exchangeStatus: 200,
				accessToken:    "user-token",
				usersStatus:    200,
				users:          []helix.User{{ID: "44322889", DisplayName: "dallas", ProfileImageURL: "https://cdn.example.com/dallas.png"}},
			},
			&mockProvisioner{err: errors.New("account store operation failed: mongo is down")},
			http.StatusInternalServerError,
			`"error":"account store operation failed`,
			1,
			1,
		},
		{
			"successful exchange returns the signed assertion",
			"abcdef",
			"abcdef",
			"some-code",
			&mockIdentityClient{
				exchangeStatus: 200,
				accessToken:    "user-token",
				usersStatus:    200,
				users:          []helix.User{{ID: "44322889", DisplayName: "dallas", ProfileImageURL: "https://cdn.example.com/dallas.png"}},
			},
			&mockProvisioner{assertion: "signed-assertion-value"},
			http.StatusOK,
			`{"token":"signed-assertion-value"}`,
			1,
			1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.c, tt.provisioner)
			target := fmt.Sprintf("/token?code=%s&state=%s", tt.queryCode, tt.queryState)
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.cookieState != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.cookieState})
			}
			res := httptest.NewRecorder()
			s.handleToken(res, req)

			assert.Equal(t, tt.wantStatus, res.Code)
			assert.Contains(t, res.Body.String(), tt.wantBodyContains)
			assert.Equal(t, tt.wantExchangeCalls, tt.c.exchangeCalls)
			assert.Equal(t, tt.wantUsersCalls, tt.c.usersCalls)
		})
	}

	t.Run("provisioner receives the remote identity tuple and access token", func(t *testing.T) {
		c := &mockIdentityClient{
			exchangeStatus: 200,
			accessToken:    "user-token",
			usersStatus:    200,
			users:          []helix.User{{ID: "44322889", DisplayName: "dallas", ProfileImageURL: "https://cdn.example.com/dallas.png"}},
		}
		provisioner := &mockProvisioner{assertion: "signed-assertion-value"}
		s := newTestServer(c, provisioner)
		req := httptest.NewRequest(http.MethodGet, "/token?code=some-code&state=abcdef", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abcdef"})
		res := httptest.NewRecorder()
		s.handleToken(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "44322889", provisioner.gotRemoteID)
		assert.Equal(t, "dallas", provisioner.gotDisplayName)
		assert.Equal(t, "https://cdn.example.com/dallas.png", provisioner.gotAvatarURL)
		assert.Equal(t, "user-token", provisioner.gotAccessToken)
		assert.Equal(t, "user-token", c.userAccessToken)
	})
}

func Test_Server_handleAccount(t *testing.T) {
	account := &federation.Account{
		UID:         "twitch:44322889",
		DisplayName: "dallas",
		AvatarURL:   "https://cdn.example.com/dallas.png",
		AccessToken: "user-token",
		Streamers:   []federation.Streamer{{ID: "1001", Name: "somestreamer"}},
	}
	tests := []struct {
		name             string
		authorization    string
		verifier         *mockVerifier
		accounts         *mockAccountReader
		wantStatus       int
		wantBodyContains string
	}{
		{
			"missing Authorization header is rejected",
			"",
			&mockVerifier{},
			&mockAccountReader{},
			http.StatusUnauthorized,
			`"error":"'Authorization' header must carry a Bearer assertion"`,
		},
		{
			"non-Bearer credential is rejected",
			"Basic dXNlcjpwYXNz",
			&mockVerifier{},
			&mockAccountReader{},
			http.StatusUnauthorized,
			`"error":"'Authorization' header must carry a Bearer assertion"`,
		},
		{
			"invalid assertion is rejected",
			"Bearer bogus-assertion",
			&mockVerifier{err: errors.New("failed to verify assertion: token is expired")},
			&mockAccountReader{},
			http.StatusUnauthorized,
			`"error":"failed to verify assertion`,
		},
		{
			"assertion bound to a missing account yields 404",
			"Bearer valid-assertion",
			&mockVerifier{uid: "twitch:44322889"},
			&mockAccountReader{err: federation.ErrAccountNotFound},
			http.StatusNotFound,
			`"error":"account not found"`,
		},
		{
			"valid assertion returns the account, access token excluded",
			"Bearer valid-assertion",
			&mockVerifier{uid: "twitch:44322889"},
			&mockAccountReader{account: account},
			http.StatusOK,
			`{"uid":"twitch:44322889","displayName":"dallas","avatarUrl":"https://cdn.example.com/dallas.png","streamers":[{"id":"1001","name":"somestreamer"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{verifier: tt.verifier, accounts: tt.accounts}
			req := httptest.NewRequest(http.MethodGet, "/account", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			res := httptest.NewRecorder()
			s.handleAccount(res, req)

			assert.Equal(t, tt.wantStatus, res.Code)
			assert.Contains(t, res.Body.String(), tt.wantBodyContains)
		})
	}

	t.Run("the reader is queried for the uid the assertion is bound to", func(t *testing.T) {
		accounts := &mockAccountReader{account: account}
		s := &Server{verifier: &mockVerifier{uid: "twitch:44322889"}, accounts: accounts}
		req := httptest.NewRequest(http.MethodGet, "/account", nil)
		req.Header.Set("Authorization", "Bearer valid-assertion")
		res := httptest.NewRecorder()
		s.handleAccount(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "twitch:44322889", accounts.gotUID)
	})
}

func newTestServer(c *mockIdentityClient, provisioner *mockProvisioner) *Server {
	return &Server{
		scopes: []string{"user_read"},
		newIdentityClient: func(ctx context.Context) (IdentityClient, error) {
			return c, nil
		},
		provisioner: provisioner,
	}
}

func findStateCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == stateCookieName {
			return cookie
		}
	}
	t.Fatal("state cookie not set on response")
	return nil
}

type mockIdentityClient struct {
	exchangeErr          error
	exchangeStatus       int
	exchangeErrorMessage string
	accessToken          string

	usersErr    error
	usersStatus int
	users       []helix.User

	userAccessToken string
	exchangeCalls   int
	usersCalls      int
}

func (m *mockIdentityClient) GetAuthorizationURL(params *helix.AuthorizationURLParams) string {
	q := url.Values{}
	q.Set("response_type", params.ResponseType)
	q.Set("scope", strings.Join(params.Scopes, " "))
	q.Set("state", params.State)
	return "https://id.twitch.tv/oauth2/authorize?" + q.Encode()
}

func (m *mockIdentityClient) RequestUserAccessToken(code string) (*helix.UserAccessTokenResponse, error) {
	m.exchangeCalls++
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	r := &helix.UserAccessTokenResponse{}
	r.StatusCode = m.exchangeStatus
	r.ErrorMessage = m.exchangeErrorMessage
	r.Data.AccessToken = m.accessToken
	return r, nil
}

func (m *mockIdentityClient) SetUserAccessToken(accessToken string) {
	m.userAccessToken = accessToken
}

func (m *mockIdentityClient) GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error) {
	m.usersCalls++
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	r := &helix.UsersResponse{}
	r.StatusCode = m.usersStatus
	r.Data.Users = m.users
	return r, nil
}

type mockProvisioner struct {
	assertion string
	err       error

	gotRemoteID    string
	gotDisplayName string
	gotAvatarURL   string
	gotAccessToken string
}

func (m *mockProvisioner) Provision(ctx context.Context, remoteID, displayName, avatarURL, accessToken string) (string, error) {
	m.gotRemoteID = remoteID
	m.gotDisplayName = displayName
	m.gotAvatarURL = avatarURL
	m.gotAccessToken = accessToken
	if m.err != nil {
		return "", m.err
	}
	return m.assertion, nil
}

type mockVerifier struct {
	uid string
	err error
}

func (m *mockVerifier) Verify(assertion string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.uid, nil
}

type mockAccountReader struct {
	account *federation.Account
	err     error

	gotUID string
}

func (m *mockAccountReader) Get(ctx context.Context, uid string) (*federation.Account, error) {
	m.gotUID = uid
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}
