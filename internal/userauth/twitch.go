package userauth

import (
	"fmt"
	"net/http"

	"github.com/nicklaw5/helix/v2"

	"github.com/my-favourite-streamers/federation"
)

// IdentityClient represents the subset of Twitch API client functionality
// used to run the authorization code grant flow and fetch the authenticated
// user's profile
type IdentityClient interface {
	GetAuthorizationURL(params *helix.AuthorizationURLParams) string
	RequestUserAccessToken(code string) (*helix.UserAccessTokenResponse, error)
	SetUserAccessToken(accessToken string)
	GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error)
}

// exchangeCode trades an authorization code for a user access token via the
// provider's token endpoint
func exchangeCode(c IdentityClient, code string) (string, error) {
	r, err := c.RequestUserAccessToken(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", federation.ErrRemoteExchange, err)
	}
	if r.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: got response %d from token request: %s", federation.ErrRemoteExchange, r.StatusCode, r.ErrorMessage)
	}
	return r.Data.AccessToken, nil
}

// fetchProfile uses a freshly-issued user access token to look up the
// profile of the user that token belongs to
func fetchProfile(c IdentityClient, accessToken string) (*helix.User, error) {
	c.SetUserAccessToken(accessToken)
	r, err := c.GetUsers(&helix.UsersParams{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrRemoteProfile, err)
	}
	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: got response %d from users request: %s", federation.ErrRemoteProfile, r.StatusCode, r.ErrorMessage)
	}
	if len(r.Data.Users) == 0 {
		return nil, fmt.Errorf("%w: response contained no users", federation.ErrRemoteProfile)
	}
	return &r.Data.Users[0], nil
}
