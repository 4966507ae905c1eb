package userauth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

const (
	// stateCookieName is the cookie that round-trips the CSRF token through
	// the consent redirect.
	stateCookieName = "state"

	// stateCookieMaxAge bounds the lifetime of an issued token: one hour.
	stateCookieMaxAge = 3600

	// stateNumBytes is the entropy of a freshly-generated token; it's hex
	// encoded, so the cookie value is twice this many characters.
	stateNumBytes = 20
)

func generateState() string {
	bytes := make([]byte, stateNumBytes)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)
}

// readState returns the caller's existing CSRF token, or an empty string if
// the state cookie is absent or empty.
func readState(req *http.Request) string {
	cookie, err := req.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// writeState sets the state cookie on the response. SameSite=None is
// required because the cookie must survive the cross-site redirect through
// the provider's consent screen.
func writeState(res http.ResponseWriter, tokenValue string) {
	http.SetCookie(res, &http.Cookie{
		Name:     stateCookieName,
		Value:    tokenValue,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
