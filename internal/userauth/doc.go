// Package userauth implements the sign-in flow that federates a Twitch
// identity into our own account store, using the OAuth Authorization code
// grant flow described here:
//
// - https://dev.twitch.tv/docs/authentication/getting-tokens-oauth/#authorization-code-grant-flow
//
// GET /login redirects the user to the Twitch-hosted consent screen. Before
// redirecting, we set an HTTP-only 'state' cookie carrying a random CSRF
// token, and we embed the same token in the authorize URL's 'state'
// parameter. If a still-live state cookie is already present we reuse its
// value, so a user who retries the flow within the cookie's one-hour
// lifetime keeps a single valid token.
//
// Once the user grants access, Twitch redirects back to the web app, which
// calls GET /token with the authorization code and the echoed state. The
// handler refuses to do anything until the state query parameter exactly
// matches the cookie: a mismatch (or a missing cookie) means the callback
// doesn't correspond to a flow we initiated. Only then is the code exchanged
// for a user access token, the user's profile fetched with that token, and
// the local account provisioned. The terminal response carries a short-lived
// signed assertion which the web client trades for its own session.
//
// GET /account accepts that assertion as a Bearer credential and returns the
// account record it's bound to, watch-list included, so the web client can
// bootstrap its UI without a second sign-in round trip.
package userauth
