package federation

import "errors"

var (
	// ErrMissingState is returned when the token exchange callback arrives
	// without the state cookie set at the start of the flow. The user must
	// restart the sign-in flow.
	ErrMissingState = errors.New("state cookie not set or expired; maybe you took too long to authorize, please try again")

	// ErrStateMismatch is returned when the state echoed back by the provider
	// doesn't match the value in the caller's cookie.
	ErrStateMismatch = errors.New("state validation failed")

	// ErrRemoteExchange indicates a failed authorization-code exchange with
	// the provider's token endpoint.
	ErrRemoteExchange = errors.New("authorization code exchange failed")

	// ErrRemoteProfile indicates a failed profile fetch from the provider's
	// user-info endpoint.
	ErrRemoteProfile = errors.New("remote profile fetch failed")

	// ErrRemoteHub indicates a failed subscription request to the webhooks
	// hub.
	ErrRemoteHub = errors.New("hub subscription request failed")

	// ErrAccountStore indicates a failure reading or writing the document
	// store.
	ErrAccountStore = errors.New("account store operation failed")

	// ErrAccountNotFound is returned when an operation targets an account
	// that doesn't exist yet.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMalformedPayload is returned when a webhook notification body can't
	// be parsed; the event log is left untouched.
	ErrMalformedPayload = errors.New("malformed notification payload")
)
