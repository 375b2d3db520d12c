// Package identity defines the client core's view of the remote identity
// service: the session it issues, the events it pushes, and the operations
// it exposes. The service owns sessions exclusively; the core only ever
// holds a read-only reference that is replaced wholesale on every event.
package identity

import (
	"context"
	"time"
)

// Session is proof of authentication issued by the identity service, valid
// until sign-out or expiry.
type Session struct {
	// AccessToken is the opaque bearer token presented to the data service.
	AccessToken string `json:"access_token"`
	// RefreshToken lets the service rotate the access token without a new
	// sign-in. May be empty when the service does not issue one.
	RefreshToken string `json:"refresh_token,omitempty"`
	// Subject identifies the authenticated principal. It matches the ID of
	// exactly one Profile record.
	Subject string `json:"subject"`
	// ExpiresAt is when the access token stops being valid.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// EventKind labels a session-change event pushed by the identity service.
type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventExpired        EventKind = "expired"
)

// Event is one entry in the session-change stream. Session is nil for
// EventSignedOut and EventExpired.
type Event struct {
	Kind    EventKind `json:"kind"`
	Session *Session  `json:"session,omitempty"`
}

// ProfileSeed carries the profile fields supplied at registration. The
// service creates the Profile record from it; the core never inserts
// profiles directly.
type ProfileSeed struct {
	FullName string `json:"full_name"`
	Handle   string `json:"username"`
}

// Unsubscribe releases interest in a session-change stream. After it
// returns, no further events are delivered on the stream's channel.
type Unsubscribe func()

// Service is the identity half of the remote service. All authentication
// cryptography and true enforcement live behind this boundary; nothing the
// core does with the results is a security decision.
type Service interface {
	// CurrentSession fetches the session the service currently considers
	// active, or nil when unauthenticated. A failure here is a SessionError:
	// callers treat it as "no session", never as fatal.
	CurrentSession(ctx context.Context) (*Session, error)

	// Subscribe opens a stream of session-change events, delivered in the
	// order the service emits them. The channel is closed after Unsubscribe
	// is called.
	Subscribe() (<-chan Event, Unsubscribe)

	// SignIn exchanges credentials for a session. A rejection is a
	// CredentialError; the caller keeps its form editable and stays put.
	SignIn(ctx context.Context, identifier, secret string) (*Session, error)

	// SignUp registers a new account and its profile record, returning the
	// fresh session.
	SignUp(ctx context.Context, identifier, secret string, seed ProfileSeed) (*Session, error)

	// SignOut destroys the current session. The service emits the matching
	// EventSignedOut on all subscriptions.
	SignOut(ctx context.Context) error
}
