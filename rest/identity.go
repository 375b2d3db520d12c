package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/codeshare/appcore/identity"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
	"golang.org/x/oauth2"
)

const (
	tokenPath  = "/auth/v1/token"
	signupPath = "/auth/v1/signup"
	logoutPath = "/auth/v1/logout"
	eventsPath = "/auth/v1/events"
)

var _ identity.Service = (*IdentityService)(nil)

// IdentityService implements identity.Service against the remote service.
// Session tokens are held in an oauth2 token source, which transparently
// rotates the access token off the refresh token; refreshes surface to
// consumers as EventTokenRefreshed on the push channel, so the store stays
// the single source of truth.
type IdentityService struct {
	client   *Client
	oauthCfg oauth2.Config

	mu      sync.Mutex
	session *identity.Session
	source  oauth2.TokenSource
}

// NewIdentityService builds the identity half of the service boundary.
func NewIdentityService(client *Client) *IdentityService {
	return &IdentityService{
		client: client,
		oauthCfg: oauth2.Config{
			ClientID: client.apiKey,
			Endpoint: oauth2.Endpoint{
				TokenURL:  client.baseURL.JoinPath(tokenPath).String(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// CurrentSession returns the session this client currently holds, with the
// token source consulted so an expired access token is refreshed first. A
// failure is a SessionError; callers treat it as unauthenticated.
func (s *IdentityService) CurrentSession(ctx context.Context) (*identity.Session, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()

	if source == nil {
		return nil, nil
	}

	tok, err := source.Token()
	if err != nil {
		return nil, errors.Wrapf(errs.ErrSessionUnavailable, "[IdentityService.CurrentSession] %v", err)
	}
	session, err := sessionFromToken(tok)
	if err != nil {
		return nil, errors.Wrap(err, "[IdentityService.CurrentSession]")
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	cp := *session
	return &cp, nil
}

// Subscribe opens the websocket push channel for session-change events and
// forwards them, in arrival order, onto the returned channel. Unsubscribe
// closes the connection; the channel closes once the reader drains.
func (s *IdentityService) Subscribe() (<-chan identity.Event, identity.Unsubscribe) {
	out := make(chan identity.Event, 64)

	conn, err := websocket.Dial(s.client.websocketURL(eventsPath), "", s.client.baseURL.String())
	if err != nil {
		// The push channel is best-effort at dial time: the store still
		// works off the initial fetch. Surface the failure in the log.
		log.Warn().
			Err(err).
			Str("component", "rest.IdentityService").
			Msg("session event channel unavailable")
		close(out)
		return out, func() {}
	}

	var once sync.Once
	go func() {
		defer close(out)
		for {
			var ev identity.Event
			if err := websocket.JSON.Receive(conn, &ev); err != nil {
				return
			}
			out <- ev
		}
	}()

	return out, func() {
		once.Do(func() {
			_ = conn.Close()
		})
	}
}

// SignIn exchanges credentials for a session via the password grant.
func (s *IdentityService) SignIn(ctx context.Context, identifier, secret string) (*identity.Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client.httpClient)
	tok, err := s.oauthCfg.PasswordCredentialsToken(ctx, identifier, secret)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil &&
			(retrieve.Response.StatusCode == http.StatusBadRequest || retrieve.Response.StatusCode == http.StatusUnauthorized) {
			return nil, errors.Wrapf(errs.ErrInvalidCredentials, "[IdentityService.SignIn] %v", err)
		}
		return nil, errors.Wrap(err, "[IdentityService.SignIn] token exchange")
	}

	return s.adoptToken(ctx, tok)
}

// SignUp registers a new account; the service creates the profile record
// from the seed and returns a fresh token pair.
func (s *IdentityService) SignUp(ctx context.Context, identifier, secret string, seed identity.ProfileSeed) (*identity.Session, error) {
	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	body := map[string]interface{}{
		"email":    identifier,
		"password": secret,
		"data":     seed,
	}
	if err := s.client.do(ctx, "auth.signup", http.MethodPost, signupPath, nil, body, &payload); err != nil {
		var svcErr *apiError
		if errors.As(err, &svcErr) && svcErr.Status < http.StatusInternalServerError {
			return nil, errors.Wrapf(errs.ErrInvalidCredentials, "[IdentityService.SignUp] %s", svcErr.Message)
		}
		return nil, errors.Wrap(err, "[IdentityService.SignUp]")
	}

	tok := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    "Bearer",
	}
	if payload.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return s.adoptToken(ctx, tok)
}

// SignOut destroys the session on the service and drops the local token
// source. The service emits the matching signed_out event on the push
// channel.
func (s *IdentityService) SignOut(ctx context.Context) error {
	err := s.client.do(ctx, "auth.logout", http.MethodPost, logoutPath, nil, nil, nil)

	s.mu.Lock()
	s.session = nil
	s.source = nil
	s.mu.Unlock()
	s.client.SetTokenSource(nil)

	if err != nil {
		return errors.Wrap(err, "[IdentityService.SignOut]")
	}
	return nil
}

// adoptToken turns a token pair into the current session and installs the
// refreshing token source on the shared client.
func (s *IdentityService) adoptToken(ctx context.Context, tok *oauth2.Token) (*identity.Session, error) {
	session, err := sessionFromToken(tok)
	if err != nil {
		return nil, err
	}

	source := s.oauthCfg.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, s.client.httpClient), tok)
	s.mu.Lock()
	s.session = session
	s.source = source
	s.mu.Unlock()
	s.client.SetTokenSource(source)

	cp := *session
	return &cp, nil
}

// sessionFromToken builds the read-only Session view from a token pair.
// The subject comes out of the access token's claims; the expiry prefers
// the token's own bookkeeping and falls back to the claims.
func sessionFromToken(tok *oauth2.Token) (*identity.Session, error) {
	claims, err := identity.ParseAccessToken(tok.AccessToken)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrMalformedRecord, "[sessionFromToken] %v", err)
	}

	expires := tok.Expiry
	if expires.IsZero() {
		expires = claims.ExpiresAt
	}
	return &identity.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Subject:      claims.Subject,
		ExpiresAt:    expires,
	}, nil
}
