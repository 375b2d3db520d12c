// Package servicefake is an in-memory identity.Service for tests and local
// development. It keeps real bcrypt hashes and mints real (HS256, fixed
// key) access tokens so the client-side token parsing paths are exercised
// the same way they are against the production service.
package servicefake

import (
	"context"
	"sync"
	"time"

	"github.com/codeshare/appcore/identity"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/profiles"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = time.Hour

// signingKey is fixed and public: the fake never leaves a test or a local
// development host.
var signingKey = []byte("servicefake-signing-key")

var _ identity.Service = (*Service)(nil)

type account struct {
	subject      string
	identifier   string
	passwordHash string
}

// Service implements identity.Service in memory. Registration inserts the
// matching Profile record through the supplied repo, mirroring how the real
// service creates profiles.
type Service struct {
	profileRepo profiles.Repo

	mu       sync.Mutex
	accounts map[string]*account // keyed by identifier
	current  *identity.Session
	subs     map[int]chan identity.Event
	nextSub  int
	nowTime  func() time.Time

	// FailCurrentSession makes CurrentSession return this error once.
	FailCurrentSession error
}

// Option configures the fake service.
type Option func(*Service)

// WithNowTime sets the clock (primarily for testing expiry behaviour).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// New builds the fake over the given profile repo.
func New(profileRepo profiles.Repo, options ...Option) *Service {
	s := &Service{
		profileRepo: profileRepo,
		accounts:    make(map[string]*account),
		subs:        make(map[int]chan identity.Event),
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) CurrentSession(ctx context.Context) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailCurrentSession; err != nil {
		s.FailCurrentSession = nil
		return nil, err
	}
	if s.current == nil {
		return nil, nil
	}
	cp := *s.current
	return &cp, nil
}

// Subscribe returns a buffered event stream. Events are queued in emit
// order; the buffer is sized so a single consuming goroutine never falls
// behind in practice.
func (s *Service) Subscribe() (<-chan identity.Event, identity.Unsubscribe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan identity.Event, 64)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
}

func (s *Service) SignIn(ctx context.Context, identifier, secret string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[identifier]
	if !ok {
		return nil, errors.Wrap(errs.ErrInvalidCredentials, "[Service.SignIn] unknown identifier")
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(secret)) != nil {
		return nil, errors.Wrap(errs.ErrInvalidCredentials, "[Service.SignIn] password mismatch")
	}

	session, err := s.mintSessionLocked(acct.subject)
	if err != nil {
		return nil, err
	}
	s.setCurrentLocked(session, identity.EventSignedIn)
	cp := *session
	return &cp, nil
}

func (s *Service) SignUp(ctx context.Context, identifier, secret string, seed identity.ProfileSeed) (*identity.Session, error) {
	if err := identity.ValidatePasswordStrength(secret); err != nil {
		return nil, errors.Wrap(errs.ErrInvalidCredentials, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[identifier]; exists {
		return nil, errors.Wrap(errs.ErrInvalidCredentials, "[Service.SignUp] identifier already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] hash password")
	}

	handle := seed.Handle
	if handle == "" {
		handle = identifier
	}
	subject := uuid.New().String()
	if err := s.profileRepo.Insert(ctx, &profiles.Profile{
		ID:        subject,
		FullName:  seed.FullName,
		Handle:    handle,
		CreatedAt: s.nowTime(),
	}); err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] insert profile")
	}

	s.accounts[identifier] = &account{
		subject:      subject,
		identifier:   identifier,
		passwordHash: string(hash),
	}

	session, err := s.mintSessionLocked(subject)
	if err != nil {
		return nil, err
	}
	s.setCurrentLocked(session, identity.EventSignedIn)
	cp := *session
	return &cp, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setCurrentLocked(nil, identity.EventSignedOut)
	return nil
}

// EnsureRootAccount seeds the distinguished root profile and its account if
// they do not exist yet. Safe to call on every boot.
func (s *Service) EnsureRootAccount(ctx context.Context, identifier, secret, fullName string) error {
	if _, err := s.profileRepo.GetByHandle(ctx, identifier); err == nil {
		return nil
	} else if !errs.Is(err, errs.ErrNotFound) {
		return errors.Wrap(err, "[Service.EnsureRootAccount] GetByHandle")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "[Service.EnsureRootAccount] hash password")
	}

	subject := uuid.New().String()
	if err := s.profileRepo.Insert(ctx, &profiles.Profile{
		ID:         subject,
		FullName:   fullName,
		Handle:     identifier,
		IsAdmin:    true,
		IsVerified: true,
		CreatedAt:  s.nowTime(),
	}); err != nil {
		return errors.Wrap(err, "[Service.EnsureRootAccount] insert profile")
	}

	s.accounts[identifier] = &account{
		subject:      subject,
		identifier:   identifier,
		passwordHash: string(hash),
	}
	return nil
}

// ExpireCurrentSession simulates a service-side expiry push.
func (s *Service) ExpireCurrentSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCurrentLocked(nil, identity.EventExpired)
}

func (s *Service) mintSessionLocked(subject string) (*identity.Session, error) {
	now := s.nowTime()
	expires := now.Add(sessionTTL)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	})
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.mintSession] sign token")
	}

	return &identity.Session{
		AccessToken:  signed,
		RefreshToken: uuid.New().String(),
		Subject:      subject,
		ExpiresAt:    expires,
	}, nil
}

func (s *Service) setCurrentLocked(session *identity.Session, kind identity.EventKind) {
	s.current = session

	ev := identity.Event{Kind: kind}
	if session != nil {
		cp := *session
		ev.Session = &cp
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber stopped draining; events are only lost once the
			// generous buffer is exhausted.
		}
	}
}
