// Package app wires the client core together and drives its lifecycle:
// boot, route gating, sign-in/out orchestration, and the forced sign-out
// when an authenticated session turns out to have no profile.
package app

import (
	"context"
	"strings"

	"github.com/codeshare/appcore/authgate"
	"github.com/codeshare/appcore/content"
	"github.com/codeshare/appcore/identity"
	"github.com/codeshare/appcore/internal/config"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/internal/metrics"
	"github.com/codeshare/appcore/notify"
	"github.com/codeshare/appcore/posts"
	"github.com/codeshare/appcore/profiles"
	"github.com/codeshare/appcore/roleactions"
	"github.com/codeshare/appcore/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const welcomeFlag = "visited"

// dashboardPostLimit matches the dashboard's page size.
const dashboardPostLimit = 10

// App is the assembled client core. The embedding host constructs one App
// per running instance, boots it, and reads/drives the components through
// the exported fields.
type App struct {
	Sessions *session.Store
	Gate     *authgate.Gate
	Resolver *profiles.Resolver
	Content  *content.Repository
	Actions  *roleactions.Actions
	Bus      *notify.Bus

	cfg      config.Config
	svc      identity.Service
	flags    *FlagStore
	profiles profiles.Repo
}

// Option configures the App.
type Option func(*appOptions)

type appOptions struct {
	collector *metrics.Collector
}

// WithCollector attaches a metrics collector to every component.
func WithCollector(c *metrics.Collector) Option {
	return func(o *appOptions) {
		o.collector = c
	}
}

// New assembles the core over an identity service and the two record repos.
// Nothing talks to the network until Boot.
func New(cfg config.Config, svc identity.Service, profileRepo profiles.Repo, postRepo posts.Repo, options ...Option) (*App, error) {
	if svc == nil {
		return nil, errors.New("[app.New] identity service is required")
	}
	if profileRepo == nil {
		return nil, errors.New("[app.New] profile repo is required")
	}
	if postRepo == nil {
		return nil, errors.New("[app.New] post repo is required")
	}

	var opts appOptions
	for _, opt := range options {
		opt(&opts)
	}

	flags, err := NewFlagStore(cfg.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "[app.New] flag store")
	}

	bus := notify.NewBus(notify.WithCollector(opts.collector))
	store := session.NewStore(svc, session.WithCollector(opts.collector))
	repo := content.NewRepository(postRepo, profileRepo, content.WithCollector(opts.collector))

	return &App{
		Sessions: store,
		Gate:     authgate.NewGate(store),
		Resolver: profiles.NewResolver(profileRepo),
		Content:  repo,
		Actions:  roleactions.New(profileRepo, repo, bus, cfg.RootHandle, roleactions.WithCollector(opts.collector)),
		Bus:      bus,
		cfg:      cfg,
		svc:      svc,
		flags:    flags,
		profiles: profileRepo,
	}, nil
}

// Boot starts the session store and greets first-time visitors. It returns
// immediately; the store resolves its loading state in the background and
// the gate reports Loading until it does.
func (a *App) Boot(ctx context.Context) {
	a.Sessions.Start(ctx)

	if !a.flags.IsSet(welcomeFlag) {
		a.Bus.Success("Welcome to CodeShare!", "Discover, share and learn with our developer community.")
		if err := a.flags.Set(welcomeFlag); err != nil {
			log.Warn().Err(err).Str("component", "app").Msg("could not persist welcome flag")
		}
	}
}

// Close tears the core down: the session subscription is released and the
// bus stops accepting notifications. In-flight fetches are not cancelled;
// their late results are discarded by the components themselves.
func (a *App) Close() {
	a.Sessions.Close()
	a.Bus.Close()
}

// RouteDecision gates a navigation target. Unknown paths are public.
func (a *App) RouteDecision(path string) authgate.Decision {
	switch {
	case path == authgate.SignInPath, path == "/register":
		return a.Gate.Evaluate(authgate.PublicOnly)
	case path == authgate.LandingPath,
		path == "/profile",
		strings.HasPrefix(path, "/profile/"),
		strings.HasPrefix(path, "/post/"):
		return a.Gate.Evaluate(authgate.Protected)
	default:
		return authgate.Decision{State: authgate.Allowed}
	}
}

// SignIn exchanges credentials for a session. On rejection the form stays
// editable and no navigation occurs; the error is surfaced on the bus.
func (a *App) SignIn(ctx context.Context, identifier, secret string) error {
	if _, err := a.svc.SignIn(ctx, identifier, secret); err != nil {
		a.Bus.Error("Login failed", "Please check your credentials and try again.")
		if errs.Is(err, errs.ErrInvalidCredentials) {
			return errors.Wrap(err, "[App.SignIn]")
		}
		return errors.Wrapf(errs.ErrInvalidCredentials, "[App.SignIn] %v", err)
	}

	a.Bus.Success("Welcome back!", "You have successfully logged in.")
	return nil
}

// SignUp registers an account after checking the password locally, so an
// obviously weak password never costs a round trip.
func (a *App) SignUp(ctx context.Context, identifier, secret string, seed identity.ProfileSeed) error {
	if err := identity.ValidatePasswordStrength(secret); err != nil {
		a.Bus.Error("Registration failed", err.Error())
		return errors.Wrapf(errs.ErrInvalidCredentials, "[App.SignUp] %v", err)
	}

	if _, err := a.svc.SignUp(ctx, identifier, secret, seed); err != nil {
		a.Bus.Error("Registration failed", "Please try again later.")
		if errs.Is(err, errs.ErrInvalidCredentials) {
			return errors.Wrap(err, "[App.SignUp]")
		}
		return errors.Wrapf(errs.ErrInvalidCredentials, "[App.SignUp] %v", err)
	}

	a.Bus.Success("Registration successful!", "Your account has been created.")
	return nil
}

// SignOut destroys the session. The store observes the pushed signed_out
// event and the gate flips to Redirected on its own.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.svc.SignOut(ctx); err != nil {
		return errors.Wrap(err, "[App.SignOut]")
	}
	a.Resolver.Invalidate()
	a.Bus.Success("Signed out", "You have been successfully logged out.")
	return nil
}

// CurrentProfile resolves the profile for the current session. A session
// with no profile record is an unrecoverable inconsistency: the user is
// signed out and redirected rather than rendered with partial identity.
func (a *App) CurrentProfile(ctx context.Context) (*profiles.Profile, error) {
	snap := a.Sessions.Snapshot()
	if !snap.Authenticated() {
		return nil, errors.Wrap(errs.ErrSessionUnavailable, "[App.CurrentProfile] not signed in")
	}

	profile, err := a.Resolver.Resolve(ctx, snap.Session)
	if err != nil {
		if errs.Is(err, errs.ErrProfileMissing) {
			log.Error().
				Str("component", "app").
				Str("subject", snap.Session.Subject).
				Msg("profile missing for session; forcing sign-out")
			a.Bus.Error("Account problem", "Your profile could not be loaded. Please sign in again.")
			if signOutErr := a.svc.SignOut(ctx); signOutErr != nil {
				log.Warn().Err(signOutErr).Str("component", "app").Msg("forced sign-out failed")
			}
		}
		return nil, errors.Wrap(err, "[App.CurrentProfile]")
	}
	return profile, nil
}

// LoadDashboard fetches the post listing for the dashboard, scoped to the
// dashboard's page size. Role gating is advisory: every authenticated user
// sees the same recent posts; admins additionally get the user listing.
func (a *App) LoadDashboard(ctx context.Context) ([]content.Entry, error) {
	entries, err := a.Content.ListRecent(ctx, dashboardPostLimit)
	if err != nil {
		a.Bus.Error("Loading failed", "Could not load posts. Please try again.")
		return nil, errors.Wrap(err, "[App.LoadDashboard]")
	}
	return entries, nil
}

// LoadUsers returns the profile listing for the admin users tab. Callers
// gate on viewer.IsAdmin before exposing the tab; this is advisory only.
func (a *App) LoadUsers(ctx context.Context, offset, limit int) ([]*profiles.Profile, error) {
	list, err := a.profiles.List(ctx, offset, limit)
	if err != nil {
		a.Bus.Error("Loading failed", "Could not load users. Please try again.")
		return nil, errors.Wrap(err, "[App.LoadUsers]")
	}
	return list, nil
}
