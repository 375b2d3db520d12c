package profiles

import (
	"context"
	"sync"

	"github.com/codeshare/appcore/identity"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Resolver maps an authenticated session to its Profile record. An
// authenticated session without a matching profile is an unrecoverable
// inconsistency: Resolve reports ErrProfileMissing and the caller must force
// a sign-out rather than render with partial identity.
type Resolver struct {
	repo Repo

	mu      sync.Mutex
	subject string
	cached  *Profile
}

// NewResolver builds a Resolver over the given profile repo.
func NewResolver(repo Repo) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the Profile for the session's subject, issuing exactly one
// lookup per subject. The result is cached for repeated calls during the
// same session; a session with a different subject invalidates the cache, so
// nothing ever leaks across unrelated sessions.
func (r *Resolver) Resolve(ctx context.Context, session *identity.Session) (*Profile, error) {
	if session == nil {
		return nil, errors.New("[Resolver.Resolve] no session")
	}

	r.mu.Lock()
	if r.cached != nil && r.subject == session.Subject {
		cached := r.cached
		r.mu.Unlock()
		return cached, nil
	}
	// Session changed: drop whatever we resolved for the previous subject.
	r.subject = session.Subject
	r.cached = nil
	r.mu.Unlock()

	profile, err := r.repo.GetByID(ctx, session.Subject)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			log.Error().
				Str("component", "profiles.Resolver").
				Str("subject", session.Subject).
				Msg("authenticated session has no profile record")
			return nil, errors.Wrapf(errs.ErrProfileMissing, "[Resolver.Resolve] subject %q", session.Subject)
		}
		return nil, errors.Wrap(err, "[Resolver.Resolve] GetByID")
	}

	if err := profile.Validate(); err != nil {
		log.Error().
			Err(err).
			Str("component", "profiles.Resolver").
			Str("subject", session.Subject).
			Msg("profile record failed validation")
		return nil, errors.Wrap(errs.ErrProfileMissing, "[Resolver.Resolve] invalid profile record")
	}

	r.mu.Lock()
	// Only cache if the subject hasn't moved under us while we were fetching.
	if r.subject == session.Subject {
		r.cached = profile
	}
	r.mu.Unlock()

	return profile, nil
}

// Invalidate drops any cached profile. Called when the session changes or a
// role action edits the current user's own record.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.subject = ""
	r.cached = nil
	r.mu.Unlock()
}
