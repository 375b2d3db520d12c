// Package authgate decides what a guarded region of the application may
// render. Decisions are pure functions of the session store's state; the
// gate itself keeps none.
package authgate

import "github.com/codeshare/appcore/session"

// RegionKind classifies a guarded region.
type RegionKind int

const (
	// Protected regions require a session (dashboard, profile, post pages).
	Protected RegionKind = iota
	// PublicOnly regions are for unauthenticated visitors (sign-in,
	// registration) and bounce authenticated ones to the landing area.
	PublicOnly
)

// State is the outcome for a guarded region.
type State int

const (
	// Loading: the session store has not resolved its initial fetch yet.
	// Render a placeholder, never the guarded content.
	Loading State = iota
	// Allowed: render the region's children.
	Allowed
	// Redirected: navigate to Decision.Location instead.
	Redirected
)

// Navigation targets. SignInPath receives unauthenticated visitors of
// protected regions; LandingPath receives authenticated visitors of
// public-only regions.
const (
	SignInPath  = "/login"
	LandingPath = "/dashboard"
)

// Decision tells the host what to do with a guarded region.
type Decision struct {
	State State
	// Location is the redirect target; empty unless State is Redirected.
	Location string
	// ReplaceHistory is set on every redirect so back-navigation cannot
	// return to the disallowed page.
	ReplaceHistory bool
}

// Decide maps (isLoading, sessionPresent) to a Decision for the region
// kind. The mapping is total: every state renders something sensible, and
// protected content is never shown, even transiently, while loading.
func Decide(kind RegionKind, isLoading, sessionPresent bool) Decision {
	if isLoading {
		return Decision{State: Loading}
	}

	switch kind {
	case PublicOnly:
		if sessionPresent {
			return Decision{State: Redirected, Location: LandingPath, ReplaceHistory: true}
		}
	default: // Protected
		if !sessionPresent {
			return Decision{State: Redirected, Location: SignInPath, ReplaceHistory: true}
		}
	}
	return Decision{State: Allowed}
}

// Gate evaluates regions against a live session store.
type Gate struct {
	store *session.Store
}

// NewGate builds a Gate over the store.
func NewGate(store *session.Store) *Gate {
	return &Gate{store: store}
}

// Evaluate returns the current decision for a region kind.
func (g *Gate) Evaluate(kind RegionKind) Decision {
	snap := g.store.Snapshot()
	return Decide(kind, snap.IsLoading, snap.Authenticated())
}
