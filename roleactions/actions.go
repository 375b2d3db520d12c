// Package roleactions implements the admin-only mutations over profiles and
// posts. Every operation follows the same shape: issue the mutation, and on
// confirmed success reflect the new value locally and notify; on failure
// leave local state unchanged and notify with the error.
package roleactions

import (
	"context"
	"strings"
	"sync"

	"github.com/codeshare/appcore/content"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/internal/metrics"
	"github.com/codeshare/appcore/profiles"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Notifier is the slice of the notification bus these actions need.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
}

// Actions carries out admin mutations. The operations are independent and
// order-commutative, but a single operation is not safe to issue twice
// concurrently: an in-flight latch per (operation, target) rejects the
// duplicate so the originating control can stay disabled.
type Actions struct {
	profiles   profiles.Repo
	content    *content.Repository
	bus        Notifier
	rootHandle string
	collector  *metrics.Collector

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures Actions.
type Option func(*Actions)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(a *Actions) {
		a.collector = c
	}
}

// New builds Actions. rootHandle names the distinguished root profile that
// is immune to demotion and deletion.
func New(profileRepo profiles.Repo, contentRepo *content.Repository, bus Notifier, rootHandle string, options ...Option) *Actions {
	a := &Actions{
		profiles:   profileRepo,
		content:    contentRepo,
		bus:        bus,
		rootHandle: rootHandle,
		inflight:   make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// IsRoot reports whether the target is the root profile. The UI uses this
// to disable the demote and delete controls outright.
func (a *Actions) IsRoot(target *profiles.Profile) bool {
	return target != nil && target.Handle == a.rootHandle
}

// ToggleVerified flips the target's verified flag.
func (a *Actions) ToggleVerified(ctx context.Context, target *profiles.Profile) error {
	release, err := a.begin("verify", target.ID)
	if err != nil {
		return err
	}
	defer release()

	next := !target.IsVerified
	if err := a.profiles.SetVerified(ctx, target.ID, next); err != nil {
		a.bus.Error("Update failed", "Could not change the verified badge. Please try again.")
		return errors.Wrapf(errs.ErrMutationFailed, "[Actions.ToggleVerified] %q: %v", target.ID, err)
	}

	target.IsVerified = next
	if next {
		a.bus.Success("Profile verified", target.FullName+" now has a verified badge.")
	} else {
		a.bus.Success("Verification removed", target.FullName+" no longer has a verified badge.")
	}
	return nil
}

// ToggleAdmin flips the target's admin flag. Demoting the root profile is
// refused before any network call.
func (a *Actions) ToggleAdmin(ctx context.Context, target *profiles.Profile) error {
	if a.IsRoot(target) {
		a.collector.RecordMutationRefusal()
		log.Debug().
			Str("component", "roleactions.Actions").
			Str("profile_id", target.ID).
			Msg("refusing admin toggle on root profile")
		return errors.Wrap(errs.ErrRootProfileProtected, "[Actions.ToggleAdmin]")
	}

	release, err := a.begin("admin", target.ID)
	if err != nil {
		return err
	}
	defer release()

	next := !target.IsAdmin
	if err := a.profiles.SetAdmin(ctx, target.ID, next); err != nil {
		a.bus.Error("Update failed", "Could not change admin rights. Please try again.")
		return errors.Wrapf(errs.ErrMutationFailed, "[Actions.ToggleAdmin] %q: %v", target.ID, err)
	}

	target.IsAdmin = next
	if next {
		a.bus.Success("User promoted", target.FullName+" has been promoted to admin.")
	} else {
		a.bus.Success("Admin rights removed", target.FullName+" is no longer an admin.")
	}
	return nil
}

// DeleteProfile removes a profile record. Deleting the root profile is
// refused before any network call. Posts owned by the profile are left to
// the data service's own lifecycle rules.
func (a *Actions) DeleteProfile(ctx context.Context, target *profiles.Profile) error {
	if a.IsRoot(target) {
		a.collector.RecordMutationRefusal()
		log.Debug().
			Str("component", "roleactions.Actions").
			Str("profile_id", target.ID).
			Msg("refusing delete of root profile")
		return errors.Wrap(errs.ErrRootProfileProtected, "[Actions.DeleteProfile]")
	}

	release, err := a.begin("delete", target.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := a.profiles.Delete(ctx, target.ID); err != nil {
		a.bus.Error("Delete failed", "Could not delete the user. Please try again.")
		return errors.Wrapf(errs.ErrMutationFailed, "[Actions.DeleteProfile] %q: %v", target.ID, err)
	}

	a.bus.Success("User deleted", target.FullName+" has been deleted.")
	return nil
}

// DeletePost removes a post through the content repository, which updates
// the listing only on confirmed success.
func (a *Actions) DeletePost(ctx context.Context, postID string) error {
	release, err := a.begin("delete-post", postID)
	if err != nil {
		return err
	}
	defer release()

	if err := a.content.Remove(ctx, postID); err != nil {
		a.bus.Error("Delete failed", "Could not delete the post. Please try again.")
		return errors.Wrap(err, "[Actions.DeletePost]")
	}

	a.bus.Success("Post deleted", "The post has been deleted.")
	return nil
}

// SearchProfiles filters profiles by name or handle substring,
// case-insensitively. An empty query returns the input unchanged.
func SearchProfiles(query string, list []*profiles.Profile) []*profiles.Profile {
	if query == "" {
		return list
	}

	q := strings.ToLower(query)
	out := make([]*profiles.Profile, 0, len(list))
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.Handle), q) {
			out = append(out, p)
		}
	}
	return out
}

// begin claims the in-flight latch for (operation, target), returning the
// release function, or ErrActionInFlight when a duplicate is already
// running.
func (a *Actions) begin(operation, targetID string) (func(), error) {
	key := operation + ":" + targetID

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inflight[key]; busy {
		return nil, errors.Wrapf(errs.ErrActionInFlight, "[Actions.begin] %s", key)
	}
	a.inflight[key] = struct{}{}

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.inflight, key)
	}, nil
}
