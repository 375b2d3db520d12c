package repofake

import (
	"context"
	"sort"
	"sync"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/profiles"
	"github.com/google/uuid"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profiles.Repo for tests and local
// development. It stands in for the profile records owned by the remote
// data service.
type FakeProfileRepo struct {
	profiles  map[string]*profiles.Profile
	handleIds map[string]string // handle to profile id
	lock      sync.RWMutex

	// FailNext makes the next mutation return this error, then clears. Lets
	// tests exercise the confirmation-gated failure paths.
	FailNext error
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles:  make(map[string]*profiles.Profile),
		handleIds: make(map[string]string),
	}
}

func (pr *FakeProfileRepo) takeFailure() error {
	err := pr.FailNext
	pr.FailNext = nil
	return err
}

func (pr *FakeProfileRepo) Insert(ctx context.Context, profile *profiles.Profile) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	cp := *profile
	pr.profiles[cp.ID] = &cp
	pr.handleIds[cp.Handle] = cp.ID
	return nil
}

func (pr *FakeProfileRepo) GetByID(ctx context.Context, id string) (*profiles.Profile, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	p, ok := pr.profiles[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (pr *FakeProfileRepo) GetByHandle(ctx context.Context, handle string) (*profiles.Profile, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	id, ok := pr.handleIds[handle]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *pr.profiles[id]
	return &cp, nil
}

func (pr *FakeProfileRepo) List(ctx context.Context, offset, limit int) ([]*profiles.Profile, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	all := make([]*profiles.Profile, 0, len(pr.profiles))
	for _, p := range pr.profiles {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (pr *FakeProfileRepo) SetAdmin(ctx context.Context, id string, admin bool) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	p, ok := pr.profiles[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.IsAdmin = admin
	return nil
}

func (pr *FakeProfileRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	p, ok := pr.profiles[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.IsVerified = verified
	return nil
}

func (pr *FakeProfileRepo) Delete(ctx context.Context, id string) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	p, ok := pr.profiles[id]
	if !ok {
		return errs.ErrNotFound
	}
	delete(pr.handleIds, p.Handle)
	delete(pr.profiles, id)
	return nil
}
