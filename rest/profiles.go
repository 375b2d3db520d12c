package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/profiles"
	"github.com/pkg/errors"
)

const profilesPath = "/rest/v1/profiles"

var _ profiles.Repo = (*ProfileRepo)(nil)

// ProfileRepo implements profiles.Repo against the remote service's record
// endpoints.
type ProfileRepo struct {
	client *Client
}

// NewProfileRepo builds the profile half of the data service boundary.
func NewProfileRepo(client *Client) *ProfileRepo {
	return &ProfileRepo{client: client}
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*profiles.Profile, error) {
	var p profiles.Profile
	if err := r.client.do(ctx, "profiles.get", http.MethodGet, profilesPath+"/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, errors.Wrap(err, "[ProfileRepo.GetByID]")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "[ProfileRepo.GetByID]")
	}
	return &p, nil
}

func (r *ProfileRepo) GetByHandle(ctx context.Context, handle string) (*profiles.Profile, error) {
	query := url.Values{"username": {handle}, "limit": {"1"}}
	var list []*profiles.Profile
	if err := r.client.do(ctx, "profiles.get_by_handle", http.MethodGet, profilesPath, query, nil, &list); err != nil {
		return nil, errors.Wrap(err, "[ProfileRepo.GetByHandle]")
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(errs.ErrNotFound, "[ProfileRepo.GetByHandle] %q", handle)
	}
	if err := list[0].Validate(); err != nil {
		return nil, errors.Wrap(err, "[ProfileRepo.GetByHandle]")
	}
	return list[0], nil
}

func (r *ProfileRepo) List(ctx context.Context, offset, limit int) ([]*profiles.Profile, error) {
	query := url.Values{
		"offset": {strconv.Itoa(offset)},
		"order":  {"created_at.asc"},
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var list []*profiles.Profile
	if err := r.client.do(ctx, "profiles.list", http.MethodGet, profilesPath, query, nil, &list); err != nil {
		return nil, errors.Wrap(err, "[ProfileRepo.List]")
	}

	out := list[:0]
	for _, p := range list {
		// Malformed records are rejected at the boundary, not rendered.
		if err := p.Validate(); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *ProfileRepo) Insert(ctx context.Context, profile *profiles.Profile) error {
	if err := r.client.do(ctx, "profiles.insert", http.MethodPost, profilesPath, nil, profile, profile); err != nil {
		return errors.Wrap(err, "[ProfileRepo.Insert]")
	}
	return nil
}

func (r *ProfileRepo) SetAdmin(ctx context.Context, id string, admin bool) error {
	body := map[string]bool{"is_admin": admin}
	if err := r.client.do(ctx, "profiles.set_admin", http.MethodPatch, profilesPath+"/"+url.PathEscape(id), nil, body, nil); err != nil {
		return errors.Wrap(err, "[ProfileRepo.SetAdmin]")
	}
	return nil
}

func (r *ProfileRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	body := map[string]bool{"is_verified": verified}
	if err := r.client.do(ctx, "profiles.set_verified", http.MethodPatch, profilesPath+"/"+url.PathEscape(id), nil, body, nil); err != nil {
		return errors.Wrap(err, "[ProfileRepo.SetVerified]")
	}
	return nil
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, "profiles.delete", http.MethodDelete, profilesPath+"/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[ProfileRepo.Delete]")
	}
	return nil
}
