// Package profiles holds the application-level identity record and its
// storage contract. A Profile is created by the identity service at
// registration; the client core reads it for role gating and mutates the
// role flags only through admin actions.
package profiles

import (
	"context"
	"strings"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/pkg/errors"
)

// Profile is the record associated with a session's subject.
type Profile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Handle     string    `json:"username"` // unique; the wire name predates the rename
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsAdmin    bool      `json:"is_admin"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate rejects records the data service should never have produced.
// Records arrive over the wire loosely typed, so the boundary parses and
// validates instead of propagating missing fields.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.Wrap(errs.ErrMalformedRecord, "[Profile.Validate] nil profile")
	}
	if strings.TrimSpace(p.ID) == "" {
		return errors.Wrap(errs.ErrMalformedRecord, "[Profile.Validate] missing id")
	}
	if strings.TrimSpace(p.Handle) == "" {
		return errors.Wrap(errs.ErrMalformedRecord, "[Profile.Validate] missing handle")
	}
	return nil
}

// Repo is the profile half of the remote data service. Implementations must
// be safe for concurrent use.
type Repo interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByHandle(ctx context.Context, handle string) (*Profile, error)
	List(ctx context.Context, offset, limit int) ([]*Profile, error)
	Insert(ctx context.Context, profile *Profile) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
}
