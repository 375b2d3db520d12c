// Package posts holds the user-authored post record and its storage
// contract against the remote data service.
package posts

import (
	"context"
	"strings"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/pkg/errors"
)

// Post is a single user-authored entry. AuthorID is immutable after
// creation; a post is owned by exactly one profile.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	AuthorID  string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NormalizeTags trims, drops empties, and deduplicates case-insensitively,
// keeping the first spelling seen. The tag set is unordered on the wire but
// a stable order keeps rendering deterministic.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate rejects records the data service should never have produced.
func (p *Post) Validate() error {
	if p == nil {
		return errors.Wrap(errs.ErrMalformedRecord, "[Post.Validate] nil post")
	}
	if strings.TrimSpace(p.ID) == "" {
		return errors.Wrap(errs.ErrMalformedRecord, "[Post.Validate] missing id")
	}
	if strings.TrimSpace(p.Title) == "" {
		return errors.Wrap(errs.ErrMalformedRecord, "[Post.Validate] missing title")
	}
	if strings.TrimSpace(p.AuthorID) == "" {
		return errors.Wrap(errs.ErrMalformedRecord, "[Post.Validate] missing author")
	}
	return nil
}

// Repo is the post half of the remote data service. ListRecent and
// ListByAuthor return posts ordered by creation time descending.
// Implementations must be safe for concurrent use.
type Repo interface {
	GetByID(ctx context.Context, id string) (*Post, error)
	ListRecent(ctx context.Context, limit int) ([]*Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*Post, error)
	Insert(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
}
