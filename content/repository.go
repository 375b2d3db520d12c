// Package content is the role-sensitive post repository: it fetches posts
// joined with author snapshots, filters them, and mediates mutations
// against the remote data service. Mutations are confirmation-gated: the
// in-memory listing changes only after the service confirms, never
// optimistically.
package content

import (
	"context"
	"sync"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/internal/metrics"
	"github.com/codeshare/appcore/internal/utils"
	"github.com/codeshare/appcore/posts"
	"github.com/codeshare/appcore/profiles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// defaultAvatarURL stands in when an author has no avatar set.
const defaultAvatarURL = "https://via.placeholder.com/150"

// AuthorSnapshot is the author's public fields captured at fetch time. It
// is not kept live: a later profile edit does not change already-fetched
// listings until they are refetched.
type AuthorSnapshot struct {
	ID        string
	Name      string
	AvatarURL string
	Verified  bool
}

// Entry is a post joined with its author snapshot, ready to render.
type Entry struct {
	Post   posts.Post
	Author AuthorSnapshot
}

// Repository mediates post reads and mutations. The in-memory listing is
// written only here (and via RoleActions delegating here) and read by
// rendering logic; all writes are serialized through the internal lock.
type Repository struct {
	posts     posts.Repo
	profiles  profiles.Repo
	policy    *bluemonday.Policy
	collector *metrics.Collector
	nowTime   func() time.Time

	mu      sync.Mutex
	listing []Entry
}

// Option configures the Repository.
type Option func(*Repository)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Repository) {
		r.collector = c
	}
}

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repository) {
		r.nowTime = nowFunc
	}
}

// NewRepository builds a Repository over the post and profile halves of the
// data service. Post bodies are sanitized with a UGC policy at this
// boundary, so nothing downstream renders markup the service smuggled in.
func NewRepository(postRepo posts.Repo, profileRepo profiles.Repo, options ...Option) *Repository {
	r := &Repository{
		posts:    postRepo,
		profiles: profileRepo,
		policy:   bluemonday.UGCPolicy(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ListRecent fetches posts ordered by creation time descending, joined with
// a snapshot of each author's public fields. A post whose author cannot be
// resolved is unrenderable and is excluded rather than shown with a partial
// author. The result replaces the in-memory listing.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	r.collector.RecordServiceRequest("posts.list_recent")
	fetched, err := r.posts.ListRecent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[Repository.ListRecent] ListRecent")
	}

	entries := make([]Entry, 0, len(fetched))
	for _, p := range fetched {
		if err := p.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("component", "content.Repository").
				Msg("dropping malformed post record")
			continue
		}

		author, err := r.profiles.GetByID(ctx, p.AuthorID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("component", "content.Repository").
				Str("post_id", p.ID).
				Str("author_id", p.AuthorID).
				Msg("excluding post with unresolvable author")
			continue
		}

		entries = append(entries, r.buildEntry(p, author))
	}

	r.mu.Lock()
	r.listing = make([]Entry, len(entries))
	copy(r.listing, entries)
	r.mu.Unlock()

	return entries, nil
}

// Listing returns a copy of the current in-memory listing.
func (r *Repository) Listing() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.listing))
	copy(out, r.listing)
	return out
}

// Search returns the entries whose title, content, or any tag contains the
// query, case-insensitively; matching one field suffices. An empty query
// returns the input unchanged.
func Search(query string, entries []Entry) []Entry {
	if query == "" {
		return entries
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if matches(query, e) {
			out = append(out, e)
		}
	}
	return out
}

// Remove issues a delete against the data service and removes the post from
// the in-memory listing only on confirmed success. On failure the listing
// is untouched. Removing an id already absent from the listing is a no-op,
// so concurrent removes resolving in either order stay consistent.
//
// Exposure of the delete affordance is advisory only (owner or admin); true
// enforcement belongs to the data service.
func (r *Repository) Remove(ctx context.Context, postID string) error {
	r.collector.RecordServiceRequest("posts.delete")
	if err := r.posts.Delete(ctx, postID); err != nil {
		r.collector.RecordServiceFailure("posts.delete", 0)
		return errors.Wrapf(errs.ErrMutationFailed, "[Repository.Remove] delete %q: %v", postID, err)
	}

	r.mu.Lock()
	for i, e := range r.listing {
		if e.Post.ID == postID {
			r.listing = append(r.listing[:i], r.listing[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	log.Info().
		Str("component", "content.Repository").
		Str("post_id", postID).
		Msg("post removed")
	return nil
}

// Create inserts a new post owned by author and, on confirmed success,
// prepends it to the in-memory listing.
func (r *Repository) Create(ctx context.Context, author *profiles.Profile, title, body string, tags []string) (*Entry, error) {
	if author == nil {
		return nil, errors.New("[Repository.Create] author required")
	}

	post := &posts.Post{
		Title:     title,
		Content:   body,
		Tags:      posts.NormalizeTags(tags),
		AuthorID:  author.ID,
		CreatedAt: r.nowTime(),
	}

	r.collector.RecordServiceRequest("posts.insert")
	if err := r.posts.Insert(ctx, post); err != nil {
		r.collector.RecordServiceFailure("posts.insert", 0)
		return nil, errors.Wrapf(errs.ErrMutationFailed, "[Repository.Create] insert: %v", err)
	}

	entry := r.buildEntry(post, author)
	r.mu.Lock()
	r.listing = append([]Entry{entry}, r.listing...)
	r.mu.Unlock()

	return &entry, nil
}

// Update edits a post's title, content, and tags. The listing reflects the
// new values only after the service confirms.
func (r *Repository) Update(ctx context.Context, postID, title, body string, tags []string) error {
	normalized := posts.NormalizeTags(tags)
	updated := &posts.Post{
		ID:        postID,
		Title:     title,
		Content:   body,
		Tags:      normalized,
		UpdatedAt: r.nowTime(),
	}

	r.collector.RecordServiceRequest("posts.update")
	if err := r.posts.Update(ctx, updated); err != nil {
		r.collector.RecordServiceFailure("posts.update", 0)
		return errors.Wrapf(errs.ErrMutationFailed, "[Repository.Update] update %q: %v", postID, err)
	}

	sanitized := r.policy.Sanitize(body)
	r.mu.Lock()
	for i := range r.listing {
		if r.listing[i].Post.ID == postID {
			r.listing[i].Post.Title = title
			r.listing[i].Post.Content = sanitized
			r.listing[i].Post.Tags = utils.CloneStrings(normalized)
			r.listing[i].Post.UpdatedAt = updated.UpdatedAt
			break
		}
	}
	r.mu.Unlock()
	return nil
}

// ListByAuthor returns one author's posts, newest first, sanitized. Used by
// the profile page; does not touch the dashboard listing.
func (r *Repository) ListByAuthor(ctx context.Context, authorID string) ([]posts.Post, error) {
	r.collector.RecordServiceRequest("posts.list_by_author")
	fetched, err := r.posts.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, errors.Wrap(err, "[Repository.ListByAuthor] ListByAuthor")
	}

	out := make([]posts.Post, 0, len(fetched))
	for _, p := range fetched {
		if err := p.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("component", "content.Repository").
				Msg("dropping malformed post record")
			continue
		}
		cp := *p
		cp.Content = r.policy.Sanitize(cp.Content)
		cp.Tags = utils.CloneStrings(p.Tags)
		out = append(out, cp)
	}
	return out, nil
}

// CanModify reports whether the delete/edit affordances should be exposed
// to the viewer for this entry: the owning profile or any admin. This is
// advisory role gating, not a security boundary: the data service is the
// only place these rules can actually be enforced, and the service this
// client was written against does not demonstrate that enforcement.
func CanModify(viewer *profiles.Profile, e Entry) bool {
	if viewer == nil {
		return false
	}
	return viewer.IsAdmin || viewer.ID == e.Post.AuthorID
}

func (r *Repository) buildEntry(p *posts.Post, author *profiles.Profile) Entry {
	avatar := author.AvatarURL
	if avatar == "" {
		avatar = defaultAvatarURL
	}
	cp := *p
	cp.Content = r.policy.Sanitize(cp.Content)
	cp.Tags = utils.CloneStrings(p.Tags)
	return Entry{
		Post: cp,
		Author: AuthorSnapshot{
			ID:        author.ID,
			Name:      author.FullName,
			AvatarURL: avatar,
			Verified:  author.IsVerified,
		},
	}
}
