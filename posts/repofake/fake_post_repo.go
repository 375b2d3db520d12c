package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/internal/utils"
	"github.com/codeshare/appcore/posts"
	"github.com/google/uuid"
)

var _ posts.Repo = (*FakePostRepo)(nil)

// FakePostRepo is an in-memory posts.Repo for tests and local development.
type FakePostRepo struct {
	posts map[string]*posts.Post
	lock  sync.RWMutex

	// FailNext makes the next mutation return this error, then clears.
	FailNext error
}

func NewFakePostRepo() *FakePostRepo {
	return &FakePostRepo{posts: make(map[string]*posts.Post)}
}

func (pr *FakePostRepo) takeFailure() error {
	err := pr.FailNext
	pr.FailNext = nil
	return err
}

func clone(p *posts.Post) *posts.Post {
	cp := *p
	cp.Tags = utils.CloneStrings(p.Tags)
	return &cp
}

func (pr *FakePostRepo) Insert(ctx context.Context, post *posts.Post) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	pr.posts[post.ID] = clone(post)
	return nil
}

func (pr *FakePostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	p, ok := pr.posts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clone(p), nil
}

func (pr *FakePostRepo) ListRecent(ctx context.Context, limit int) ([]*posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	all := pr.sortedDescLocked(func(*posts.Post) bool { return true })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (pr *FakePostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	return pr.sortedDescLocked(func(p *posts.Post) bool { return p.AuthorID == authorID }), nil
}

func (pr *FakePostRepo) Update(ctx context.Context, post *posts.Post) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	existing, ok := pr.posts[post.ID]
	if !ok {
		return errs.ErrNotFound
	}
	// AuthorID and CreatedAt are immutable after creation.
	existing.Title = post.Title
	existing.Content = post.Content
	existing.Tags = utils.CloneStrings(post.Tags)
	existing.UpdatedAt = post.UpdatedAt
	return nil
}

func (pr *FakePostRepo) Delete(ctx context.Context, id string) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if err := pr.takeFailure(); err != nil {
		return err
	}
	if _, ok := pr.posts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(pr.posts, id)
	return nil
}

func (pr *FakePostRepo) sortedDescLocked(keep func(*posts.Post) bool) []*posts.Post {
	out := make([]*posts.Post, 0, len(pr.posts))
	for _, p := range pr.posts {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
