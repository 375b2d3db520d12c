package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/codeshare/appcore/posts"
	"github.com/pkg/errors"
)

const postsPath = "/rest/v1/posts"

var _ posts.Repo = (*PostRepo)(nil)

// PostRepo implements posts.Repo against the remote service's record
// endpoints. Listings come back ordered by creation time descending; the
// ordering is requested explicitly rather than assumed.
type PostRepo struct {
	client *Client
}

// NewPostRepo builds the post half of the data service boundary.
func NewPostRepo(client *Client) *PostRepo {
	return &PostRepo{client: client}
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	var p posts.Post
	if err := r.client.do(ctx, "posts.get", http.MethodGet, postsPath+"/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, errors.Wrap(err, "[PostRepo.GetByID]")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "[PostRepo.GetByID]")
	}
	return &p, nil
}

func (r *PostRepo) ListRecent(ctx context.Context, limit int) ([]*posts.Post, error) {
	query := url.Values{"order": {"created_at.desc"}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var list []*posts.Post
	if err := r.client.do(ctx, "posts.list_recent", http.MethodGet, postsPath, query, nil, &list); err != nil {
		return nil, errors.Wrap(err, "[PostRepo.ListRecent]")
	}
	return list, nil
}

func (r *PostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*posts.Post, error) {
	query := url.Values{
		"user_id": {authorID},
		"order":   {"created_at.desc"},
	}

	var list []*posts.Post
	if err := r.client.do(ctx, "posts.list_by_author", http.MethodGet, postsPath, query, nil, &list); err != nil {
		return nil, errors.Wrap(err, "[PostRepo.ListByAuthor]")
	}
	return list, nil
}

func (r *PostRepo) Insert(ctx context.Context, post *posts.Post) error {
	if err := r.client.do(ctx, "posts.insert", http.MethodPost, postsPath, nil, post, post); err != nil {
		return errors.Wrap(err, "[PostRepo.Insert]")
	}
	return nil
}

func (r *PostRepo) Update(ctx context.Context, post *posts.Post) error {
	body := map[string]interface{}{
		"title":      post.Title,
		"content":    post.Content,
		"tags":       post.Tags,
		"updated_at": post.UpdatedAt,
	}
	if err := r.client.do(ctx, "posts.update", http.MethodPatch, postsPath+"/"+url.PathEscape(post.ID), nil, body, nil); err != nil {
		return errors.Wrap(err, "[PostRepo.Update]")
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, "posts.delete", http.MethodDelete, postsPath+"/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return errors.Wrap(err, "[PostRepo.Delete]")
	}
	return nil
}
