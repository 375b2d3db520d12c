package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/posts"
	"github.com/codeshare/appcore/profiles"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// recordedRequest captures what the service saw, for assertions on the wire
// format.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	s.handler(w, r)
}

func (s *fakeService) last(t *testing.T) recordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func respondJSON(status int, payload interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func setupTestService(t *testing.T, handler http.HandlerFunc) (*fakeService, *Client) {
	t.Helper()

	svc := &fakeService{handler: handler}
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "test-api-key",
	})
	require.NoError(t, err)
	return svc, client
}

func sampleProfile(id string) profiles.Profile {
	return profiles.Profile{
		ID:        id,
		FullName:  "Alice Johnson",
		Handle:    "alice@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestRequestsCarryAPIKeyAndBearerToken(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusOK, sampleProfile("u1")))
	client.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "session-token"}))

	repo := NewProfileRepo(client)
	_, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)

	req := svc.last(t)
	require.Equal(t, "test-api-key", req.Header.Get("apikey"))
	require.Equal(t, "Bearer session-token", req.Header.Get("Authorization"))
	require.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestClearedTokenSourceSendsNoBearer(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusOK, sampleProfile("u1")))
	client.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "session-token"}))
	client.SetTokenSource(nil)

	_, err := NewProfileRepo(client).GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, svc.last(t).Header.Get("Authorization"))
}

func TestProfileGetByID(t *testing.T) {
	_, client := setupTestService(t, respondJSON(http.StatusOK, sampleProfile("u1")))

	profile, err := NewProfileRepo(client).GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", profile.ID)
	require.Equal(t, "alice@example.com", profile.Handle)
}

func TestProfileGetByIDNotFound(t *testing.T) {
	_, client := setupTestService(t, respondJSON(http.StatusNotFound, map[string]string{"error": "not found"}))

	_, err := NewProfileRepo(client).GetByID(context.Background(), "ghost")
	require.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestProfileGetByIDRejectsMalformedRecord(t *testing.T) {
	// A record without its handle must not pass the boundary.
	_, client := setupTestService(t, respondJSON(http.StatusOK, map[string]string{"id": "u1"}))

	_, err := NewProfileRepo(client).GetByID(context.Background(), "u1")
	require.True(t, errs.Is(err, errs.ErrMalformedRecord))
}

func TestProfileGetByHandle(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusOK, []profiles.Profile{sampleProfile("u1")}))

	profile, err := NewProfileRepo(client).GetByHandle(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", profile.ID)

	req := svc.last(t)
	require.Equal(t, "alice@example.com", req.Query.Get("username"))
	require.Equal(t, "1", req.Query.Get("limit"))
}

func TestProfileGetByHandleEmptyResult(t *testing.T) {
	_, client := setupTestService(t, respondJSON(http.StatusOK, []profiles.Profile{}))

	_, err := NewProfileRepo(client).GetByHandle(context.Background(), "ghost@example.com")
	require.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestProfileListSkipsMalformedRecords(t *testing.T) {
	payload := []map[string]interface{}{
		{"id": "u1", "full_name": "Alice Johnson", "username": "alice@example.com"},
		{"id": "", "username": ""}, // dropped at the boundary
		{"id": "u2", "full_name": "Bob Smith", "username": "bob@example.com"},
	}
	svc, client := setupTestService(t, respondJSON(http.StatusOK, payload))

	list, err := NewProfileRepo(client).List(context.Background(), 0, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)

	req := svc.last(t)
	require.Equal(t, "0", req.Query.Get("offset"))
	require.Equal(t, "50", req.Query.Get("limit"))
	require.Equal(t, "created_at.asc", req.Query.Get("order"))
}

func TestProfileSetAdminSendsPatch(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusNoContent, nil))

	require.NoError(t, NewProfileRepo(client).SetAdmin(context.Background(), "u1", true))

	req := svc.last(t)
	require.Equal(t, http.MethodPatch, req.Method)
	require.Equal(t, profilesPath+"/u1", req.Path)
	require.JSONEq(t, `{"is_admin": true}`, string(req.Body))
}

func TestProfileSetVerifiedSendsPatch(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusNoContent, nil))

	require.NoError(t, NewProfileRepo(client).SetVerified(context.Background(), "u1", false))

	req := svc.last(t)
	require.Equal(t, http.MethodPatch, req.Method)
	require.JSONEq(t, `{"is_verified": false}`, string(req.Body))
}

func TestProfileDelete(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusNoContent, nil))

	require.NoError(t, NewProfileRepo(client).Delete(context.Background(), "u1"))

	req := svc.last(t)
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, profilesPath+"/u1", req.Path)
}

func TestPostListRecentRequestsDescendingOrder(t *testing.T) {
	payload := []posts.Post{
		{ID: "p1", Title: "Newest", AuthorID: "u1", CreatedAt: time.Now()},
		{ID: "p2", Title: "Older", AuthorID: "u1", CreatedAt: time.Now().Add(-time.Hour)},
	}
	svc, client := setupTestService(t, respondJSON(http.StatusOK, payload))

	list, err := NewPostRepo(client).ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	req := svc.last(t)
	require.Equal(t, postsPath, req.Path)
	require.Equal(t, "created_at.desc", req.Query.Get("order"))
	require.Equal(t, "10", req.Query.Get("limit"))
}

func TestPostListByAuthor(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusOK, []posts.Post{}))

	_, err := NewPostRepo(client).ListByAuthor(context.Background(), "u1")
	require.NoError(t, err)

	req := svc.last(t)
	require.Equal(t, "u1", req.Query.Get("user_id"))
	require.Equal(t, "created_at.desc", req.Query.Get("order"))
}

func TestPostUpdateSendsEditableFieldsOnly(t *testing.T) {
	svc, client := setupTestService(t, respondJSON(http.StatusNoContent, nil))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, NewPostRepo(client).Update(context.Background(), &posts.Post{
		ID:        "p1",
		Title:     "After",
		Content:   "new body",
		Tags:      []string{"go"},
		AuthorID:  "u1",
		UpdatedAt: now,
	}))

	req := svc.last(t)
	require.Equal(t, http.MethodPatch, req.Method)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Equal(t, "After", body["title"])
	require.NotContains(t, body, "user_id")
	require.NotContains(t, body, "created_at")
}

func TestServiceErrorEnvelopeSurfaced(t *testing.T) {
	_, client := setupTestService(t, respondJSON(http.StatusInternalServerError, map[string]string{"error": "database unavailable"}))

	_, err := NewPostRepo(client).ListRecent(context.Background(), 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "database unavailable")
}

func TestWebsocketURL(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "https://api.example.com", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "wss://api.example.com/auth/v1/events?apikey=k", client.websocketURL("/auth/v1/events"))

	plain, err := NewClient(Config{BaseURL: "http://localhost:4000"})
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:4000/auth/v1/events", plain.websocketURL("/auth/v1/events"))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}
