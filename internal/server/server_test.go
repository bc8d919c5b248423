package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"movielist/internal/app"
	"movielist/internal/cache"
	"movielist/internal/store"
	"movielist/pkg/domain"
	"movielist/pkg/poster"
)

type stubSearcher struct {
	page domain.SearchPage
	err  error
}

func (s *stubSearcher) Search(context.Context, map[string]string) (domain.SearchPage, error) {
	return s.page, s.err
}

type testEnv struct {
	srv    *httptest.Server
	store  *store.MemoryStore
	views  *cache.ViewCache
	search *stubSearcher
}

func newTestEnv(t *testing.T, searchLimit int) *testEnv {
	t.Helper()
	redisSrv := miniredis.RunT(t)

	dataStore := store.NewMemoryStore()
	views := cache.NewViewCache(redisSrv.Addr(), "", 0)
	search := &stubSearcher{page: domain.SearchPage{
		Page: 1,
		Results: []domain.SearchResult{
			{ID: 77, Title: "One", PosterPath: "/p.jpg"},
		},
		TotalPages:   1,
		TotalResults: 1,
	}}
	application, err := app.New(app.Config{
		Store:    dataStore,
		Sessions: store.NewJWTSessionStore("test-secret", time.Minute),
		Search:   search,
		Views:    views,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	s, err := New(Config{
		App:                      application,
		Views:                    views,
		RedisAddr:                redisSrv.Addr(),
		SearchRateLimitPerMinute: searchLimit,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: dataStore, views: views, search: search}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "s3cret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	body := decode[struct {
		Token string `json:"token"`
	}](t, resp)
	if body.Token == "" {
		t.Fatal("signup returned empty token")
	}
	return body.Token
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, 100)
	for _, path := range []string{"/api/search?query=x", "/api/movies", "/api/tags"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestSignupLoginLogout(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "u@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "u@example.com", "password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "u@example.com", "password": "again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodPost, "/api/auth/logout", token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
}

func TestSearchNormalizesPosters(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")

	resp := env.do(t, http.MethodGet, "/api/search?query=one", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	page := decode[domain.SearchPage](t, resp)
	if len(page.Results) != 1 || page.Results[0].ID != 77 {
		t.Fatalf("unexpected page: %+v", page)
	}
	got := page.Results[0].PosterPath
	if !strings.HasPrefix(got, poster.BaseURL) || !strings.HasSuffix(got, "/p.jpg") {
		t.Fatalf("poster = %q, want normalized URL", got)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")
	if resp := env.do(t, http.MethodGet, "/api/search", token, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty query status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchRateLimited(t *testing.T) {
	env := newTestEnv(t, 1)
	token := env.signup(t, "u@example.com")

	if resp := env.do(t, http.MethodGet, "/api/search?query=one", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first search status = %d", resp.StatusCode)
	}
	resp := env.do(t, http.MethodGet, "/api/search?query=one", token, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second search status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("429 response missing Retry-After")
	}
}

func TestAddListDeleteFlow(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")

	resp := env.do(t, http.MethodPost, "/api/movies", token, map[string]any{
		"id": "77", "title": "One", "posterPath": "/p.jpg",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/movies", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	movies := decode[[]domain.Movie](t, resp)
	if len(movies) != 1 || movies[0].ID != "77" {
		t.Fatalf("list = %+v", movies)
	}

	// A second read is served from the view cache without another store hit.
	if resp := env.do(t, http.MethodGet, "/api/movies", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("cached list status = %d", resp.StatusCode)
	}
	if calls := env.store.ListMovieCalls(); calls != 1 {
		t.Fatalf("store list calls = %d, want 1", calls)
	}

	// Duplicate identifier conflicts, and the catalog stays unchanged.
	resp = env.do(t, http.MethodPost, "/api/movies", token, map[string]any{
		"id": "77", "title": "One Again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add status = %d, want 409", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodDelete, "/api/movies/77", token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/movies/77", token, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", resp.StatusCode)
	}
}

func TestWriteInvalidatesListView(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")

	add := func(id int) {
		resp := env.do(t, http.MethodPost, "/api/movies", token, map[string]any{
			"id": fmt.Sprint(id), "title": fmt.Sprintf("Movie %d", id),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add %d status = %d", id, resp.StatusCode)
		}
	}
	list := func() []domain.Movie {
		resp := env.do(t, http.MethodGet, "/api/movies", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list status = %d", resp.StatusCode)
		}
		return decode[[]domain.Movie](t, resp)
	}

	add(1)
	if got := list(); len(got) != 1 {
		t.Fatalf("after first add: %d movies", len(got))
	}
	// The write drops the cached view, so the next read sees the new row.
	add(2)
	if got := list(); len(got) != 2 {
		t.Fatalf("after second add: %d movies, want 2", len(got))
	}
}

func TestTagsAndFavorites(t *testing.T) {
	env := newTestEnv(t, 100)
	token := env.signup(t, "u@example.com")

	resp := env.do(t, http.MethodPost, "/api/movies", token, map[string]any{
		"id": "42", "title": "Inception",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/movies/42/tags", token, map[string]string{"name": "Sci-Fi"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("tag status = %d", resp.StatusCode)
	}
	tag := decode[domain.Tag](t, resp)
	if tag.Name != "sci-fi" {
		t.Fatalf("tag name = %q, want lowercased", tag.Name)
	}

	resp = env.do(t, http.MethodGet, "/api/tags", token, nil)
	tags := decode[struct {
		Items []domain.Tag `json:"items"`
		Count int          `json:"count"`
	}](t, resp)
	if tags.Count != 1 {
		t.Fatalf("tags = %+v", tags)
	}

	if resp := env.do(t, http.MethodPost, "/api/movies/42/favorite", token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("favorite status = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/users/me/movies", token, nil)
	favorites := decode[struct {
		Items []domain.Movie `json:"items"`
		Count int            `json:"count"`
	}](t, resp)
	if favorites.Count != 1 || favorites.Items[0].ID != "42" {
		t.Fatalf("favorites = %+v", favorites)
	}
}

func TestAdminOnlyMirror(t *testing.T) {
	env := newTestEnv(t, 100)
	adminToken := env.signup(t, "admin@example.com")
	userToken := env.signup(t, "user@example.com")

	resp := env.do(t, http.MethodPost, "/api/admin/posters/mirror", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", resp.StatusCode)
	}
	// Mirror storage is not configured in tests, so the admin gets 404.
	resp = env.do(t, http.MethodPost, "/api/admin/posters/mirror", adminToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("admin without mirror status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, 100)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
