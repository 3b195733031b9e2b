package v1_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/trainchat/internal/auth"
	"github.com/xiaot623/trainchat/internal/config"
	"github.com/xiaot623/trainchat/internal/domain"
	"github.com/xiaot623/trainchat/internal/store"
	transporthttp "github.com/xiaot623/trainchat/internal/transport/http"
	"github.com/xiaot623/trainchat/internal/upstream"
	"github.com/xiaot623/trainchat/tests/helpers"
)

// fakeStream yields canned fragments, then failErr if set, then io.EOF.
type fakeStream struct {
	fragments []string
	failErr   error
	pos       int
	closed    bool
}

func (s *fakeStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.fragments) {
		fragment := s.fragments[s.pos]
		s.pos++
		return fragment, nil
	}
	if s.failErr != nil {
		return "", s.failErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeReplier hands out fakeStreams, or refuses to open one.
type fakeReplier struct {
	openErr   error
	fragments []string
	failErr   error
	last      *fakeStream
}

func (r *fakeReplier) StreamReply(ctx context.Context, userText, userID string) (upstream.Stream, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.last = &fakeStream{fragments: r.fragments, failErr: r.failErr}
	return r.last, nil
}

type testServer struct {
	echo   *echo.Echo
	store  *store.SQLiteStore
	tokens *auth.TokenService
}

func newTestServer(t *testing.T, up upstream.Replier) *testServer {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	tokens := auth.NewTokenService("test-secret", time.Hour)
	cfg := &config.Config{}
	return &testServer{
		echo:   transporthttp.NewServer(s, tokens, up, cfg),
		store:  s,
		tokens: tokens,
	}
}

// signIn seeds a user and returns it with a valid bearer token.
func (ts *testServer) signIn(t *testing.T, email string) (*domain.User, string) {
	t.Helper()
	user := helpers.NewTestUser(t, ts.store, email)
	token, err := ts.tokens.CreateToken(user)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	return user, token
}

// do performs a request against the server, attaching the bearer token when
// one is given.
func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors the JSON success/failure response shapes.
type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

// parseSSE splits a response body into the raw payloads of its data lines.
func parseSSE(body string) []string {
	var payloads []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			payloads = append(payloads, strings.TrimPrefix(line, "data: "))
		}
	}
	return payloads
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	rec := ts.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected status: %q", body["status"])
	}
}

func TestStatusWithoutProvider(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	rec := ts.do(http.MethodGet, "/api/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["difyConfigured"] != false {
		t.Fatalf("expected difyConfigured to be false, got %v", body["difyConfigured"])
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/sessions"},
		{http.MethodPost, "/api/sessions"},
	}
	for _, p := range paths {
		rec := ts.do(p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}
