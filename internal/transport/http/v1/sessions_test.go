package v1_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/xiaot623/trainchat/internal/domain"
)

func TestCreateAndGetSession(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	_, token := ts.signIn(t, "alice@example.com")

	rec := ts.do(http.MethodPost, "/api/sessions", token, `{"title": "春运购票"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	session, ok := env.Data["session"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing session in response: %+v", env.Data)
	}
	sessionID, _ := session["id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session id: %+v", session)
	}

	rec = ts.do(http.MethodGet, "/api/sessions/"+sessionID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env = decodeEnvelope(t, rec)
	got, _ := env.Data["session"].(map[string]interface{})
	if got["title"] != "春运购票" {
		t.Fatalf("unexpected title: %v", got["title"])
	}
	if env.Data["messageCount"] != float64(0) {
		t.Fatalf("expected an empty transcript, got %v", env.Data["messageCount"])
	}
}

func TestCreateSessionRequiresTitle(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	_, token := ts.signIn(t, "alice@example.com")

	for _, body := range []string{`{"title": ""}`, `{"title": "  "}`, `{}`} {
		rec := ts.do(http.MethodPost, "/api/sessions", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestGetSessionValidation(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	_, token := ts.signIn(t, "alice@example.com")

	rec := ts.do(http.MethodGet, "/api/sessions/not-a-uuid", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed id, got %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/api/sessions/"+uuid.New().String(), token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown id, got %d", rec.Code)
	}
}

func TestSessionOwnershipIsolation(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	alice, aliceToken := ts.signIn(t, "alice@example.com")
	_, bobToken := ts.signIn(t, "bob@example.com")

	conv, err := ts.store.CreateForOwner(context.Background(), alice.UserID, "alice's trip")
	if err != nil {
		t.Fatalf("CreateForOwner failed: %v", err)
	}

	// Another user cannot read, rename or delete it.
	if rec := ts.do(http.MethodGet, "/api/sessions/"+conv.ConversationID, bobToken, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on foreign read, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPatch, "/api/sessions/"+conv.ConversationID, bobToken, `{"title": "mine now"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on foreign rename, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, "/api/sessions/"+conv.ConversationID, bobToken, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on foreign delete, got %d", rec.Code)
	}

	// And it never shows up in the other user's list.
	rec := ts.do(http.MethodGet, "/api/sessions", bobToken, "")
	env := decodeEnvelope(t, rec)
	if env.Data["total"] != float64(0) {
		t.Fatalf("expected an empty list for bob, got %v", env.Data["total"])
	}

	rec = ts.do(http.MethodGet, "/api/sessions", aliceToken, "")
	env = decodeEnvelope(t, rec)
	if env.Data["total"] != float64(1) {
		t.Fatalf("expected one session for alice, got %v", env.Data["total"])
	}
}

func TestUpdateSessionTitle(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	alice, token := ts.signIn(t, "alice@example.com")

	conv, err := ts.store.CreateForOwner(context.Background(), alice.UserID, "old title")
	if err != nil {
		t.Fatalf("CreateForOwner failed: %v", err)
	}

	rec := ts.do(http.MethodPatch, "/api/sessions/"+conv.ConversationID, token, `{"title": "new title"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := ts.store.FindOwned(context.Background(), conv.ConversationID, alice.UserID)
	if err != nil || got == nil {
		t.Fatalf("FindOwned failed: %v", err)
	}
	if got.Title != "new title" {
		t.Fatalf("title was not updated: %q", got.Title)
	}

	rec = ts.do(http.MethodPatch, "/api/sessions/"+conv.ConversationID, token, `{"title": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty title, got %d", rec.Code)
	}
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	alice, token := ts.signIn(t, "alice@example.com")

	conv, err := ts.store.CreateForOwner(context.Background(), alice.UserID, "doomed")
	if err != nil {
		t.Fatalf("CreateForOwner failed: %v", err)
	}
	if _, err := ts.store.AppendMessage(context.Background(), conv.ConversationID, domain.RoleAssistant, "reply"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	rec := ts.do(http.MethodDelete, "/api/sessions/"+conv.ConversationID, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/sessions/"+conv.ConversationID, token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestListSessionsOrderAndPreview(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})
	alice, token := ts.signIn(t, "alice@example.com")

	if _, err := ts.store.CreateForOwner(context.Background(), alice.UserID, "first trip"); err != nil {
		t.Fatalf("CreateForOwner failed: %v", err)
	}

	rec := ts.do(http.MethodGet, "/api/sessions", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	sessions, ok := env.Data["sessions"].([]interface{})
	if !ok || len(sessions) != 1 {
		t.Fatalf("expected one session, got %+v", env.Data["sessions"])
	}
	first, _ := sessions[0].(map[string]interface{})
	if first["last_message"] != "first trip" {
		t.Fatalf("unexpected preview: %v", first["last_message"])
	}
	if first["message_count"] != float64(1) {
		t.Fatalf("unexpected message count: %v", first["message_count"])
	}
}
