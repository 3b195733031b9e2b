package v1_test

import (
	"net/http"
	"testing"
)

func TestLoginCreatesAccount(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	rec := ts.do(http.MethodPost, "/api/auth/login", "", `{"email": "Alice@Example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "注册成功" {
		t.Fatalf("expected first login to register, got %+v", env)
	}
	if env.Data["token"] == "" {
		t.Fatalf("missing token in response")
	}

	user, ok := env.Data["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing user in response: %+v", env.Data)
	}
	// Email is normalized and the display name comes from the mailbox part.
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected email: %v", user["email"])
	}
	if user["name"] != "Alice" {
		t.Fatalf("unexpected name: %v", user["name"])
	}
}

func TestLoginExistingAccount(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	ts.do(http.MethodPost, "/api/auth/login", "", `{"email": "alice@example.com"}`)
	rec := ts.do(http.MethodPost, "/api/auth/login", "", `{"email": "alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Message != "登录成功" {
		t.Fatalf("expected second login to sign in, got %q", env.Message)
	}
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	cases := []struct {
		body string
		want string
	}{
		{`{"email": ""}`, "邮箱地址是必需的"},
		{`{}`, "邮箱地址是必需的"},
		{`{"email": "not-an-email"}`, "请输入有效的邮箱地址"},
		{`{"email": "a b@example.com"}`, "请输入有效的邮箱地址"},
		{`{"email": "alice@nodot"}`, "请输入有效的邮箱地址"},
	}
	for _, tc := range cases {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", tc.body, rec.Code)
			continue
		}
		env := decodeEnvelope(t, rec)
		if env.Error != tc.want {
			t.Errorf("body %s: expected %q, got %q", tc.body, tc.want, env.Error)
		}
	}
}

func TestLoginThenMe(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	rec := ts.do(http.MethodPost, "/api/auth/login", "", `{"email": "alice@example.com"}`)
	env := decodeEnvelope(t, rec)
	token, _ := env.Data["token"].(string)
	if token == "" {
		t.Fatalf("missing token")
	}

	rec = ts.do(http.MethodGet, "/api/auth/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env = decodeEnvelope(t, rec)
	user, _ := env.Data["user"].(map[string]interface{})
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, &fakeReplier{})

	rec := ts.do(http.MethodPost, "/api/auth/logout", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "退出登录成功" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
