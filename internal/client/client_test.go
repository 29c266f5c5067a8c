package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoginNormalizesJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	_, err := c.Login(context.Background(), "admin", "wrongpass")
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Kind != KindHTTP {
		t.Fatalf("expected http kind, got %s", apiErr.Kind)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Invalid credentials" {
		t.Fatalf("expected message from body, got %q", apiErr.Message)
	}
}

func TestErrorNormalizesFreeTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	_, err := c.ListAccounts(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Fatalf("expected free-text message, got %q", apiErr.Message)
	}
}

func TestErrorIgnoresHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><body>404</body></html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	_, err := c.Profile(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Message != "request failed with status 404" {
		t.Fatalf("expected fallback message, got %q", apiErr.Message)
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected IsStatus to match 404")
	}
}

func TestConnectionFailureKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New(srv.URL, 500*time.Millisecond)
	_, err := c.Profile(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Kind != KindConnection {
		t.Fatalf("expected connection kind, got %s", apiErr.Kind)
	}
	if apiErr.StatusCode != 0 {
		t.Fatalf("connection failures carry no status, got %d", apiErr.StatusCode)
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	_, err := c.Profile(context.Background())
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Kind != KindMalformed {
		t.Fatalf("expected malformed kind, got %s", apiErr.Kind)
	}
}

func TestCompleteLinkEscapesQueryParams(t *testing.T) {
	var code, state string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code = r.URL.Query().Get("code")
		state = r.URL.Query().Get("state")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Account linked successfully"})
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	if err := c.CompleteLink(context.Background(), "TG-abc/12+3=", "st&ate 1"); err != nil {
		t.Fatalf("complete link: %v", err)
	}
	if code != "TG-abc/12+3=" {
		t.Fatalf("server saw code %q", code)
	}
	if state != "st&ate 1" {
		t.Fatalf("server saw state %q", state)
	}
}

func TestSessionCookiePersistsAcrossCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "tok-1", Path: "/"})
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"user_id": 1, "username": "admin"})
		case "/profile":
			cookie, err := r.Cookie("token")
			if err != nil || cookie.Value != "tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token is missing!"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"user_id": 1, "username": "admin"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, 2*time.Second)
	if _, err := c.Login(context.Background(), "admin", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile after login: %v", err)
	}
	if user.Username != "admin" {
		t.Fatalf("expected admin, got %q", user.Username)
	}
}
