package synapse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListUsers(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/_synapse/admin/v1/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"users":[{"name":"@alice:example.com","displayname":"Alice","admin":true,"deactivated":false}],"total":1}`))
	}))
	defer s.Close()

	users, err := NewClient(s.URL+"/_synapse/admin/v1/", "secret", "example.com").ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 1 || users[0].Name != "@alice:example.com" || !users[0].Admin {
		t.Fatalf("unexpected users: %+v", users)
	}
}

func TestCreateUser(t *testing.T) {
	var body map[string]any
	var path string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"@bob:example.com"}`))
	}))
	defer s.Close()

	c := NewClient(s.URL, "secret", "example.com")
	if err := c.CreateUser(context.Background(), NewUser{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if path != "/users/@bob:example.com" {
		t.Fatalf("unexpected path %q", path)
	}
	if body["displayname"] != "bob" || body["password"] != "pw" || body["admin"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestClientErrors(t *testing.T) {
	if _, err := NewClient("http://synapse", "", "x").ListUsers(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errcode":"M_FORBIDDEN"}`, http.StatusForbidden)
	}))
	defer s.Close()

	c := NewClient(s.URL, "secret", "example.com")
	if _, err := c.ListUsers(context.Background()); err == nil {
		t.Fatal("expected error for forbidden response")
	}
	if err := c.CreateUser(context.Background(), NewUser{}); err == nil {
		t.Fatal("expected error for empty username")
	}
}
