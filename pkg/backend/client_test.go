package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testConfig(url string) Config {
	return Config{
		BaseURL:    url,
		LoginPath:  "/api/login",
		CreatePath: "/api/aruco-tags/cadastrar",
		ListPath:   "/api/aruco-tags/listar",
		Email:      "admin@email.com",
		Password:   "secret",
		Timeout:    2 * time.Second,
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "admin@email.com" || body["senha"] != "secret" {
			t.Errorf("unexpected credentials: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tokenAcesso":"abc123"}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(testConfig(server.URL), server.Client())
	tok, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken != "abc123" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
	if tok.Type() != "Bearer" {
		t.Errorf("Type = %q, want Bearer", tok.Type())
	}
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "rejected",
			status: http.StatusForbidden,
			body:   `{"error":"bad credentials"}`,
			wantErr: func(err error) bool {
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
			},
		},
		{
			name:    "no token",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrNoToken) },
		},
		{
			name:    "garbage",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: func(err error) bool { return err != nil },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(testConfig(server.URL)).Login(context.Background())
			if !tc.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoginWithoutCredentials(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Password = ""
	if _, err := NewClient(cfg).Login(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}

func TestCreateTag(t *testing.T) {
	var gotAuth string
	var gotTag Tag
	status := http.StatusCreated

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotTag)
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	tag := Tag{Code: "ARUCO-7", Status: "DETECTADO", VehicleID: 1}

	t.Run("with token", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}
		if err := client.CreateTag(context.Background(), tok, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
		if gotAuth != "Bearer abc" {
			t.Errorf("Authorization = %q", gotAuth)
		}
		if gotTag != tag {
			t.Errorf("tag = %+v, want %+v", gotTag, tag)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		status = http.StatusOK
		if err := client.CreateTag(context.Background(), nil, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
		if gotAuth != "" {
			t.Errorf("Authorization should be empty, got %q", gotAuth)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		status = http.StatusUnauthorized
		err := client.CreateTag(context.Background(), nil, tag)
		if !IsUnauthorized(err) {
			t.Errorf("err = %v, want unauthorized", err)
		}
	})

	t.Run("accepted is not success", func(t *testing.T) {
		status = http.StatusAccepted
		err := client.CreateTag(context.Background(), nil, tag)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusAccepted {
			t.Errorf("err = %v, want APIError 202", err)
		}
	})
}

func TestListTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/aruco-tags/listar" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"id":1,"codigo":"ARUCO-1","status":"DETECTADO","idMoto":1},{"id":2,"codigo":"ARUCO-2","status":"DETECTADO","idMoto":3}]`))
	}))
	defer server.Close()

	tags, err := NewClient(testConfig(server.URL)).ListTags(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("len(tags) = %d, want 2", len(tags))
	}
	if tags[1].Code != "ARUCO-2" || tags[1].VehicleID != 3 {
		t.Errorf("tags[1] = %+v", tags[1])
	}
}

func TestAPIErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(long)
	}))
	defer server.Close()

	err := NewClient(testConfig(server.URL)).CreateTag(context.Background(), nil, Tag{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if len(apiErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(apiErr.Body), maxErrorBody)
	}
	if !apiErr.IsServerError() {
		t.Error("500 should be a server error")
	}
}
