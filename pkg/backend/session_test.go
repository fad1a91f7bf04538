package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type fakeLoginer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeLoginer) Login(ctx context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("backend down")
	}
	return &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}, nil
}

func (f *fakeLoginer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSessionCachesToken(t *testing.T) {
	l := &fakeLoginer{}
	s := NewSession(l, time.Second)
	ctx := context.Background()

	if s.Valid() {
		t.Error("new session should not be valid")
	}
	if tok := s.Token(ctx); tok == nil || tok.AccessToken != "tok" {
		t.Fatalf("Token = %v", tok)
	}
	s.Token(ctx)
	s.Token(ctx)

	if l.Calls() != 1 {
		t.Errorf("login calls = %d, want 1", l.Calls())
	}
	if !s.Valid() {
		t.Error("session should be valid after login")
	}
}

func TestSessionThrottlesFailedLogins(t *testing.T) {
	l := &fakeLoginer{fail: true}
	s := NewSession(l, 2*time.Second)
	now := time.Unix(1000, 0)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if tok := s.Token(ctx); tok != nil {
		t.Fatal("failed login should yield nil token")
	}
	s.Token(ctx)
	if l.Calls() != 1 {
		t.Errorf("login calls = %d, want 1 within retry window", l.Calls())
	}

	now = now.Add(2 * time.Second)
	s.Token(ctx)
	if l.Calls() != 2 {
		t.Errorf("login calls = %d, want 2 after retry window", l.Calls())
	}
}

func TestSessionInvalidateForcesRelogin(t *testing.T) {
	l := &fakeLoginer{}
	s := NewSession(l, time.Hour)
	ctx := context.Background()

	s.Token(ctx)
	s.Invalidate()
	if s.Valid() {
		t.Error("session should be invalid after Invalidate")
	}

	if tok := s.Token(ctx); tok == nil {
		t.Fatal("expected relogin after Invalidate")
	}
	if l.Calls() != 2 {
		t.Errorf("login calls = %d, want 2", l.Calls())
	}
}

func TestSessionPrimeIgnoresThrottle(t *testing.T) {
	l := &fakeLoginer{fail: true}
	s := NewSession(l, time.Hour)
	ctx := context.Background()

	s.Token(ctx)
	s.Prime(ctx)
	if l.Calls() != 2 {
		t.Errorf("login calls = %d, want 2", l.Calls())
	}
}

func TestSessionOnLogin(t *testing.T) {
	l := &fakeLoginer{}
	s := NewSession(l, time.Second)

	var results []bool
	s.OnLogin = func(ok bool) { results = append(results, ok) }

	s.Token(context.Background())
	l.fail = true
	s.Invalidate()
	s.Token(context.Background())

	if len(results) != 2 || !results[0] || results[1] {
		t.Errorf("OnLogin results = %v, want [true false]", results)
	}
}
