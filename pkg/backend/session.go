package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslashibe/motoscan/internal/log"
)

// Loginer obtains a fresh bearer token.
type Loginer interface {
	Login(ctx context.Context) (*oauth2.Token, error)
}

// Session holds the process-wide optional credential. It logs in lazily,
// throttles repeated failed logins and forgets the token on Invalidate.
type Session struct {
	loginer Loginer
	retry   time.Duration
	now     func() time.Time
	logger  *slog.Logger

	// OnLogin, if set, is called after every login attempt.
	OnLogin func(ok bool)

	mu          sync.Mutex
	token       *oauth2.Token
	lastFailure time.Time
}

// NewSession creates a session. retry is the minimum gap between login
// attempts after a failed one.
func NewSession(l Loginer, retry time.Duration) *Session {
	return &Session{
		loginer: l,
		retry:   retry,
		now:     time.Now,
		logger:  log.With("component", "session"),
	}
}

// SetClock replaces the time source. Tests only.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Valid reports whether a usable token is held.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.Valid()
}

// Token returns the held token, logging in first when none is held and the
// retry throttle allows it. It returns nil when no credential is available.
func (s *Session) Token(ctx context.Context) *oauth2.Token {
	s.mu.Lock()
	if s.token.Valid() {
		tok := s.token
		s.mu.Unlock()
		return tok
	}
	throttled := !s.lastFailure.IsZero() && s.now().Sub(s.lastFailure) < s.retry
	s.mu.Unlock()

	if throttled {
		return nil
	}
	return s.login(ctx)
}

// Prime logs in if no token is held, ignoring the failure throttle.
func (s *Session) Prime(ctx context.Context) *oauth2.Token {
	if s.Valid() {
		return s.Token(ctx)
	}
	return s.login(ctx)
}

// Invalidate drops the held token. The next Token call logs in immediately.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.lastFailure = time.Time{}
	s.mu.Unlock()
}

func (s *Session) login(ctx context.Context) *oauth2.Token {
	tok, err := s.loginer.Login(ctx)

	s.mu.Lock()
	if err != nil {
		s.token = nil
		s.lastFailure = s.now()
	} else {
		s.token = tok
		s.lastFailure = time.Time{}
	}
	cb := s.OnLogin
	s.mu.Unlock()

	if cb != nil {
		cb(err == nil)
	}
	if err != nil {
		s.logger.Warn("backend login failed", "error", err)
		return nil
	}
	s.logger.Info("backend login ok")
	return tok
}
