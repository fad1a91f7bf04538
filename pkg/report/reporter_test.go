package report

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslashibe/motoscan/pkg/backend"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeBackend records submissions and logins in order.
type fakeBackend struct {
	mu      sync.Mutex
	events  []string
	tags    []backend.Tag
	tokens  []string
	status  int           // response for CreateTag: 0 means 201
	err     error         // transport error for CreateTag
	latency time.Duration // clock advance during CreateTag
	clock   *fakeClock
}

func (f *fakeBackend) Login(ctx context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "login")
	return &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}, nil
}

func (f *fakeBackend) CreateTag(ctx context.Context, tok *oauth2.Token, tag backend.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "create:"+tag.Code)
	f.tags = append(f.tags, tag)
	if tok != nil {
		f.tokens = append(f.tokens, tok.AccessToken)
	} else {
		f.tokens = append(f.tokens, "")
	}
	if f.clock != nil && f.latency > 0 {
		f.clock.Advance(f.latency)
	}
	if f.err != nil {
		return f.err
	}
	if f.status != 0 && f.status != http.StatusCreated && f.status != http.StatusOK {
		return &backend.APIError{Op: "create_tag", StatusCode: f.status}
	}
	return nil
}

func (f *fakeBackend) Submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tags)
}

func (f *fakeBackend) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func newTestReporter(fb *fakeBackend, clock *fakeClock) (*Reporter, *backend.Session) {
	session := backend.NewSession(fb, 2*time.Second)
	session.SetClock(clock.Now)
	r := New(NewLimiter(2*time.Second), fb, session, Options{VehicleID: 1, Status: "DETECTADO"}, nil)
	r.SetClock(clock.Now)
	return r, session
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(2 * time.Second)
	base := time.Unix(100, 0)

	if !l.ShouldReport(7, base) {
		t.Error("never-reported tag should be reportable")
	}

	l.RecordReport(7, base)

	tests := []struct {
		name   string
		offset time.Duration
		expect bool
	}{
		{name: "same instant", offset: 0, expect: false},
		{name: "within interval", offset: 1999 * time.Millisecond, expect: false},
		{name: "exactly interval", offset: 2 * time.Second, expect: true},
		{name: "after interval", offset: 5 * time.Second, expect: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := l.ShouldReport(7, base.Add(tc.offset)); got != tc.expect {
				t.Errorf("ShouldReport(+%v) = %v, want %v", tc.offset, got, tc.expect)
			}
		})
	}

	if !l.ShouldReport(8, base) {
		t.Error("other tags are independent")
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestReportOncePerInterval(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{}
	r, _ := newTestReporter(fb, clock)
	ctx := context.Background()

	if got := r.Report(ctx, 7); got != Sent {
		t.Fatalf("first report = %s, want sent", got)
	}
	clock.Advance(500 * time.Millisecond)
	if got := r.Report(ctx, 7); got != Suppressed {
		t.Errorf("second report = %s, want suppressed", got)
	}
	if fb.Submissions() != 1 {
		t.Errorf("submissions = %d, want exactly 1", fb.Submissions())
	}

	clock.Advance(2 * time.Second)
	if got := r.Report(ctx, 7); got != Sent {
		t.Errorf("report after interval = %s, want sent", got)
	}
	if fb.Submissions() != 2 {
		t.Errorf("submissions = %d, want 2", fb.Submissions())
	}
}

func TestReportPayload(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{}
	r, _ := newTestReporter(fb, clock)

	r.Report(context.Background(), 42)

	want := backend.Tag{Code: "ARUCO-42", Status: "DETECTADO", VehicleID: 1}
	if fb.tags[0] != want {
		t.Errorf("tag = %+v, want %+v", fb.tags[0], want)
	}
	if fb.tokens[0] != "tok" {
		t.Errorf("token = %q, want tok", fb.tokens[0])
	}
}

func TestRecordedTimeIsSubmissionTime(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{clock: clock, latency: 700 * time.Millisecond}
	r, _ := newTestReporter(fb, clock)

	detectedAt := clock.Now()
	r.Report(context.Background(), 3)

	last, ok := r.Limiter().LastReport(3)
	if !ok {
		t.Fatal("tag 3 should be recorded")
	}
	if want := detectedAt.Add(700 * time.Millisecond); !last.Equal(want) {
		t.Errorf("recorded %v, want submission time %v", last, want)
	}
}

func TestUnauthorizedClearsCredentialAndRelogsIn(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{}
	r, session := newTestReporter(fb, clock)
	ctx := context.Background()

	fb.status = http.StatusUnauthorized
	if got := r.Report(ctx, 5); got != Unauthorized {
		t.Fatalf("report = %s, want unauthorized", got)
	}
	if session.Valid() {
		t.Error("401 should clear the credential")
	}
	if _, ok := r.Limiter().LastReport(5); ok {
		t.Error("rejected tag must not be marked as sent")
	}

	fb.status = http.StatusCreated
	if got := r.Report(ctx, 5); got != Sent {
		t.Fatalf("retry = %s, want sent", got)
	}

	want := []string{"login", "create:ARUCO-5", "login", "create:ARUCO-5"}
	got := fb.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFailuresAreDropped(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{err: errors.New("connection refused")}
	r, session := newTestReporter(fb, clock)
	ctx := context.Background()

	if got := r.Report(ctx, 9); got != Failed {
		t.Fatalf("report = %s, want failed", got)
	}
	if !session.Valid() {
		t.Error("network errors must not clear the credential")
	}
	if _, ok := r.Limiter().LastReport(9); ok {
		t.Error("failed tag must not be recorded")
	}

	fb.err = nil
	fb.status = http.StatusInternalServerError
	if got := r.Report(ctx, 9); got != Failed {
		t.Errorf("report = %s, want failed on 500", got)
	}
	if fb.Submissions() != 2 {
		t.Errorf("submissions = %d, want 2 (no internal retries)", fb.Submissions())
	}
}

func TestOnSent(t *testing.T) {
	clock := newFakeClock()
	fb := &fakeBackend{}
	r, _ := newTestReporter(fb, clock)

	var got []Sighting
	r.OnSent(func(s Sighting) { got = append(got, s) })

	r.Report(context.Background(), 1)
	r.Report(context.Background(), 1) // suppressed

	if len(got) != 1 {
		t.Fatalf("OnSent calls = %d, want 1", len(got))
	}
	if got[0].ID != 1 || got[0].Code != "ARUCO-1" || !got[0].SentAt.Equal(clock.Now()) {
		t.Errorf("sighting = %+v", got[0])
	}
}
