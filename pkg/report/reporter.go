package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/backend"
	"github.com/teslashibe/motoscan/pkg/metrics"
)

// Outcome is the result of a single report attempt.
type Outcome string

const (
	Suppressed   Outcome = "suppressed"   // reported too recently, nothing sent
	Sent         Outcome = "sent"         // backend confirmed with 200/201
	Unauthorized Outcome = "unauthorized" // 401, credential cleared
	Failed       Outcome = "failed"       // network or other backend error, dropped
)

// Submitter sends a tag to the backend.
type Submitter interface {
	CreateTag(ctx context.Context, tok *oauth2.Token, tag backend.Tag) error
}

// Credentials supplies and revokes the bearer token.
type Credentials interface {
	Token(ctx context.Context) *oauth2.Token
	Invalidate()
}

// Sighting is a successfully reported marker.
type Sighting struct {
	ID     int       `json:"tag_id"`
	Code   string    `json:"code"`
	SentAt time.Time `json:"sent_at"`
}

// Options configures the tag payload.
type Options struct {
	VehicleID int64
	Status    string
}

// Reporter applies the per-tag limiter and submits tags.
type Reporter struct {
	limiter *Limiter
	sub     Submitter
	creds   Credentials
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	onSent []func(Sighting)
}

// New creates a reporter. m may be nil.
func New(l *Limiter, sub Submitter, creds Credentials, opts Options, m *metrics.Metrics) *Reporter {
	return &Reporter{
		limiter: l,
		sub:     sub,
		creds:   creds,
		opts:    opts,
		metrics: m,
		logger:  log.With("component", "reporter"),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

// OnSent registers a callback invoked after each confirmed submission.
func (r *Reporter) OnSent(fn func(Sighting)) {
	r.mu.Lock()
	r.onSent = append(r.onSent, fn)
	r.mu.Unlock()
}

// Limiter returns the underlying limiter.
func (r *Reporter) Limiter() *Limiter {
	return r.limiter
}

// Report submits marker id unless it was reported within the interval.
// Failures are logged and dropped; only a confirmed submission is recorded.
func (r *Reporter) Report(ctx context.Context, id int) Outcome {
	if !r.limiter.ShouldReport(id, r.now()) {
		r.metrics.Report(string(Suppressed))
		return Suppressed
	}

	tok := r.creds.Token(ctx)
	tag := backend.Tag{
		Code:      aruco.Code(id),
		Status:    r.opts.Status,
		VehicleID: r.opts.VehicleID,
	}

	err := r.sub.CreateTag(ctx, tok, tag)
	outcome := Sent
	switch {
	case err == nil:
		sentAt := r.now()
		r.limiter.RecordReport(id, sentAt)
		r.logger.Info("tag reported", "tag_id", id, "code", tag.Code)
		r.notify(Sighting{ID: id, Code: tag.Code, SentAt: sentAt})
	case backend.IsUnauthorized(err):
		outcome = Unauthorized
		r.creds.Invalidate()
		r.logger.Warn("tag rejected, credential cleared", "tag_id", id)
	default:
		outcome = Failed
		r.logger.Warn("tag report failed", "tag_id", id, "error", err)
	}

	r.metrics.Report(string(outcome))
	return outcome
}

func (r *Reporter) notify(s Sighting) {
	r.mu.RLock()
	fns := r.onSent
	r.mu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}
