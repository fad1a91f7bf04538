// Package capture runs the camera loop: read a frame, detect markers,
// publish the annotated frame and report each marker to the backend.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/metrics"
	"github.com/teslashibe/motoscan/pkg/report"
)

// Image is a decoded camera frame. *gocv.Mat satisfies it.
type Image interface {
	Rows() int
	Cols() int
	Channels() int
	Close() error
}

// Device is an open camera.
type Device interface {
	Read() (Image, error)
	Close() error
}

// Opener opens camera cameraID.
type Opener func(ctx context.Context, cameraID int) (Device, error)

// Result is the output of processing one frame.
type Result struct {
	JPEG    []byte
	Markers []Marker
}

// Processor detects markers, draws the overlay and encodes the frame.
type Processor interface {
	Process(img Image) (Result, error)
	Dictionary() string
	SetDictionary(name string) error
}

// Reporter submits a detected marker id.
type Reporter interface {
	Report(ctx context.Context, id int) report.Outcome
}

// Primer obtains a backend credential ahead of the first report.
type Primer interface {
	Prime(ctx context.Context) *oauth2.Token
}

// State is the capture lifecycle state.
type State string

const (
	Stopped State = "STOPPED"
	Running State = "RUNNING"
)

// Options select the camera and dictionary for a run.
type Options struct {
	CameraID   *int   `json:"camera_id,omitempty"`
	Dictionary string `json:"aruco_dict,omitempty"`
}

// Config holds loop timings.
type Config struct {
	CameraID       int
	ReadRetryDelay time.Duration
	LoopDelay      time.Duration
	LogEvery       int
}

// Deps are the collaborators of a Service. Reporter, Primer and Metrics
// may be nil.
type Deps struct {
	Open      Opener
	Processor Processor
	Reporter  Reporter
	Primer    Primer
	Store     *Store
	Metrics   *metrics.Metrics
}

// Status is a point-in-time view of the service.
type Status struct {
	Running     bool   `json:"running"`
	State       State  `json:"state"`
	HasFrame    bool   `json:"has_frame"`
	CameraID    int    `json:"camera_id"`
	Dictionary  string `json:"dict"`
	ThreadAlive bool   `json:"thread_alive"`
	RunID       string `json:"run_id,omitempty"`
	Frames      uint64 `json:"frames"`
	LastError   string `json:"last_error,omitempty"`
}

// Service owns the capture goroutine. At most one run is active.
type Service struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	cameraID int
	runID    string
	frames   uint64
	lastErr  string
	cancel   context.CancelFunc
	done     chan struct{}

	obsMu     sync.RWMutex
	observers []func(Status)
}

// NewService creates a stopped service.
func NewService(cfg Config, deps Deps) *Service {
	if deps.Store == nil {
		deps.Store = NewStore()
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}
	return &Service{
		cfg:      cfg,
		deps:     deps,
		logger:   log.With("component", "capture"),
		state:    Stopped,
		cameraID: cfg.CameraID,
	}
}

// Store returns the frame store.
func (s *Service) Store() *Store {
	return s.deps.Store
}

// Processor returns the frame processor.
func (s *Service) Processor() Processor {
	return s.deps.Processor
}

// OnStateChange registers a callback invoked when a run starts or ends.
func (s *Service) OnStateChange(fn func(Status)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// Start launches a run. When a run is already active it returns false without
// error and ignores opts. If the previous run is still shutting down, Start
// waits for it.
func (s *Service) Start(opts Options) (bool, error) {
	for {
		s.mu.Lock()
		if s.state == Running {
			s.mu.Unlock()
			return false, nil
		}
		if s.done != nil {
			select {
			case <-s.done:
			default:
				done := s.done
				s.mu.Unlock()
				<-done
				continue
			}
		}
		break
	}

	// Options only apply to a new run; an active run is left untouched.
	if opts.Dictionary != "" {
		if !aruco.IsDictionary(opts.Dictionary) {
			s.mu.Unlock()
			return false, fmt.Errorf("unknown dictionary %q", opts.Dictionary)
		}
		if err := s.deps.Processor.SetDictionary(opts.Dictionary); err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	if opts.CameraID != nil {
		s.cameraID = *opts.CameraID
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.state = Running
	s.runID = uuid.NewString()
	s.frames = 0
	s.lastErr = ""
	s.cancel = cancel
	s.done = make(chan struct{})

	cameraID, runID, done := s.cameraID, s.runID, s.done
	s.mu.Unlock()

	s.deps.Metrics.SetCaptureRunning(true)
	s.logger.Info("capture starting", "camera_id", cameraID, "run_id", runID, "dict", s.deps.Processor.Dictionary())
	s.notify()

	go s.run(ctx, cameraID, done)
	return true, nil
}

// Stop cancels the active run. It does not wait for the goroutine to exit;
// use Wait for that.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.logger.Info("capture stop requested")
}

// Wait blocks until the current run, if any, has released the camera.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the current status.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := Status{
		Running:   s.state == Running,
		State:     s.state,
		CameraID:  s.cameraID,
		RunID:     s.runID,
		Frames:    s.frames,
		LastError: s.lastErr,
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			st.ThreadAlive = true
		}
	}
	s.mu.Unlock()

	st.HasFrame = s.deps.Store.HasFrame()
	st.Dictionary = s.deps.Processor.Dictionary()
	return st
}

func (s *Service) run(ctx context.Context, cameraID int, done chan struct{}) {
	logger := s.logger.With("camera_id", cameraID)

	defer func() {
		s.deps.Store.Clear()
		s.mu.Lock()
		s.state = Stopped
		s.cancel = nil
		s.mu.Unlock()
		close(done)

		s.deps.Metrics.SetCaptureRunning(false)
		logger.Info("capture stopped")
		s.notify()
	}()

	dev, err := s.deps.Open(ctx, cameraID)
	if err != nil {
		s.fail(fmt.Errorf("open camera %d: %w", cameraID, err))
		return
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("camera close failed", "error", err)
		}
	}()

	if s.deps.Primer != nil {
		s.deps.Primer.Prime(ctx)
	}

	logger.Info("capture running")
	s.loop(ctx, dev, logger)
}

func (s *Service) loop(ctx context.Context, dev Device, logger *slog.Logger) {
	var readFailures int
	for ctx.Err() == nil {
		img, err := dev.Read()
		if err != nil {
			readFailures++
			s.deps.Metrics.ReadError()
			if readFailures == 1 || readFailures%100 == 0 {
				logger.Warn("frame read failed", "error", err, "consecutive", readFailures)
			}
			if !sleep(ctx, s.cfg.ReadRetryDelay) {
				return
			}
			continue
		}
		readFailures = 0

		frame := Frame{
			Width:      img.Cols(),
			Height:     img.Rows(),
			Channels:   img.Channels(),
			CapturedAt: time.Now(),
		}
		res, err := s.deps.Processor.Process(img)
		img.Close()
		if err != nil {
			s.deps.Metrics.ProcessError()
			logger.Warn("frame processing failed", "error", err)
			if !sleep(ctx, s.cfg.LoopDelay) {
				return
			}
			continue
		}

		frame.JPEG = res.JPEG
		frame.Markers = res.Markers
		s.deps.Store.Put(frame)
		s.deps.Metrics.FrameProcessed(len(res.Markers))

		s.mu.Lock()
		s.frames++
		n := s.frames
		s.mu.Unlock()

		if s.deps.Reporter != nil {
			for _, m := range res.Markers {
				s.deps.Reporter.Report(ctx, m.ID)
			}
		}

		if n%uint64(s.cfg.LogEvery) == 0 {
			logger.Info("capture progress", "frames", n, "markers", len(res.Markers))
		}

		if !sleep(ctx, s.cfg.LoopDelay) {
			return
		}
	}
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.logger.Error("capture failed", "error", err)
}

func (s *Service) notify() {
	st := s.Status()
	s.obsMu.RLock()
	fns := s.observers
	s.obsMu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}

// sleep waits d or until ctx is done. It reports whether the loop should go on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
