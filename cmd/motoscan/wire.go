package main

import (
	"fmt"

	"github.com/teslashibe/motoscan/internal/config"
	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/backend"
	"github.com/teslashibe/motoscan/pkg/camera"
	"github.com/teslashibe/motoscan/pkg/capture"
	"github.com/teslashibe/motoscan/pkg/metrics"
	"github.com/teslashibe/motoscan/pkg/report"
	"github.com/teslashibe/motoscan/pkg/vision"
)

// detector bundles everything between the camera and the backend.
type detector struct {
	metrics  *metrics.Metrics
	camera   *camera.Manager
	session  *backend.Session
	limiter  *report.Limiter
	reporter *report.Reporter
	vision   *vision.Detector
	capture  *capture.Service
}

func backendConfig(c *config.Config) backend.Config {
	return backend.Config{
		BaseURL:    c.Backend.BaseURL,
		LoginPath:  c.Backend.LoginPath,
		CreatePath: c.Backend.CreatePath,
		ListPath:   c.Backend.ListPath,
		Email:      c.Backend.Email,
		Password:   c.Backend.Password,
		Timeout:    c.Backend.Timeout,
	}
}

func newDetector(c *config.Config) (*detector, error) {
	m := metrics.New()

	camCfg := camera.DefaultConfig()
	camCfg.Quality = c.Capture.JPEGQuality
	cam, err := camera.NewManagerWith(camCfg)
	if err != nil {
		return nil, fmt.Errorf("camera config: %w", err)
	}

	client := backend.NewClient(backendConfig(c))
	session := backend.NewSession(client, c.Capture.LoginRetry)
	session.OnLogin = m.Login

	limiter := report.NewLimiter(c.Capture.ReportInterval)
	rep := report.New(limiter, client, session, report.Options{
		VehicleID: c.Backend.VehicleID,
		Status:    c.Backend.TagStatus,
	}, m)

	det := vision.NewDetector(vision.Options{
		Dictionary:    c.Capture.Dictionary,
		MarkerSizeM:   c.Capture.MarkerSizeM,
		FocalLengthPx: c.Capture.FocalLengthPx,
		Quality:       cam.Quality,
		APIStatus:     session.Valid,
	})

	svc := capture.NewService(capture.Config{
		CameraID:       c.Capture.CameraID,
		ReadRetryDelay: c.Capture.ReadRetryDelay,
		LoopDelay:      c.Capture.LoopDelay,
		LogEvery:       c.Capture.LogEvery,
	}, capture.Deps{
		Open:      vision.Opener(cam.GetConfig),
		Processor: det,
		Reporter:  rep,
		Primer:    session,
		Metrics:   m,
	})

	log.Info("detector ready",
		"backend", client.BaseURL(),
		"camera_id", c.Capture.CameraID,
		"dict", det.Dictionary(),
		"report_interval", c.Capture.ReportInterval,
	)

	return &detector{
		metrics:  m,
		camera:   cam,
		session:  session,
		limiter:  limiter,
		reporter: rep,
		vision:   det,
		capture:  svc,
	}, nil
}

// close stops capture, waits for the camera to be released and frees the
// OpenCV objects.
func (d *detector) close() {
	d.capture.Stop()
	d.capture.Wait()
	if err := d.vision.Close(); err != nil {
		log.Warn("detector close", "error", err)
	}
}
