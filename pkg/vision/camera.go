package vision

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"gocv.io/x/gocv"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/camera"
	"github.com/teslashibe/motoscan/pkg/capture"
)

// ErrEmptyFrame is returned by Read when the camera delivers no frame.
var ErrEmptyFrame = errors.New("vision: empty frame")

// backends lists the capture APIs to try, most stable first. DirectShow
// avoids enumeration hangs seen with MSMF on Windows.
func backends() []gocv.VideoCaptureAPI {
	if runtime.GOOS == "windows" {
		return []gocv.VideoCaptureAPI{gocv.VideoCaptureDshow, gocv.VideoCaptureMSMF, gocv.VideoCaptureAny}
	}
	return []gocv.VideoCaptureAPI{gocv.VideoCaptureAny}
}

func openCapture(ctx context.Context, id int) (*gocv.VideoCapture, error) {
	var lastErr error
	for _, api := range backends() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vc, err := gocv.VideoCaptureDeviceWithAPI(id, api)
		if err != nil {
			lastErr = err
			continue
		}
		if vc.IsOpened() {
			return vc, nil
		}
		vc.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("device not opened")
	}
	return nil, fmt.Errorf("camera %d: %w", id, lastErr)
}

type device struct {
	vc *gocv.VideoCapture
}

// Read returns the next frame as a *gocv.Mat. The caller closes it.
func (d *device) Read() (capture.Image, error) {
	mat := gocv.NewMat()
	if ok := d.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return &mat, nil
}

func (d *device) Close() error {
	return d.vc.Close()
}

// Opener returns a capture.Opener that opens OpenCV cameras with the settings
// current at open time.
func Opener(settings func() camera.Config) capture.Opener {
	return func(ctx context.Context, id int) (capture.Device, error) {
		vc, err := openCapture(ctx, id)
		if err != nil {
			return nil, err
		}

		cfg := settings()
		// Drivers ignore what they cannot honour.
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
		if cfg.AutoExposure > 0 {
			vc.Set(gocv.VideoCaptureAutoExposure, cfg.AutoExposure)
		}

		log.Info("camera opened", "camera_id", id,
			"width", vc.Get(gocv.VideoCaptureFrameWidth),
			"height", vc.Get(gocv.VideoCaptureFrameHeight),
			"fps", vc.Get(gocv.VideoCaptureFPS))
		return &device{vc: vc}, nil
	}
}

// ProbeCameras opens indices 0..limit-1 (limit clamped to 1..20) without reading
// frames and reports those that opened. Every device is released.
func ProbeCameras(ctx context.Context, limit int) []camera.Info {
	limit = camera.ClampProbe(limit)
	var found []camera.Info
	for i := 0; i < limit; i++ {
		vc, err := openCapture(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		vc.Close()
		found = append(found, camera.Detected(i))
	}
	return found
}
