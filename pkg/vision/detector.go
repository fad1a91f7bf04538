// Package vision is the OpenCV side of the detector: ArUco detection with
// tuned parameters, the annotated overlay, JPEG encoding, camera access and
// marker rendering.
package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/capture"
)

// ErrUnsupportedImage is returned when Process is given something other than
// a non-empty *gocv.Mat.
var ErrUnsupportedImage = errors.New("vision: unsupported or empty image")

// cornerRefineSubpix is cv::aruco::CORNER_REFINE_SUBPIX.
const cornerRefineSubpix = 1

var dictCodes = map[string]gocv.ArucoDictionaryCode{
	aruco.Dict6x6_250: gocv.ArucoDict6x6_250,
	aruco.Dict5x5_100: gocv.ArucoDict5x5_100,
	aruco.Dict4x4_50:  gocv.ArucoDict4x4_50,
}

// Params are the detector parameters, tuned for low light and sensor noise.
type Params struct {
	AdaptiveThreshWinSizeMin  int     `json:"adaptiveThreshWinSizeMin"`
	AdaptiveThreshWinSizeMax  int     `json:"adaptiveThreshWinSizeMax"`
	AdaptiveThreshWinSizeStep int     `json:"adaptiveThreshWinSizeStep"`
	AdaptiveThreshConstant    float64 `json:"adaptiveThreshConstant"`
	MinMarkerPerimeterRate    float64 `json:"minMarkerPerimeterRate"`
	MaxMarkerPerimeterRate    float64 `json:"maxMarkerPerimeterRate"`
	PolygonalApproxAccuracy   float64 `json:"polygonalApproxAccuracyRate"`
	MinCornerDistanceRate     float64 `json:"minCornerDistanceRate"`
	MinDistanceToBorder       int     `json:"minDistanceToBorder"`
	CornerRefinementMethod    int     `json:"cornerRefinementMethod"`
}

// TunedParams returns the parameter set the detector runs with.
func TunedParams() Params {
	return Params{
		AdaptiveThreshWinSizeMin:  3,
		AdaptiveThreshWinSizeMax:  53,
		AdaptiveThreshWinSizeStep: 4,
		AdaptiveThreshConstant:    7,
		MinMarkerPerimeterRate:    0.02,
		MaxMarkerPerimeterRate:    4.0,
		PolygonalApproxAccuracy:   0.03,
		MinCornerDistanceRate:     0.05,
		MinDistanceToBorder:       1,
		CornerRefinementMethod:    cornerRefineSubpix,
	}
}

func (p Params) build() gocv.ArucoDetectorParameters {
	ap := gocv.NewArucoDetectorParameters()
	ap.SetAdaptiveThreshWinSizeMin(p.AdaptiveThreshWinSizeMin)
	ap.SetAdaptiveThreshWinSizeMax(p.AdaptiveThreshWinSizeMax)
	ap.SetAdaptiveThreshWinSizeStep(p.AdaptiveThreshWinSizeStep)
	ap.SetAdaptiveThreshConstant(p.AdaptiveThreshConstant)
	ap.SetMinMarkerPerimeterRate(p.MinMarkerPerimeterRate)
	ap.SetMaxMarkerPerimeterRate(p.MaxMarkerPerimeterRate)
	ap.SetPolygonalApproxAccuracyRate(p.PolygonalApproxAccuracy)
	ap.SetMinCornerDistanceRate(p.MinCornerDistanceRate)
	ap.SetMinDistanceToBorder(p.MinDistanceToBorder)
	ap.SetCornerRefinementMethod(p.CornerRefinementMethod)
	return ap
}

// Options configure a Detector.
type Options struct {
	Dictionary    string
	MarkerSizeM   float64
	FocalLengthPx float64

	// Quality returns the JPEG quality for the next frame. Defaults to 80.
	Quality func() int

	// APIStatus reports whether a backend credential is held, for the banner.
	APIStatus func() bool
}

// Detector finds ArUco markers in camera frames. It implements
// capture.Processor.
type Detector struct {
	opts   Options
	params Params
	logger *slog.Logger

	mu       sync.Mutex
	dict     string
	detector gocv.ArucoDetector
	clahe    gocv.CLAHE
}

// NewDetector builds a detector. Unknown dictionary names fall back to the
// default dictionary.
func NewDetector(opts Options) *Detector {
	if opts.Quality == nil {
		opts.Quality = func() int { return 80 }
	}
	d := &Detector{
		opts:   opts,
		params: TunedParams(),
		logger: log.With("component", "detector"),
		clahe:  gocv.NewCLAHEWithParams(3.0, image.Pt(8, 8)),
	}
	name := aruco.ResolveDictionary(opts.Dictionary)
	if name != opts.Dictionary && opts.Dictionary != "" {
		d.logger.Warn("unknown dictionary, using default", "requested", opts.Dictionary, "dict", name)
	}
	d.dict = name
	d.detector = d.newArucoDetector(name)
	return d
}

func (d *Detector) newArucoDetector(name string) gocv.ArucoDetector {
	dict := gocv.GetPredefinedDictionary(dictCodes[name])
	return gocv.NewArucoDetectorWithParams(dict, d.params.build())
}

// Dictionary returns the active dictionary name.
func (d *Detector) Dictionary() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dict
}

// SetDictionary switches the dictionary used for subsequent frames.
func (d *Detector) SetDictionary(name string) error {
	if !aruco.IsDictionary(name) {
		return fmt.Errorf("unknown dictionary %q", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if name == d.dict {
		return nil
	}
	old := d.detector
	d.detector = d.newArucoDetector(name)
	d.dict = name
	old.Close()

	d.logger.Info("dictionary changed", "dict", name)
	return nil
}

// Params returns the detector parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Process detects markers in img, draws the overlay onto it and returns the
// encoded JPEG with the detected markers.
func (d *Detector) Process(img capture.Image) (capture.Result, error) {
	frame, ok := img.(*gocv.Mat)
	if !ok || frame.Empty() {
		return capture.Result{}, ErrUnsupportedImage
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	}

	d.mu.Lock()
	d.preprocess(&gray)
	corners, ids, _ := d.detector.DetectMarkers(gray)
	dict := d.dict
	d.mu.Unlock()

	markers := make([]capture.Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) {
			break
		}
		markers = append(markers, capture.Marker{
			ID:        id,
			Center:    center(corners[i]),
			DistanceM: estimateDistance(corners[i], d.opts.FocalLengthPx, d.opts.MarkerSizeM),
		})
	}

	apiOn := d.opts.APIStatus != nil && d.opts.APIStatus()
	drawOverlay(frame, corners, ids, markers, bannerText(len(markers), dict, apiOn))

	jpeg, err := EncodeJPEG(*frame, d.opts.Quality())
	if err != nil {
		return capture.Result{}, err
	}
	return capture.Result{JPEG: jpeg, Markers: markers}, nil
}

// preprocess boosts local contrast and removes sensor noise in place.
// Callers hold d.mu.
func (d *Detector) preprocess(gray *gocv.Mat) {
	eq := gocv.NewMat()
	defer eq.Close()
	d.clahe.Apply(*gray, &eq)
	gocv.GaussianBlur(eq, gray, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
}

// Close releases the OpenCV objects.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clahe.Close()
	d.detector.Close()
	return nil
}

// EncodeJPEG encodes img at the given quality, clamped to 1..100.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	quality = min(max(quality, 1), 100)
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory released by Close.
	return append([]byte(nil), buf.GetBytes()...), nil
}
