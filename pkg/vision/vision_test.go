package vision

import (
	"image"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/capture"
)

func square(x, y, side float32) []gocv.Point2f {
	return []gocv.Point2f{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

func TestEstimateDistance(t *testing.T) {
	tests := []struct {
		name    string
		corners []gocv.Point2f
		fx      float64
		size    float64
		want    float64
	}{
		{name: "100px marker", corners: square(10, 10, 100), fx: 1000, size: 0.05, want: 0.5},
		{name: "50px marker", corners: square(0, 0, 50), fx: 1000, size: 0.05, want: 1.0},
		{name: "no focal length", corners: square(0, 0, 50), fx: 0, size: 0.05, want: 0},
		{name: "degenerate", corners: nil, fx: 1000, size: 0.05, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := estimateDistance(tc.corners, tc.fx, tc.size)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("distance = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCenter(t *testing.T) {
	c := center(square(10, 20, 40))
	if c != [2]float64{30, 40} {
		t.Errorf("center = %v", c)
	}
}

func TestBannerText(t *testing.T) {
	if got := bannerText(2, aruco.Dict6x6_250, true); got != "ArUco: 2 | Dict: DICT_6X6_250 | API: ON" {
		t.Errorf("banner = %q", got)
	}
	if got := bannerText(0, aruco.Dict4x4_50, false); got != "ArUco: 0 | Dict: DICT_4X4_50 | API: LOGIN?" {
		t.Errorf("banner = %q", got)
	}
}

func TestMarkerLabel(t *testing.T) {
	if got := markerLabel(capture.Marker{ID: 7}); got != "ID: 7" {
		t.Errorf("label = %q", got)
	}
	if got := markerLabel(capture.Marker{ID: 7, DistanceM: 0.456}); got != "ID: 7 0.46m" {
		t.Errorf("label = %q", got)
	}
}

func TestDictionaryCodesCoverSupportedNames(t *testing.T) {
	for _, name := range aruco.Dictionaries() {
		if _, ok := dictCodes[name]; !ok {
			t.Errorf("no OpenCV dictionary for %s", name)
		}
	}
}

func TestTunedParams(t *testing.T) {
	p := TunedParams()
	if p.AdaptiveThreshWinSizeMin != 3 || p.AdaptiveThreshWinSizeMax != 53 || p.AdaptiveThreshWinSizeStep != 4 {
		t.Errorf("window = %d..%d step %d", p.AdaptiveThreshWinSizeMin, p.AdaptiveThreshWinSizeMax, p.AdaptiveThreshWinSizeStep)
	}
	if p.CornerRefinementMethod != cornerRefineSubpix {
		t.Errorf("corner refinement = %d", p.CornerRefinementMethod)
	}
}

func TestDetectRenderedMarker(t *testing.T) {
	render, err := MarkerRenderer(aruco.Dict6x6_250)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MarkerRenderer("DICT_ARUCO_ORIGINAL"); err == nil {
		t.Error("unsupported dictionary should be rejected")
	}

	img, err := render(23, 200)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("marker size = %v", b)
	}

	// Place the marker on a white canvas; detection needs a quiet zone.
	marker, err := gocv.ImageGrayToMatGray(img.(*image.Gray))
	if err != nil {
		t.Fatal(err)
	}
	defer marker.Close()

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 400, 400, gocv.MatTypeCV8UC1)
	defer canvas.Close()
	roi := canvas.Region(image.Rect(100, 100, 300, 300))
	marker.CopyTo(&roi)
	roi.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	gocv.CvtColor(canvas, &frame, gocv.ColorGrayToBGR)

	d := NewDetector(Options{Dictionary: "nonsense", MarkerSizeM: 0.05, FocalLengthPx: 1000})
	defer d.Close()
	if d.Dictionary() != aruco.DefaultDictionary {
		t.Fatalf("dictionary = %s, want fallback to default", d.Dictionary())
	}

	res, err := d.Process(&frame)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Markers) != 1 || res.Markers[0].ID != 23 {
		t.Fatalf("markers = %+v, want id 23", res.Markers)
	}
	if res.Markers[0].DistanceM <= 0 {
		t.Error("expected a distance estimate")
	}
	if len(res.JPEG) < 4 || res.JPEG[0] != 0xff || res.JPEG[1] != 0xd8 {
		t.Error("output is not a JPEG")
	}

	if err := d.SetDictionary("DICT_7X7_1000"); err == nil {
		t.Error("unsupported dictionary should be rejected")
	}
	if err := d.SetDictionary(aruco.Dict4x4_50); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Process(&frame); err != nil {
		t.Fatalf("Process after switch: %v", err)
	}
}
