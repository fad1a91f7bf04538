package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/teslashibe/motoscan/pkg/capture"
)

var (
	green = color.RGBA{G: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

const (
	fontFace  = gocv.FontHersheySimplex
	fontScale = 0.6
	fontThick = 2
)

func bannerText(n int, dict string, apiOn bool) string {
	api := "LOGIN?"
	if apiOn {
		api = "ON"
	}
	return fmt.Sprintf("ArUco: %d | Dict: %s | API: %s", n, dict, api)
}

func markerLabel(m capture.Marker) string {
	if m.DistanceM <= 0 {
		return fmt.Sprintf("ID: %d", m.ID)
	}
	return fmt.Sprintf("ID: %d %.2fm", m.ID, m.DistanceM)
}

func center(corners []gocv.Point2f) [2]float64 {
	if len(corners) == 0 {
		return [2]float64{}
	}
	var x, y float64
	for _, p := range corners {
		x += float64(p.X)
		y += float64(p.Y)
	}
	n := float64(len(corners))
	return [2]float64{x / n, y / n}
}

// sidePixels is the mean edge length of the marker quad.
func sidePixels(corners []gocv.Point2f) float64 {
	if len(corners) < 2 {
		return 0
	}
	var total float64
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		total += math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	}
	return total / float64(len(corners))
}

// estimateDistance applies the pinhole model: Z = fx * size / side_px.
// It returns 0 when the inputs cannot give an estimate.
func estimateDistance(corners []gocv.Point2f, fx, sizeM float64) float64 {
	side := sidePixels(corners)
	if side <= 0 || fx <= 0 || sizeM <= 0 {
		return 0
	}
	return fx * sizeM / side
}

func drawOverlay(frame *gocv.Mat, corners [][]gocv.Point2f, ids []int, markers []capture.Marker, banner string) {
	if len(markers) > 0 {
		gocv.ArucoDrawDetectedMarkers(*frame, corners, ids, gocv.NewScalar(0, 255, 0, 0))
	}

	for i, m := range markers {
		org := image.Pt(10, 30)
		if len(corners[i]) > 0 {
			org = image.Pt(int(corners[i][0].X), int(corners[i][0].Y)-10)
		}
		gocv.PutText(frame, markerLabel(m), org, fontFace, fontScale, green, fontThick)
	}

	size := gocv.GetTextSize(banner, fontFace, fontScale, fontThick)
	gocv.Rectangle(frame, image.Rect(5, 5, 15+size.X, 30+size.Y), black, -1)
	gocv.PutText(frame, banner, image.Pt(10, 30), fontFace, fontScale, white, fontThick)
}
