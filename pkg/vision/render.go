package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/motoscan/pkg/aruco"
)

// MarkerRenderer returns a function that renders marker id as a side x side
// grayscale image from the named dictionary.
func MarkerRenderer(dict string) (func(id, side int) (image.Image, error), error) {
	if !aruco.IsDictionary(dict) {
		return nil, fmt.Errorf("unknown dictionary %q", dict)
	}
	code := dictCodes[dict]

	return func(id, side int) (image.Image, error) {
		mat := gocv.NewMat()
		defer mat.Close()

		gocv.ArucoGenerateImageMarker(code, id, side, mat, 1)
		if mat.Empty() {
			return nil, fmt.Errorf("render marker %d: empty image", id)
		}
		return mat.ToImage()
	}, nil
}
