package markers

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// textImage renders s in basicfont and scales it by factor, so labels stay
// legible on print-size tiles without shipping a TTF.
func textImage(s string, factor int) *image.RGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()
	if w < 1 {
		w = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	if factor <= 1 {
		return small
	}
	big := image.NewRGBA(image.Rect(0, 0, w*factor, h*factor))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)
	return big
}

// drawCentered pastes txt centered horizontally in area at vertical center.
func drawCentered(dst draw.Image, area image.Rectangle, txt image.Image) {
	b := txt.Bounds()
	x := area.Min.X + (area.Dx()-b.Dx())/2
	y := area.Min.Y + (area.Dy()-b.Dy())/2
	draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), txt, b.Min, draw.Src)
}

// WithLabel returns img on a white canvas with a labelH strip below it
// carrying text.
func WithLabel(img image.Image, text string, labelH int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+labelH))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	if labelH > 0 {
		factor := max(1, labelH/(2*basicfont.Face7x13.Metrics().Height.Ceil()))
		strip := image.Rect(0, b.Dy(), b.Dx(), b.Dy()+labelH)
		drawCentered(out, strip, textImage(text, factor))
	}
	return out
}

// scaleInto resamples src into r of dst.
func scaleInto(dst draw.Image, r image.Rectangle, src image.Image) {
	xdraw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Src, nil)
}
