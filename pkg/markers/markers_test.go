package markers

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"testing"
)

func TestPageLayout(t *testing.T) {
	l := PageLayout(20, 4, 80)

	if l.Rows != 5 {
		t.Errorf("rows = %d, want 5", l.Rows)
	}
	// width bound: (2480-200-150)/4 = 532; height bound: (3508-200-200)/5 = 621
	if l.TileSize != 432 || l.TileHeight != 512 {
		t.Errorf("tile = %dx%d, want 432x512", l.TileSize, l.TileHeight)
	}

	tests := []struct {
		i    int
		want image.Point
	}{
		{0, image.Pt(100, 250)},
		{3, image.Pt(100+3*482, 250)},
		{4, image.Pt(100, 250+562)},
		{19, image.Pt(100+3*482, 250+4*562)},
	}
	for _, tc := range tests {
		if got := l.Position(tc.i); got != tc.want {
			t.Errorf("Position(%d) = %v, want %v", tc.i, got, tc.want)
		}
	}

	last := l.Rect(19)
	if last.Max.X > PageWidth || last.Max.Y > PageHeight {
		t.Errorf("last tile %v falls off the page", last)
	}
}

func TestWithLabel(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 400, 400))
	out := WithLabel(src, "ARUCO-7", 80)

	if b := out.Bounds(); b.Dx() != 400 || b.Dy() != 480 {
		t.Fatalf("bounds = %v, want 400x480", b)
	}

	// The strip must contain dark label pixels on white.
	dark := 0
	for y := 400; y < 480; y++ {
		for x := 0; x < 400; x++ {
			if r, _, _, _ := out.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("label strip has no text")
	}
}

func TestQRImage(t *testing.T) {
	img, err := QRImage("ARUCO-12", 400)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Errorf("qr bounds = %v", b)
	}
}

func solidRender(id, side int) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = uint8(id)
	}
	return img, nil
}

func TestRunWritesTilesAndPages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.StartID, cfg.EndID = 1, 6
	cfg.Size = 64
	cfg.Kinds = []Kind{KindAruco, KindQR}

	g, err := New(cfg, solidRender)
	if err != nil {
		t.Fatal(err)
	}
	g.SetProgressWriter(io.Discard)

	sum, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Files) != 12 {
		t.Errorf("files = %d, want 12", len(sum.Files))
	}
	if len(sum.Pages) != 2 || len(sum.Skipped) != 0 {
		t.Errorf("pages = %v skipped = %v", sum.Pages, sum.Skipped)
	}

	tile, err := loadPNG(g.ArucoFile(3))
	if err != nil {
		t.Fatal(err)
	}
	if b := tile.Bounds(); b.Dx() != 64 || b.Dy() != 64+80 {
		t.Errorf("tile bounds = %v", b)
	}
	if got := color.GrayModel.Convert(tile.At(10, 10)).(color.Gray).Y; got != 3 {
		t.Errorf("tile pixel = %d, want rendered marker", got)
	}

	page, err := loadPNG(g.PageFile(KindAruco))
	if err != nil {
		t.Fatal(err)
	}
	if b := page.Bounds(); b.Dx() != PageWidth || b.Dy() != PageHeight {
		t.Errorf("page bounds = %v", b)
	}
}

func TestBuildPageSkipsMissingTiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.StartID, cfg.EndID = 1, 3
	cfg.Size = 32
	cfg.Kinds = nil

	g, err := New(cfg, solidRender)
	if err != nil {
		t.Fatal(err)
	}
	g.SetProgressWriter(io.Discard)
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(g.ArucoFile(2)); err != nil {
		t.Fatal(err)
	}
	path, skipped, err := g.BuildPage(KindAruco)
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != 2 {
		t.Errorf("skipped = %v, want [2]", skipped)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("page not written: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{OutputDir: "", StartID: 1, EndID: 2, Size: 100, PerRow: 4},
		{OutputDir: "x", StartID: 5, EndID: 2, Size: 100, PerRow: 4},
		{OutputDir: "x", StartID: 1, EndID: 2, Size: 4, PerRow: 4},
		{OutputDir: "x", StartID: 1, EndID: 2, Size: 100, PerRow: 4, Kinds: []Kind{"pdf"}},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("config %d should be invalid", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default: %v", err)
	}
}
