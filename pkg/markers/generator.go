// Package markers generates printable ArUco markers and QR codes carrying
// the same tag codes, plus A4 sheets for printing them in bulk.
package markers

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/skip2/go-qrcode"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
)

// Kind selects which tiles a print page is built from.
type Kind string

const (
	KindAruco Kind = "aruco"
	KindQR    Kind = "qr"
)

// RenderFunc renders marker id as a side x side image.
type RenderFunc func(id, side int) (image.Image, error)

// Config controls what is generated and where.
type Config struct {
	OutputDir   string
	StartID     int
	EndID       int
	Size        int // marker edge in pixels
	LabelHeight int
	PerRow      int
	Kinds       []Kind // print pages to build
}

// DefaultConfig generates markers 1..20 at 400px into ./aruco_markers.
func DefaultConfig() Config {
	return Config{
		OutputDir:   "aruco_markers",
		StartID:     1,
		EndID:       20,
		Size:        400,
		LabelHeight: 80,
		PerRow:      4,
		Kinds:       []Kind{KindAruco},
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch {
	case c.OutputDir == "":
		return fmt.Errorf("output dir required")
	case c.StartID < 0 || c.EndID < c.StartID:
		return fmt.Errorf("invalid id range %d..%d", c.StartID, c.EndID)
	case c.Size < 16:
		return fmt.Errorf("marker size %d too small", c.Size)
	case c.PerRow < 1:
		return fmt.Errorf("per-row must be positive")
	}
	for _, k := range c.Kinds {
		if k != KindAruco && k != KindQR {
			return fmt.Errorf("unknown page kind %q", k)
		}
	}
	return nil
}

// Count is the number of ids in the range.
func (c Config) Count() int {
	return c.EndID - c.StartID + 1
}

// Summary lists what a run wrote.
type Summary struct {
	Files   []string
	Pages   []string
	Skipped []int
}

// Generator writes marker files.
type Generator struct {
	cfg      Config
	render   RenderFunc
	logger   *slog.Logger
	progress io.Writer
}

// New creates a generator. render draws ArUco markers; QR codes need no
// renderer.
func New(cfg Config, render RenderFunc) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:      cfg,
		render:   render,
		logger:   log.With("component", "markers"),
		progress: os.Stderr,
	}, nil
}

// SetProgressWriter redirects the progress bar; io.Discard silences it.
func (g *Generator) SetProgressWriter(w io.Writer) {
	g.progress = w
}

// ArucoFile is the tile path for an ArUco marker.
func (g *Generator) ArucoFile(id int) string {
	return filepath.Join(g.cfg.OutputDir, fmt.Sprintf("aruco_marker_%d.png", id))
}

// QRFile is the tile path for a QR code.
func (g *Generator) QRFile(id int) string {
	return filepath.Join(g.cfg.OutputDir, fmt.Sprintf("qr_code_%d.png", id))
}

// PageFile is the print page path for kind.
func (g *Generator) PageFile(kind Kind) string {
	return filepath.Join(g.cfg.OutputDir, fmt.Sprintf("impressao_%s_todos.png", kind))
}

func (g *Generator) tileFile(kind Kind, id int) string {
	if kind == KindQR {
		return g.QRFile(id)
	}
	return g.ArucoFile(id)
}

// Run writes every tile, then the configured print pages.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return sum, fmt.Errorf("create output dir: %w", err)
	}

	g.logger.Info("generating markers", "from", g.cfg.StartID, "to", g.cfg.EndID, "dir", g.cfg.OutputDir)

	bar := progressbar.NewOptions(g.cfg.Count(),
		progressbar.OptionSetDescription("Generating markers"),
		progressbar.OptionSetWriter(g.progress),
		progressbar.OptionShowCount(),
	)

	for id := g.cfg.StartID; id <= g.cfg.EndID; id++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		files, err := g.writeTiles(id)
		sum.Files = append(sum.Files, files...)
		if err != nil {
			return sum, err
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(g.progress)

	for _, kind := range g.cfg.Kinds {
		path, skipped, err := g.BuildPage(kind)
		if err != nil {
			return sum, err
		}
		sum.Pages = append(sum.Pages, path)
		sum.Skipped = append(sum.Skipped, skipped...)
	}
	return sum, nil
}

func (g *Generator) writeTiles(id int) ([]string, error) {
	code := aruco.Code(id)
	var files []string

	if g.render != nil {
		img, err := g.render(id, g.cfg.Size)
		if err != nil {
			return files, fmt.Errorf("render marker %d: %w", id, err)
		}
		path := g.ArucoFile(id)
		if err := savePNG(path, WithLabel(img, code, g.cfg.LabelHeight)); err != nil {
			return files, err
		}
		files = append(files, path)
	}

	qr, err := QRImage(code, g.cfg.Size)
	if err != nil {
		return files, fmt.Errorf("qr %s: %w", code, err)
	}
	path := g.QRFile(id)
	if err := savePNG(path, WithLabel(qr, code, g.cfg.LabelHeight)); err != nil {
		return files, err
	}
	return append(files, path), nil
}

// QRImage encodes code as a size x size QR code with high error correction.
func QRImage(code string, size int) (image.Image, error) {
	q, err := qrcode.New(code, qrcode.Highest)
	if err != nil {
		return nil, err
	}
	return q.Image(size), nil
}

// BuildPage assembles the previously written tiles of kind onto one A4 page.
// Missing or unreadable tiles are logged and skipped; the remaining tiles
// close ranks. It returns the page path and the skipped ids.
func (g *Generator) BuildPage(kind Kind) (string, []int, error) {
	layout := PageLayout(g.cfg.Count(), g.cfg.PerRow, g.cfg.LabelHeight)

	page := image.NewRGBA(image.Rect(0, 0, PageWidth, PageHeight))
	draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)

	title := fmt.Sprintf("Motoscan - %s markers (%d to %d)", kindTitle(kind), g.cfg.StartID, g.cfg.EndID)
	drawCentered(page, image.Rect(0, 40, PageWidth, 40+titleBand-60), textImage(title, 5))

	var skipped []int
	placed := 0
	for id := g.cfg.StartID; id <= g.cfg.EndID; id++ {
		tile, err := loadPNG(g.tileFile(kind, id))
		if err != nil {
			g.logger.Warn("skipping tile", "kind", kind, "id", id, "error", err)
			skipped = append(skipped, id)
			continue
		}
		scaleInto(page, layout.Rect(placed), tile)
		placed++
	}

	path := g.PageFile(kind)
	if err := savePNG(path, page); err != nil {
		return "", skipped, err
	}
	g.logger.Info("print page written", "path", path, "tiles", placed, "skipped", len(skipped))
	return path, skipped, nil
}

func kindTitle(k Kind) string {
	if k == KindQR {
		return "QR"
	}
	return "ArUco"
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
