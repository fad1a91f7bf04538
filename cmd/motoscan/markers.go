package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/markers"
	"github.com/teslashibe/motoscan/pkg/vision"
)

var markerOpts = markers.DefaultConfig()

var (
	markerDict  string
	markerKinds []string
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Generate printable ArUco markers and QR codes",
	Long: `Write one labelled PNG per marker id (aruco_marker_<id>.png), a matching QR
code (qr_code_<id>.png) and an A4 print page per kind (impressao_<kind>_todos.png).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dict := cfg.Capture.Dictionary
		if markerDict != "" {
			if !aruco.IsDictionary(markerDict) {
				return fmt.Errorf("unknown dictionary %q, want one of %v", markerDict, aruco.Dictionaries())
			}
			dict = markerDict
		}

		opts := markerOpts
		opts.Kinds = nil
		for _, k := range markerKinds {
			opts.Kinds = append(opts.Kinds, markers.Kind(k))
		}

		render, err := vision.MarkerRenderer(dict)
		if err != nil {
			return err
		}
		gen, err := markers.New(opts, render)
		if err != nil {
			return err
		}

		sum, err := gen.Run(cmd.Context())
		if err != nil {
			return err
		}
		if len(sum.Skipped) > 0 {
			log.Warn("print page is missing tiles", "ids", sum.Skipped)
		}

		fmt.Printf("Wrote %d files to %s\n", len(sum.Files), opts.OutputDir)
		for _, p := range sum.Pages {
			fmt.Printf("  page: %s\n", p)
		}
		return nil
	},
}

func init() {
	f := markersCmd.Flags()
	f.StringVarP(&markerOpts.OutputDir, "output", "o", markerOpts.OutputDir, "output directory")
	f.IntVar(&markerOpts.StartID, "start", markerOpts.StartID, "first marker id")
	f.IntVar(&markerOpts.EndID, "end", markerOpts.EndID, "last marker id")
	f.IntVar(&markerOpts.Size, "size", markerOpts.Size, "marker edge in pixels")
	f.IntVar(&markerOpts.LabelHeight, "label-height", markerOpts.LabelHeight, "label strip height in pixels")
	f.IntVar(&markerOpts.PerRow, "per-row", markerOpts.PerRow, "tiles per row on the print page")
	f.StringVarP(&markerDict, "dict", "d", "", "ArUco dictionary (default from config)")
	f.StringSliceVar(&markerKinds, "pages", []string{string(markers.KindAruco)}, "print pages to build (aruco, qr)")
	rootCmd.AddCommand(markersCmd)
}
