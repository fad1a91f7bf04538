package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/capture"
)

var (
	detectCamera int
	detectDict   string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the detector headless until interrupted",
	Long: `Open the camera immediately and report every detected tag to the backend,
without the web surface. Stops on Ctrl+C or when the camera cannot be used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("camera") {
			cfg.Capture.CameraID = detectCamera
		}
		if detectDict != "" {
			if !aruco.IsDictionary(detectDict) {
				return fmt.Errorf("unknown dictionary %q, want one of %v", detectDict, aruco.Dictionaries())
			}
			cfg.Capture.Dictionary = detectDict
		}

		det, err := newDetector(cfg)
		if err != nil {
			return err
		}
		defer det.close()

		stopped := make(chan capture.Status, 1)
		det.capture.OnStateChange(func(st capture.Status) {
			if st.State != capture.Stopped {
				return
			}
			select {
			case stopped <- st:
			default:
			}
		})

		if _, err := det.capture.Start(capture.Options{}); err != nil {
			return err
		}

		select {
		case <-cmd.Context().Done():
			log.Info("interrupted, stopping capture")
			return nil
		case st := <-stopped:
			if st.LastError != "" {
				return errors.New(st.LastError)
			}
			log.Info("capture ended", "frames", st.Frames)
			return nil
		}
	},
}

func init() {
	detectCmd.Flags().IntVarP(&detectCamera, "camera", "c", 0, "camera index (default from config)")
	detectCmd.Flags().StringVarP(&detectDict, "dict", "d", "", "ArUco dictionary")
	rootCmd.AddCommand(detectCmd)
}
