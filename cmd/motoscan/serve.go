package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/capture"
	"github.com/teslashibe/motoscan/pkg/hub"
	"github.com/teslashibe/motoscan/pkg/report"
	"github.com/teslashibe/motoscan/pkg/vision"
	"github.com/teslashibe/motoscan/pkg/web"
)

var (
	servePort      int
	serveHost      string
	serveAutostart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the detector web service",
	Long: `Serve the control API, the live MJPEG stream at /stream, the viewer page at /ui,
Prometheus metrics at /metrics and the event feed at /ws/events.

Capture starts on POST /start unless --autostart is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config, 5001)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config, 0.0.0.0)")
	serveCmd.Flags().BoolVar(&serveAutostart, "autostart", false, "start capture immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	det, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer det.close()

	events := hub.New("events")
	go events.Run()
	defer events.Stop()

	det.capture.OnStateChange(func(st capture.Status) {
		if err := events.Publish(hub.NewEvent(hub.EventState, st)); err != nil {
			log.Warn("publish state event", "error", err)
		}
	})
	det.reporter.OnSent(func(s report.Sighting) {
		if err := events.Publish(hub.NewEvent(hub.EventSighting, s)); err != nil {
			log.Warn("publish sighting event", "error", err)
		}
	})

	srv := web.NewServer(web.Options{
		CORSOrigins:    strings.Join(cfg.Server.CORSOrigins, ","),
		Debug:          cfg.Server.Debug,
		StreamInterval: cfg.Capture.StreamInterval,
	}, web.Deps{
		Capture:        det.capture,
		Camera:         det.camera,
		Hub:            events,
		Session:        det.session,
		Limiter:        det.limiter,
		Metrics:        det.metrics,
		Probe:          vision.ProbeCameras,
		DetectorParams: func() any { return det.vision.Params() },
	})

	if serveAutostart {
		if _, err := det.capture.Start(capture.Options{}); err != nil {
			return fmt.Errorf("autostart: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.ServerAddress())
	}()

	select {
	case err := <-errCh:
		log.Error("web server stopped", "addr", cfg.ServerAddress(), "error", err)
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("web shutdown", "error", err)
	}
	return nil
}
