package web

import (
	_ "embed"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/motoscan/pkg/aruco"
	"github.com/teslashibe/motoscan/pkg/camera"
	"github.com/teslashibe/motoscan/pkg/capture"
)

//go:embed ui.html
var uiHTML string

func (s *Server) handleUI(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(uiHTML)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": msg})
}

// parseOptional decodes a JSON body if one was sent, regardless of the
// declared content type.
func parseOptional(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// startRequest accepts dict_name as an alias of aruco_dict.
type startRequest struct {
	capture.Options
	DictName string `json:"dict_name,omitempty"`
}

// handleStart starts capture, optionally selecting camera and dictionary.
func (s *Server) handleStart(c *fiber.Ctx) error {
	var req startRequest
	if err := parseOptional(c, &req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	opts := req.Options
	if opts.Dictionary == "" {
		opts.Dictionary = req.DictName
	}

	started, err := s.deps.Capture.Start(opts)
	if err != nil {
		return badRequest(c, err.Error())
	}
	st := s.deps.Capture.Status()
	if !started {
		return c.JSON(fiber.Map{"ok": true, "message": "already running", "run_id": st.RunID})
	}
	return c.JSON(fiber.Map{
		"ok":        true,
		"camera_id": st.CameraID,
		"dict":      st.Dictionary,
		"run_id":    st.RunID,
	})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.deps.Capture.Stop()
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.deps.Capture.Status())
}

// debugResponse extends the status with diagnostics.
type debugResponse struct {
	capture.Status
	DetectorParams     any     `json:"detector_params,omitempty"`
	TokenExists        bool    `json:"jwt_token_exists"`
	CaptureThreadAlive bool    `json:"capture_thread_alive"`
	FrameShape         *[3]int `json:"frame_shape"`
	FrameSeq           uint64  `json:"frame_seq,omitempty"`
	Markers            int     `json:"markers_in_frame"`
	TrackedTags        int     `json:"tracked_tags"`
	ReportIntervalS    float64 `json:"report_interval_s,omitempty"`
	WSClients          int     `json:"ws_clients"`
}

func (s *Server) handleDebug(c *fiber.Ctx) error {
	st := s.deps.Capture.Status()
	resp := debugResponse{
		Status:             st,
		CaptureThreadAlive: st.ThreadAlive,
	}
	if s.deps.DetectorParams != nil {
		resp.DetectorParams = s.deps.DetectorParams()
	}
	if s.deps.Session != nil {
		resp.TokenExists = s.deps.Session.Valid()
	}
	if f, ok := s.deps.Capture.Store().Latest(); ok {
		shape := f.Shape()
		resp.FrameShape = &shape
		resp.FrameSeq = f.Seq
		resp.Markers = len(f.Markers)
	}
	if s.deps.Limiter != nil {
		resp.TrackedTags = s.deps.Limiter.Len()
		resp.ReportIntervalS = s.deps.Limiter.Interval().Seconds()
	}
	if s.deps.Hub != nil {
		resp.WSClients = s.deps.Hub.ClientCount()
	}
	return c.JSON(resp)
}

// handleCameras enumerates camera indices. When none opens it suggests
// 0..2 so the user can still try one.
func (s *Server) handleCameras(c *fiber.Ctx) error {
	limit := camera.ClampProbe(c.QueryInt("max", camera.DefaultProbeMax))
	selected := s.deps.Capture.Status().CameraID

	var found []camera.Info
	if s.deps.Probe != nil {
		found = s.deps.Probe(c.UserContext(), limit)
	}
	if len(found) == 0 {
		return c.JSON(fiber.Map{
			"cameras":  camera.Suggestions(),
			"selected": selected,
			"note":     "no camera detected; showing suggestions to try manually",
		})
	}
	return c.JSON(fiber.Map{"cameras": found, "selected": selected})
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":              true,
		"dict":            s.deps.Capture.Processor().Dictionary(),
		"available_dicts": aruco.Dictionaries(),
	})
}

func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	var req struct {
		Dictionary string `json:"aruco_dict"`
	}
	if err := parseOptional(c, &req); err != nil || !aruco.IsDictionary(req.Dictionary) {
		return badRequest(c, "invalid dictionary")
	}
	if err := s.deps.Capture.Processor().SetDictionary(req.Dictionary); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"ok": true, "dict": req.Dictionary})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"config":  s.deps.Camera.GetConfig(),
		"presets": camera.PresetNames(),
	})
}

// handleSetCamera applies a partial update, e.g. {"preset":"1080p","quality":70}.
// Resolution and frame rate apply on the next start.
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := parseOptional(c, &params); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if err := s.deps.Camera.UpdateConfig(params); err != nil {
		return badRequest(c, err.Error())
	}
	cfg := s.deps.Camera.GetConfig()
	s.logger.Info("camera config updated", "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate, "quality", cfg.Quality)
	return c.JSON(fiber.Map{"ok": true, "config": cfg})
}
