package web

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/teslashibe/motoscan/pkg/capture"
)

const boundary = "frame"

type flushWriter interface {
	io.Writer
	Flush() error
}

// writePart writes one multipart JPEG part and flushes it. A write error
// means the client went away.
func writePart(w flushWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// writeKeepAlive pads the stream with a CRLF. Before the first part it is
// preamble; between parts clients read by Content-Length and skip it. A
// failed flush means the client went away.
func writeKeepAlive(w flushWriter) error {
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// streamFrames writes each new frame from store until the client disconnects
// or done is closed. While no new frame arrives it writes a keepalive every
// keepalive interval so a gone client is noticed. It returns the number of
// parts written.
func streamFrames(w flushWriter, store *capture.Store, interval, wait, keepalive time.Duration, done <-chan struct{}) (int, error) {
	var lastSeq uint64
	sent := 0
	lastWrite := time.Now()
	for {
		f, ok := store.Latest()
		delay := interval
		if !ok || f.Seq == lastSeq {
			delay = wait
			if keepalive > 0 && time.Since(lastWrite) >= keepalive {
				if err := writeKeepAlive(w); err != nil {
					return sent, err
				}
				lastWrite = time.Now()
			}
		} else {
			if err := writePart(w, f.JPEG); err != nil {
				return sent, err
			}
			lastSeq = f.Seq
			lastWrite = time.Now()
			sent++
		}

		select {
		case <-done:
			return sent, nil
		case <-time.After(delay):
		}
	}
}

func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+boundary)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")

	store := s.deps.Capture.Store()
	remote := c.IP()

	var body fasthttp.StreamWriter = func(w *bufio.Writer) {
		s.deps.Metrics.StreamClientAdded()
		defer s.deps.Metrics.StreamClientRemoved()

		s.logger.Info("stream client connected", "remote", remote)
		sent, err := streamFrames(w, store, s.opts.StreamInterval, s.opts.NoFrameWait, s.opts.KeepAlive, s.done)
		s.logger.Info("stream client disconnected", "remote", remote, "frames", sent, "error", err)
	}
	c.Context().SetBodyStreamWriter(body)
	return nil
}
