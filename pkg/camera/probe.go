package camera

import "fmt"

// Probe limits for camera enumeration.
const (
	DefaultProbeMax = 5
	MaxProbe        = 20
	suggestionCount = 3
)

// Info describes a camera index found (or suggested) during enumeration.
type Info struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Detected bool   `json:"detected"`
}

// ClampProbe bounds the number of indices to probe to 1..MaxProbe.
func ClampProbe(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxProbe {
		return MaxProbe
	}
	return n
}

// Detected returns the Info for a camera that opened.
func Detected(id int) Info {
	return Info{ID: id, Name: fmt.Sprintf("Camera %d", id), Detected: true}
}

// Suggestions returns indices 0..2 for manual selection when nothing opened.
func Suggestions() []Info {
	out := make([]Info, 0, suggestionCount)
	for i := 0; i < suggestionCount; i++ {
		out = append(out, Info{ID: i, Name: fmt.Sprintf("Camera (try) %d", i)})
	}
	return out
}
