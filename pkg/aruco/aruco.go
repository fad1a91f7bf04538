// Package aruco holds the marker vocabulary shared by the detector, the
// reporter and the marker generator: dictionary names and tag codes.
// It has no OpenCV dependency so configuration and tests can use it freely.
package aruco

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported dictionary names.
const (
	Dict6x6_250 = "DICT_6X6_250"
	Dict5x5_100 = "DICT_5X5_100"
	Dict4x4_50  = "DICT_4X4_50"

	// DefaultDictionary is used when no (or an unknown) name is given.
	DefaultDictionary = Dict6x6_250
)

// CodePrefix is prepended to marker ids to form backend tag codes.
const CodePrefix = "ARUCO-"

// Dictionaries returns the supported dictionary names in display order.
func Dictionaries() []string {
	return []string{Dict6x6_250, Dict5x5_100, Dict4x4_50}
}

// IsDictionary reports whether name is a supported dictionary.
func IsDictionary(name string) bool {
	for _, d := range Dictionaries() {
		if d == name {
			return true
		}
	}
	return false
}

// ResolveDictionary returns name if supported, DefaultDictionary otherwise.
func ResolveDictionary(name string) string {
	if IsDictionary(name) {
		return name
	}
	return DefaultDictionary
}

// Code formats a marker id as a backend tag code, e.g. "ARUCO-7".
func Code(id int) string {
	return CodePrefix + strconv.Itoa(id)
}

// ParseCode extracts the marker id from a tag code.
func ParseCode(code string) (int, error) {
	rest, ok := strings.CutPrefix(code, CodePrefix)
	if !ok {
		return 0, fmt.Errorf("aruco: code %q lacks %q prefix", code, CodePrefix)
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("aruco: invalid marker id in %q", code)
	}
	return id, nil
}
