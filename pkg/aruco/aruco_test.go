package aruco

import "testing"

func TestResolveDictionary(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		expect string
	}{
		{name: "default stays", in: Dict6x6_250, expect: Dict6x6_250},
		{name: "5x5 accepted", in: Dict5x5_100, expect: Dict5x5_100},
		{name: "4x4 accepted", in: Dict4x4_50, expect: Dict4x4_50},
		{name: "unknown falls back", in: "DICT_7X7_1000", expect: DefaultDictionary},
		{name: "empty falls back", in: "", expect: DefaultDictionary},
		{name: "case sensitive", in: "dict_4x4_50", expect: DefaultDictionary},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveDictionary(tc.in); got != tc.expect {
				t.Errorf("ResolveDictionary(%q) = %q, want %q", tc.in, got, tc.expect)
			}
		})
	}
}

func TestCode(t *testing.T) {
	if got := Code(7); got != "ARUCO-7" {
		t.Errorf("Code(7) = %q, want ARUCO-7", got)
	}

	id, err := ParseCode("ARUCO-9999")
	if err != nil {
		t.Fatalf("ParseCode: %v", err)
	}
	if id != 9999 {
		t.Errorf("ParseCode id = %d, want 9999", id)
	}

	for _, bad := range []string{"9999", "ARUCO-", "ARUCO-x", "ARUCO--1", "QR-1"} {
		if _, err := ParseCode(bad); err == nil {
			t.Errorf("ParseCode(%q) should fail", bad)
		}
	}
}
