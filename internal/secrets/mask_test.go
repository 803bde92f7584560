package secrets

import (
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "**"},
		{"abc", "a*c"},
		{"abcdefg", "a*****g"},
		{"abcdefgh", "********"},
		{"sk-abc123", "sk-a*c123"},
		{"sk-proj-1234567890abcdef", "sk-p****************cdef"},
	}
	for _, tc := range cases {
		got := Mask(tc.in)
		if got != tc.want {
			t.Fatalf("Mask(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if len([]rune(got)) != len([]rune(tc.in)) {
			t.Fatalf("Mask(%q) changed length", tc.in)
		}
	}
}

func TestMaskHidesInterior(t *testing.T) {
	secret := "sk-proj-verysecretinterior-tail"
	masked := Mask(secret)

	interior := secret[4 : len(secret)-4]
	for i := 0; i+5 <= len(interior); i++ {
		if strings.Contains(masked, interior[i:i+5]) {
			t.Fatalf("masked value leaks interior substring %q", interior[i:i+5])
		}
	}
}
