package pathspec

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"   ", "/"},
		{"/", "/"},
		{"//", "/"},
		{"trunk", "/trunk"},
		{"/trunk", "/trunk"},
		{"/trunk/", "/trunk"},
		{"//trunk//x/", "/trunk/x"},
		{"a//b///c", "/a/b/c"},
		{"  /tags/v1  ", "/tags/v1"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.raw)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"", "//a//b/", "/trunk/", "x/y/z"} {
		once, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", raw, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestNormalizeRejectsDotSegments(t *testing.T) {
	for _, raw := range []string{"/a/../b", "/.", "..", "/trunk/./x", "../up"} {
		if _, err := Normalize(raw); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Normalize(%q): want ErrInvalidPath, got %v", raw, err)
		}
	}
}

func TestIsUnder(t *testing.T) {
	cases := []struct {
		requested, rule string
		want            bool
	}{
		{"/anything/at/all", "/", true},
		{"/", "/", true},
		{"/trunk", "/trunk", true},
		{"/trunk/sub/file", "/trunk", true},
		{"/trunk-extra", "/trunk", false},
		{"/trunk", "/trunk/sub", false},
		{"/tags", "/trunk", false},
	}
	for _, tc := range cases {
		if got := IsUnder(tc.requested, tc.rule); got != tc.want {
			t.Errorf("IsUnder(%q, %q) = %v, want %v", tc.requested, tc.rule, got, tc.want)
		}
	}
}
