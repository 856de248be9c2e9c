package cache

import (
	"errors"
	"testing"
)

func TestParseKey(t *testing.T) {
	testCases := []struct {
		raw     string
		wantErr bool
	}{
		{"200", false},
		{"000", false},
		{"999", false},
		{"abc", true},
		{"12", true},
		{"1234", true},
		{"", true},
		{"2a0", true},
		{"-12", true},
		{"٢٠٠", true}, // 非 ASCII 数字
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			key, err := ParseKey(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("expected ErrInvalidKey for %q, got %v", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.raw, err)
			}
			if key.String() != tc.raw {
				t.Fatalf("key mismatch: %s", key)
			}
		})
	}
}

func TestKeyFileName(t *testing.T) {
	if got := Key("404").FileName(); got != "404.jpg" {
		t.Fatalf("unexpected file name %s", got)
	}
}
