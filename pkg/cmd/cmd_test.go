package cmd

import "testing"

func TestShortSHA(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0123456789abcdef0123456789abcdef01234567", "0123456"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortSHA(tt.in); got != tt.want {
			t.Errorf("shortSHA(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "(not set)"},
		{"short", "abcd1234", "********"},
		{"long", "ghp_abcdefghijklmnop", "ghp_...mnop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskToken(tt.in); got != tt.want {
				t.Errorf("maskToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
