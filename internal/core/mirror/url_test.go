package mirror

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw  string
		okay bool
	}{
		{"https://example.com", true},
		{"http://example.com/a/b", true},
		{"https://example.com:8080/x", true},
		{"ftp://example.com", false},
		{"file:///etc/passwd", false},
		{"example.com", false},
		{"//example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateURL(tt.raw)
			if tt.okay && err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.raw, err)
			}
			if !tt.okay && err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.raw)
			}
		})
	}
}

func TestDeriveDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/a/b", "example.com"},
		{"https://example.com:8080/x", "example.com"},
		{"http://sub.example.co.uk/path", "sub.example.co.uk"},
		{"example.com:8080/x", "example.com"},
		{"example.com/only/path", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := DeriveDomain(tt.raw); got != tt.want {
				t.Errorf("DeriveDomain(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMirrorArgs(t *testing.T) {
	args := MirrorArgs("/tmp/sites", "https://example.com")
	joined := strings.Join(args, " ")
	for _, flag := range []string{"-m", "-k", "-E", "-p", "-np", "--no-if-modified-since"} {
		if !strings.Contains(" "+joined+" ", " "+flag+" ") {
			t.Errorf("args %v missing flag %s", args, flag)
		}
	}
	if args[len(args)-1] != "https://example.com" {
		t.Errorf("target URL must be the final argument, got %v", args)
	}
	found := false
	for i, a := range args {
		if a == "-P" && i+1 < len(args) && args[i+1] == "/tmp/sites" {
			found = true
		}
	}
	if !found {
		t.Errorf("args %v must root output at the temp directory", args)
	}
}
