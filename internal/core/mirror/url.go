package mirror

import (
	"net/url"
	"strings"
)

// ValidateURL accepts only absolute http/https URLs. Anything else fails
// the job before any filesystem or process work happens.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	return nil
}

// DeriveDomain extracts the site's domain: the URL host, falling back to
// the first path segment, with any port suffix stripped.
func DeriveDomain(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if h := u.Hostname(); h != "" {
			return h
		}
	}
	// No host component: schemeless input like "example.com:8080/x".
	// Take the first path segment and strip any port suffix.
	seg := strings.SplitN(strings.TrimPrefix(raw, "/"), "/", 2)[0]
	if i := strings.Index(seg, ":"); i != -1 {
		seg = seg[:i]
	}
	return seg
}

// MirrorArgs builds the fixed wget invocation: recursive mirror, link
// conversion, html extension adjustment, page requisites, no parent
// traversal, unconditional re-fetch, output rooted at tempDir.
func MirrorArgs(tempDir, target string) []string {
	return []string{"-m", "-k", "-E", "-p", "-np", "--no-if-modified-since", "-P", tempDir, target}
}
