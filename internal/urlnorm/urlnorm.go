// Package urlnorm canonicalizes URLs so that trivially different spellings
// of the same address share one feedback record.
package urlnorm

import (
	"crypto/md5" //nolint:gosec // identity key, not a security boundary
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize reduces a URL to its canonical form: lowercase, host and path
// only, no trailing slash, no leading "www.". Query, fragment, and scheme
// are dropped. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	withScheme := s
	if !strings.Contains(s, "://") {
		withScheme = "http://" + s
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		// Unparseable input still gets a stable key.
		return strings.TrimPrefix(strings.TrimSuffix(s, "/"), "www.")
	}

	normalized := u.Host + u.Path
	normalized = strings.TrimSuffix(normalized, "/")
	normalized = strings.TrimPrefix(normalized, "www.")
	return normalized
}

// Hash returns the hex MD5 digest of the normalized form of raw. Two URLs
// normalize equal iff they hash equal.
func Hash(raw string) string {
	sum := md5.Sum([]byte(Normalize(raw))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
