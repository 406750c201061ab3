package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// HashKey creates a SHA256 hash of the joined parts.
// It gives deterministic, Redis-safe identifiers for repeating jobs.
func HashKey(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(h.Sum(nil))
}

// JoinURL appends a page path to a channel link without doubling slashes.
func JoinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// EndOfDay returns the last representable instant of t's calendar day
// at Postgres timestamp precision.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Microsecond)
}
