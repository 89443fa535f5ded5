// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package policy implements small cross-cutting rules:
// host-allowlist matching for brokered HTTP, and network-scope share
// policy. TTL/expiry itself lives on manifest.Manifest.IsExpired.
package policy

import "strings"

// IsHostAllowed reports whether host matches an entry in allowlist,
// either by exact match or by a "*.suffix" wildcard pattern where host
// ends with suffix. An empty allowlist allows nothing.
func IsHostAllowed(host string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return false
	}
	for _, allowed := range allowlist {
		if allowed == host {
			return true
		}
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(host, allowed[1:]) {
			return true
		}
	}
	return false
}

// HostFromURL extracts the host (without scheme or port) from a URL
// string, tolerating malformed input since it feeds an allowlist check
// that must never panic.
func HostFromURL(url string) string {
	rest := url
	if idx := strings.Index(url, "://"); idx >= 0 {
		rest = url[idx+3:]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

// NetworkScope classifies the target of a share operation.
type NetworkScope int

const (
	ScopeLocal NetworkScope = iota
	ScopeWAN
)

// ShareMode names what a share operation includes.
type ShareMode string

const (
	ShareLogicOnly        ShareMode = "logic-only"
	ShareVerifiedSnapshot ShareMode = "verified-snapshot"
)

// SharePolicy implements the share-scope rule: a local-network target shares only the
// module (logic-only); a wide-area target shares module and data
// together (verified snapshot).
func SharePolicy(scope NetworkScope) ShareMode {
	if scope == ScopeLocal {
		return ShareLogicOnly
	}
	return ShareVerifiedSnapshot
}
