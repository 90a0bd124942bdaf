package mock

import (
	"net/url"
	"strings"
)

// matchTarget matches a handler pattern against a request URL. Patterns
// starting with "/" match the path only; all other patterns match the full
// URL and the scheme-less host+path form, so "*/api/submit" matches
// "https://api.example.com/api/submit".
func matchTarget(pattern string, u *url.URL) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "/") {
		path := u.Path
		if path == "" {
			path = "/"
		}
		return matchGlob(pattern, path)
	}
	if matchGlob(pattern, u.String()) {
		return true
	}
	return matchGlob(pattern, u.Host+u.Path)
}

func matchGlob(pattern, str string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == str
	}
	return matchWildcard(pattern, str)
}

// matchWildcard handles patterns with * wildcards anywhere.
func matchWildcard(pattern, str string) bool {
	parts := strings.Split(pattern, "*")

	// Check prefix (before first *)
	if parts[0] != "" && !strings.HasPrefix(str, parts[0]) {
		return false
	}
	str = str[len(parts[0]):]

	// Check suffix (after last *)
	lastPart := parts[len(parts)-1]
	if lastPart != "" && !strings.HasSuffix(str, lastPart) {
		return false
	}
	if lastPart != "" {
		str = str[:len(str)-len(lastPart)]
	}

	// Check middle parts in order
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(str, parts[i])
		if idx < 0 {
			return false
		}
		str = str[idx+len(parts[i]):]
	}

	return true
}
