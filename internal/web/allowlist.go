package web

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// allowedHosts lists the hostnames the sandbox may open. Matching is exact:
// subdomains are not implied.
var allowedHosts = map[string]bool{
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
}

// IsAllowedFetchURL reports whether raw may be deep-fetched.
func IsAllowedFetchURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	return allowedHosts[strings.ToLower(u.Hostname())]
}

var numericSegment = regexp.MustCompile(`^\d+$`)

// ResourceIdentity returns the token a loaded page's location must contain for
// it to count as the requested resource: the last numeric path segment (post
// or article ID), else the cleaned path.
func ResourceIdentity(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if numericSegment.MatchString(segs[i]) {
			return segs[i]
		}
	}

	p := path.Clean("/" + u.Path)
	if p == "/" {
		return u.Hostname()
	}
	return p
}
