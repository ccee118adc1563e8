package llm

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidBaseURL is returned when a custom base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
	// ErrNeedsAuthorization is returned when the resolved origin has not been granted.
	ErrNeedsAuthorization = errors.New("endpoint origin needs authorization")
)

var routeSuffixes = map[Dialect]string{
	DialectOpenAI:    "/chat/completions",
	DialectAnthropic: "/messages",
}

var versionSegment = regexp.MustCompile(`/v\d+$`)

// ResolveEndpoint returns the URL to call for providerID. An empty baseURL
// selects the provider's default endpoint; otherwise the provider's route is
// appended to baseURL unless its path already ends in a known route.
func ResolveEndpoint(providerID, baseURL string) (string, error) {
	p, err := Lookup(providerID)
	if err != nil {
		return "", err
	}

	base := strings.TrimSpace(baseURL)
	if base == "" || p.Dialect == DialectLocal {
		return p.Endpoint, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrInvalidBaseURL, base)
	}

	path := strings.TrimRight(u.Path, "/")
	for _, suffix := range routeSuffixes {
		if strings.HasSuffix(path, suffix) {
			return base, nil
		}
	}

	suffix := routeSuffixes[p.Dialect]
	switch {
	case versionSegment.MatchString(path):
		path += suffix
	case path == "":
		path = "/v1" + suffix
	default:
		path += suffix
	}

	u.Path = path
	u.RawPath = ""
	return u.String(), nil
}

// Origin returns scheme://host[:port] of endpoint, or "" when it cannot be parsed.
func Origin(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// Permissions answers whether calls to an origin were granted by the user.
type Permissions interface {
	Granted(origin string) bool
}

// OriginGrants is a set of granted origins.
type OriginGrants map[string]bool

// NewOriginGrants grants the registry's default endpoints plus extra, which
// may be full URLs or bare origins.
func NewOriginGrants(extra []string) OriginGrants {
	g := make(OriginGrants)
	for _, p := range Providers {
		if o := Origin(p.Endpoint); o != "" {
			g[o] = true
		}
	}
	for _, e := range extra {
		if o := Origin(strings.TrimSpace(e)); o != "" {
			g[o] = true
		}
	}
	return g
}

func (g OriginGrants) Granted(origin string) bool {
	return g[strings.ToLower(origin)]
}

// Authorize fails with ErrNeedsAuthorization unless endpoint's origin was granted.
// An empty endpoint (the local provider) needs no grant.
func Authorize(perms Permissions, endpoint string) error {
	if endpoint == "" {
		return nil
	}
	origin := Origin(endpoint)
	if origin == "" || perms == nil || !perms.Granted(origin) {
		return fmt.Errorf("%w: %s", ErrNeedsAuthorization, endpoint)
	}
	return nil
}
