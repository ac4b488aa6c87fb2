package source

import (
	"fmt"
	"net/url"
	pathpkg "path"
	"strings"
)

// hostProviders is the exact allow-list of hostnames accepted in URL form.
// Anything else, including look-alike subdomains (phishing.github.com) and
// suffix spoofs (notgithub.com), is rejected as an unknown provider.
var hostProviders = map[string]Provider{
	"github.com": ProviderGitHub,
	"gitlab.com": ProviderGitLab,
}

// Parse parses a source string into a Spec. Accepted shapes:
//
//	https://github.com/owner/repo[/tree/<ref>[/<path>]]
//	https://github.com/owner/repo/blob/<ref>/<path>
//	github:owner/repo[@ref][:path]
//	gitlab:owner/repo[@ref][:path]
//	owner/repo[@ref][:path]          (provider defaults to github)
func Parse(raw string) (*Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ParseError{Source: raw, Reason: "source cannot be empty"}
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return parseURL(raw)
	}

	switch {
	case strings.HasPrefix(raw, "github:"):
		return parseShorthand(raw, strings.TrimPrefix(raw, "github:"), ProviderGitHub)
	case strings.HasPrefix(raw, "gitlab:"):
		return parseShorthand(raw, strings.TrimPrefix(raw, "gitlab:"), ProviderGitLab)
	default:
		return parseShorthand(raw, raw, ProviderGitHub)
	}
}

// parseShorthand handles owner/repo[@ref][:path].
func parseShorthand(raw, rest string, provider Provider) (*Spec, error) {
	var path string
	if idx := strings.Index(rest, ":"); idx >= 0 {
		path = rest[idx+1:]
		rest = rest[:idx]
		if path == "" {
			return nil, &ParseError{Source: raw, Reason: "path cannot be empty after ':'"}
		}
	}

	var ref string
	if idx := strings.Index(rest, "@"); idx >= 0 {
		ref = rest[idx+1:]
		rest = rest[:idx]
		if ref == "" {
			return nil, &ParseError{Source: raw, Reason: "ref cannot be empty after '@'"}
		}
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, &ParseError{Source: raw, Reason: "invalid source: expected owner/repo"}
	}

	return &Spec{
		Provider: provider,
		Owner:    parts[0],
		Repo:     strings.TrimSuffix(parts[1], ".git"),
		Ref:      ref,
		Path:     path,
	}, nil
}

// parseURL handles full https URLs, including /tree/<ref>/<path> and
// /blob/<ref>/<path> deep links copied out of a browser.
func parseURL(raw string) (*Spec, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ParseError{Source: raw, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	provider, ok := hostProviders[host]
	if !ok {
		return nil, &ParseError{Source: raw, Reason: fmt.Sprintf("unknown provider host %q", u.Hostname())}
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, &ParseError{Source: raw, Reason: "invalid source: expected owner/repo in URL path"}
	}

	spec := &Spec{
		Provider: provider,
		Owner:    parts[0],
		Repo:     strings.TrimSuffix(parts[1], ".git"),
	}

	if len(parts) > 2 {
		if parts[2] != "tree" && parts[2] != "blob" {
			return nil, &ParseError{Source: raw, Reason: fmt.Sprintf("unsupported URL segment %q (expected tree or blob)", parts[2])}
		}
		if len(parts) < 4 || parts[3] == "" {
			return nil, &ParseError{Source: raw, Reason: "ref cannot be empty in tree/blob URL"}
		}
		spec.Ref = parts[3]
		if len(parts) > 4 {
			spec.Path = pathpkg.Join(parts[4:]...)
		}
	}

	return spec, nil
}
