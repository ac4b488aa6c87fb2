// Package source parses remote source references into structured specs.
// A source names a subtree of a Git-hosted repository in one of three
// shapes: a full URL, a provider-prefixed shorthand, or a bare shorthand.
package source

import "fmt"

// Provider identifies a Git hosting provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// Spec is the parsed, immutable form of a source string.
type Spec struct {
	Provider Provider
	Owner    string
	Repo     string
	Ref      string // branch, tag, or commit; empty means default branch
	Path     string // subtree path within the repository; empty means default
}

// String renders the spec in shorthand form, mainly for log output.
func (s *Spec) String() string {
	out := fmt.Sprintf("%s:%s/%s", s.Provider, s.Owner, s.Repo)
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	if s.Path != "" {
		out += ":" + s.Path
	}
	return out
}
