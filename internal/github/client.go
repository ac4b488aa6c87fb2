// Package github is a typed wrapper over the GitHub REST content API. It
// covers the small surface the sync engine needs: ref resolution, directory
// listing, and raw file retrieval. Only the REST API is used; there is no
// git protocol support.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.github.com"

// Token environment variables, consulted in order when no explicit token is
// supplied.
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvGHToken     = "GH_TOKEN"
)

// ResolveToken returns the token to use for API calls: the explicit value if
// non-empty, else the first set of the well-known environment variables, else
// empty (unauthenticated).
func ResolveToken(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(EnvGitHubToken); v != "" {
		return v
	}
	return os.Getenv(EnvGHToken)
}

// Client is a GitHub REST API client. Construct one per run and pass it down
// the call chain; there is deliberately no package-level instance.
type Client struct {
	rc      *resty.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate API endpoint. Used by tests
// to substitute an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a client. token may be empty for unauthenticated access
// (subject to much lower rate limits).
func NewClient(token string, opts ...Option) *Client {
	rc := resty.New()
	rc.SetTimeout(30 * time.Second)
	rc.SetRetryCount(3)
	rc.SetRetryWaitTime(2 * time.Second)
	rc.SetHeader("Accept", "application/vnd.github+json")
	rc.SetHeader("User-Agent", "rulesync-cli/1.0")
	if token != "" {
		rc.SetHeader("Authorization", "Bearer "+token)
	}

	c := &Client{rc: rc, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

// GetDefaultBranch returns the repository's default branch name.
func (c *Client) GetDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)

	var out repoResponse
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get(url)
	if err != nil {
		return "", fmt.Errorf("get default branch for %s/%s: %w", owner, repo, err)
	}
	if err := c.checkStatus(resp, url); err != nil {
		return "", err
	}
	return out.DefaultBranch, nil
}

type commitResponse struct {
	SHA string `json:"sha"`
}

// ResolveRef resolves a branch, tag, or commit id to the full 40-hex commit
// SHA. This is the sole mechanism by which a mutable ref becomes an
// immutable, lockable identity.
func (c *Client) ResolveRef(ctx context.Context, owner, repo, ref string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.baseURL, owner, repo, ref)

	var out commitResponse
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get(url)
	if err != nil {
		return "", fmt.Errorf("resolve ref %q in %s/%s: %w", ref, owner, repo, err)
	}
	if err := c.checkStatus(resp, url); err != nil {
		return "", err
	}
	if out.SHA == "" {
		return "", fmt.Errorf("resolve ref %q in %s/%s: empty sha in response", ref, owner, repo)
	}
	return out.SHA, nil
}

// ListDirectory lists one directory level (not recursive) at path within the
// repository at ref. A missing path yields a typed 404 APIError so callers
// can treat "no such directory" as a soft condition.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]RemoteEntry, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	var entries []RemoteEntry
	req := c.rc.R().SetContext(ctx).SetResult(&entries)
	if ref != "" {
		req.SetQueryParam("ref", ref)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("list %s in %s/%s: %w", path, owner, repo, err)
	}
	if err := c.checkStatus(resp, url); err != nil {
		return nil, err
	}
	return entries, nil
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetFileContent returns the decoded content of one file via the contents
// endpoint. For entries that carry a download URL, DownloadRawContent is the
// cheaper path.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	var out contentResponse
	req := c.rc.R().SetContext(ctx).SetResult(&out)
	if ref != "" {
		req.SetQueryParam("ref", ref)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get content of %s in %s/%s: %w", path, owner, repo, err)
	}
	if err := c.checkStatus(resp, url); err != nil {
		return nil, err
	}
	if out.Type != "file" {
		return nil, fmt.Errorf("get content of %s in %s/%s: not a file (type %q)", path, owner, repo, out.Type)
	}
	if out.Encoding != "base64" {
		return nil, fmt.Errorf("get content of %s in %s/%s: unexpected encoding %q", path, owner, repo, out.Encoding)
	}
	// The API wraps base64 content with newlines.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("get content of %s in %s/%s: decode: %w", path, owner, repo, err)
	}
	return data, nil
}

// DownloadRawContent fetches the raw bytes behind a RemoteEntry's download
// URL.
func (c *Client) DownloadRawContent(ctx context.Context, downloadURL string) ([]byte, error) {
	resp, err := c.rc.R().SetContext(ctx).Get(downloadURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", downloadURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: resp.String(), URL: downloadURL}
	}
	return resp.Body(), nil
}

func (c *Client) checkStatus(resp *resty.Response, url string) error {
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: resp.String(), URL: url}
}
