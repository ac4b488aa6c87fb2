package sync

import (
	"context"

	"github.com/dyoshikawa/rulesync-sub010/internal/github"
)

// Provider is the slice of the hosting API client the sync engine depends
// on. *github.Client satisfies it; tests substitute a fake.
type Provider interface {
	GetDefaultBranch(ctx context.Context, owner, repo string) (string, error)
	ResolveRef(ctx context.Context, owner, repo, ref string) (string, error)
	ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]github.RemoteEntry, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	DownloadRawContent(ctx context.Context, downloadURL string) ([]byte, error)
}
