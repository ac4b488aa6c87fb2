package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/afero"

	"github.com/dyoshikawa/rulesync-sub010/internal/github"
	"github.com/dyoshikawa/rulesync-sub010/internal/source"
)

func TestFetchWritesFilesAndSummarizes(t *testing.T) {
	provider := newFakeProvider()
	provider.addFile("acme", "rules", "rules/go.md", "go rules")
	provider.addFile("acme", "rules", "rules/ts.md", "ts rules")

	fs := afero.NewMemMapFs()
	orch := newTestOrchestrator(provider, fs)

	summary, err := orch.Fetch(context.Background(), "acme/rules:rules", FetchOptions{Output: "/out"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if summary.Source != "acme/rules:rules" {
		t.Errorf("Source = %q", summary.Source)
	}
	if summary.Ref != shaOne {
		t.Errorf("Ref = %q, want resolved commit %q", summary.Ref, shaOne)
	}
	if summary.Created != 2 || summary.Overwritten != 0 || summary.Skipped != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/0/0", summary.Created, summary.Overwritten, summary.Skipped)
	}
	if len(summary.Files) != 2 {
		t.Fatalf("Files = %+v, want 2 entries", summary.Files)
	}
	// Results are sorted by path.
	if summary.Files[0].RelativePath != "go.md" || summary.Files[1].RelativePath != "ts.md" {
		t.Errorf("Files order = %+v", summary.Files)
	}

	data, err := afero.ReadFile(fs, "/out/go.md")
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "go rules" {
		t.Errorf("output content = %q", data)
	}
}

func TestFetchFileWithoutDownloadURL(t *testing.T) {
	provider := newFakeProvider()
	provider.addInlineFile("acme", "rules", "rules/go.md", "inline content")

	fs := afero.NewMemMapFs()
	orch := newTestOrchestrator(provider, fs)

	summary, err := orch.Fetch(context.Background(), "acme/rules:rules", FetchOptions{Output: "/out"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if summary.Created != 1 {
		t.Errorf("Created = %d, want 1", summary.Created)
	}
	if !fileHasContent(fs, "/out/go.md", "inline content") {
		t.Error("file without download url was not fetched via the contents endpoint")
	}
}

func TestFetchOverwriteStrategy(t *testing.T) {
	provider := newFakeProvider()
	provider.addFile("acme", "rules", "rules/go.md", "new content")

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/out/go.md", []byte("old content"), 0o644)

	orch := newTestOrchestrator(provider, fs)
	summary, err := orch.Fetch(context.Background(), "acme/rules:rules", FetchOptions{Output: "/out"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if summary.Overwritten != 1 || summary.Created != 0 {
		t.Errorf("counts = %+v, want one overwritten", summary)
	}
	data, _ := afero.ReadFile(fs, "/out/go.md")
	if string(data) != "new content" {
		t.Errorf("content = %q, want replaced", data)
	}
}

func TestFetchSkipStrategy(t *testing.T) {
	provider := newFakeProvider()
	provider.addFile("acme", "rules", "rules/go.md", "new content")
	provider.addFile("acme", "rules", "rules/fresh.md", "fresh")

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/out/go.md", []byte("old content"), 0o644)

	orch := newTestOrchestrator(provider, fs)
	summary, err := orch.Fetch(context.Background(), "acme/rules:rules", FetchOptions{Output: "/out", Strategy: StrategySkip})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if summary.Skipped != 1 || summary.Created != 1 {
		t.Errorf("counts = created %d, skipped %d, want 1/1", summary.Created, summary.Skipped)
	}
	data, _ := afero.ReadFile(fs, "/out/go.md")
	if string(data) != "old content" {
		t.Errorf("content = %q, want preserved", data)
	}
	if !fileHasContent(fs, "/out/fresh.md", "fresh") {
		t.Error("new file was not created under skip strategy")
	}
}

func TestFetchFeatures(t *testing.T) {
	provider := newFakeProvider()
	provider.addFile("acme", "bundle", "rules/go.md", "rules")
	provider.addFile("acme", "bundle", "commands/build.md", "commands")
	// No "skills" directory upstream: that feature is warned and skipped.

	fs := afero.NewMemMapFs()
	orch := newTestOrchestrator(provider, fs)

	summary, err := orch.Fetch(context.Background(), "acme/bundle", FetchOptions{
		Output:   "/out",
		Features: []string{"rules", "commands", "skills"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if summary.Created != 2 {
		t.Errorf("Created = %d, want 2", summary.Created)
	}
	if !fileHasContent(fs, "/out/rules/go.md", "rules") {
		t.Error("rules feature file missing")
	}
	if !fileHasContent(fs, "/out/commands/build.md", "commands") {
		t.Error("commands feature file missing")
	}
}

func TestFetchInvalidFeatureName(t *testing.T) {
	provider := newFakeProvider()
	fs := afero.NewMemMapFs()
	orch := newTestOrchestrator(provider, fs)

	_, err := orch.Fetch(context.Background(), "acme/bundle", FetchOptions{
		Output:   "/out",
		Features: []string{"../etc"},
	})
	if err == nil {
		t.Fatal("Fetch() accepted a traversal feature name")
	}
}

func TestFetchRefFlagOverridesSourceRef(t *testing.T) {
	provider := newFakeProvider()
	provider.addFile("acme", "rules", "rules/go.md", "x")

	fs := afero.NewMemMapFs()
	orch := newTestOrchestrator(provider, fs)

	if _, err := orch.Fetch(context.Background(), "acme/rules@old:rules", FetchOptions{Output: "/out", Ref: "new"}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if branch, _ := provider.callCounts(); branch != 0 {
		t.Errorf("default branch looked up %d times despite explicit ref", branch)
	}
}

func TestFetchUnknownStrategy(t *testing.T) {
	orch := newTestOrchestrator(newFakeProvider(), afero.NewMemMapFs())

	_, err := orch.Fetch(context.Background(), "acme/rules", FetchOptions{Strategy: Strategy("merge")})
	if err == nil {
		t.Fatal("Fetch() accepted unknown strategy")
	}
}

func TestFetchErrorsArePropagated(t *testing.T) {
	provider := newFakeProvider()
	provider.resolveErr = &github.APIError{StatusCode: http.StatusUnauthorized, Message: "Bad credentials"}

	orch := newTestOrchestrator(provider, afero.NewMemMapFs())
	_, err := orch.Fetch(context.Background(), "acme/rules", FetchOptions{})
	if err == nil {
		t.Fatal("Fetch() swallowed a top-level failure")
	}
	if !github.IsAuth(err) {
		t.Errorf("IsAuth(%v) = false, want true", err)
	}
}

func TestFetchRejectsGitLab(t *testing.T) {
	orch := newTestOrchestrator(newFakeProvider(), afero.NewMemMapFs())

	_, err := orch.Fetch(context.Background(), "gitlab:owner/repo", FetchOptions{})
	if !errors.Is(err, github.ErrGitLabUnsupported) {
		t.Errorf("Fetch(gitlab) error = %v, want ErrGitLabUnsupported", err)
	}
}

func TestFetchRejectsMalformedSource(t *testing.T) {
	orch := newTestOrchestrator(newFakeProvider(), afero.NewMemMapFs())

	_, err := orch.Fetch(context.Background(), "not-a-source", FetchOptions{})
	var parseErr *source.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Fetch() error = %v, want *source.ParseError", err)
	}
}

func fileHasContent(fs afero.Fs, path, want string) bool {
	data, err := afero.ReadFile(fs, path)
	return err == nil && string(data) == want
}
