package github

// EntryType is the closed set of item kinds a directory listing can return.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDir       EntryType = "dir"
	EntrySymlink   EntryType = "symlink"
	EntrySubmodule EntryType = "submodule"
)

// RemoteEntry is one item returned by a directory listing call.
type RemoteEntry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	Size        int64     `json:"size"`
	SHA         string    `json:"sha"`
	DownloadURL string    `json:"download_url"`
}
