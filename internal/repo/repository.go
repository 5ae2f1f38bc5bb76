package repo

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultUpstream = "origin"
	DefaultBranch   = "master"
	DefaultUsername = "GitSync"
	DefaultEmail    = "gitsync@localhost"

	// MetadataDir marks a working tree as already initialized.
	MetadataDir = ".git"
)

// Remote is either absent (the zero value) or a URL.
type Remote struct {
	url string
}

// NoRemote returns the absent remote.
func NoRemote() Remote { return Remote{} }

// RemoteURL returns a remote pointing at url. A blank url yields NoRemote.
func RemoteURL(url string) Remote {
	return Remote{url: strings.TrimSpace(url)}
}

// URL returns the remote URL and whether one is configured.
func (r Remote) URL() (string, bool) {
	return r.url, r.url != ""
}

// IsSet reports whether a remote is configured.
func (r Remote) IsSet() bool { return r.url != "" }

func (r Remote) String() string {
	if r.url == "" {
		return "<none>"
	}
	return r.url
}

// Repository describes one managed working tree.
type Repository struct {
	Name      string
	Directory string
	Enabled   bool
	Remote    Remote
	Upstream  string
	Branch    string
	Username  string
	Email     string

	// LocalRepoCreated is true once Directory holds git metadata.
	LocalRepoCreated bool

	// IgnoreList is written to .gitignore by the ignore package.
	IgnoreList []string
}

// New returns an enabled-false record with default upstream, branch and identity.
func New(name, directory string) *Repository {
	return &Repository{
		Name:      name,
		Directory: directory,
		Upstream:  DefaultUpstream,
		Branch:    DefaultBranch,
		Username:  DefaultUsername,
		Email:     DefaultEmail,
	}
}

// Syncable reports whether the record takes part in remote operations.
func (r *Repository) Syncable() bool {
	return r != nil && r.Enabled && r.Remote.IsSet()
}

// DirectoryExists reports whether Directory exists and is a directory.
func (r *Repository) DirectoryExists() bool {
	if r == nil || r.Directory == "" {
		return false
	}
	info, err := os.Stat(r.Directory)
	return err == nil && info.IsDir()
}

// HasMetadata reports whether the metadata marker exists inside Directory.
func (r *Repository) HasMetadata() bool {
	if r == nil || r.Directory == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(r.Directory, MetadataDir))
	return err == nil
}
