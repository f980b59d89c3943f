// Package github fetches published corpus releases from GitHub. The
// annotation pipeline publishes each corpus build as a release with the
// NDJSON and index files attached as assets; this package locates and
// downloads them.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v77/github"
)

var (
	ErrAssetNotFound = errors.New("release asset not found")
	ErrBadRepoURL    = errors.New("cannot parse repository reference")
)

// NewClient creates a GitHub API client. An empty token yields an
// unauthenticated client, which is enough for public vaults at the
// anonymous rate limit.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token == "" {
		return client
	}
	return client.WithAuthToken(token)
}

// LatestRelease fetches the most recent published release.
func LatestRelease(ctx context.Context, client *github.Client, owner, repo string) (*Release, error) {
	ghRelease, _, err := client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, handleAPIError(err, "failed to get latest release")
	}
	return ParseRelease(ghRelease), nil
}

// ReleaseByTag fetches a specific release by its tag name.
func ReleaseByTag(ctx context.Context, client *github.Client, owner, repo, tag string) (*Release, error) {
	ghRelease, _, err := client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return nil, handleAPIError(err, fmt.Sprintf("failed to get release %s", tag))
	}
	return ParseRelease(ghRelease), nil
}

// FindAsset locates a release asset by exact file name.
func FindAsset(release *Release, name string) (*Asset, error) {
	for i := range release.Assets {
		if release.Assets[i].Name == name {
			return &release.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in release %s", ErrAssetNotFound, name, release.TagName)
}

// DownloadAsset streams a release asset. The caller owns the returned
// reader and must close it.
func DownloadAsset(ctx context.Context, client *github.Client, owner, repo string, assetID int64) (io.ReadCloser, error) {
	rc, _, err := client.Repositories.DownloadReleaseAsset(ctx, owner, repo, assetID, http.DefaultClient)
	if err != nil {
		return nil, handleAPIError(err, "failed to download asset")
	}
	return rc, nil
}

// ParseRelease converts a go-github RepositoryRelease to our Release struct
func ParseRelease(ghRelease *github.RepositoryRelease) *Release {
	release := &Release{
		ID:         ghRelease.GetID(),
		TagName:    ghRelease.GetTagName(),
		Name:       ghRelease.GetName(),
		Body:       ghRelease.GetBody(),
		Draft:      ghRelease.GetDraft(),
		Prerelease: ghRelease.GetPrerelease(),
		HTMLURL:    ghRelease.GetHTMLURL(),
	}

	if ghRelease.PublishedAt != nil {
		release.PublishedAt = ghRelease.GetPublishedAt().Time
	}

	for _, ghAsset := range ghRelease.Assets {
		if ghAsset == nil {
			continue
		}
		release.Assets = append(release.Assets, Asset{
			ID:            ghAsset.GetID(),
			Name:          ghAsset.GetName(),
			Label:         ghAsset.GetLabel(),
			ContentType:   ghAsset.GetContentType(),
			Size:          ghAsset.GetSize(),
			DownloadCount: ghAsset.GetDownloadCount(),
			URL:           ghAsset.GetBrowserDownloadURL(),
		})
	}

	return release
}

// ParseRepoURL resolves a repository reference into owner and repo.
// Accepts "owner/repo" shorthand, https URLs, and SSH URLs, with or
// without a trailing .git.
func ParseRepoURL(url string) (owner, repo string, err error) {
	ref := strings.TrimSpace(url)
	ref = strings.TrimPrefix(ref, "https://")
	ref = strings.TrimPrefix(ref, "http://")
	ref = strings.TrimPrefix(ref, "git@")

	// SSH URLs separate host and path with a colon
	ref = strings.Replace(ref, ":", "/", 1)

	ref = strings.TrimPrefix(ref, "github.com/")
	ref = strings.TrimSuffix(ref, ".git")
	ref = strings.TrimSuffix(ref, "/")

	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadRepoURL, url)
	}

	return parts[0], parts[1], nil
}

// handleAPIError wraps API errors with context and detects rate limiting
func handleAPIError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Errorf("%s: hit primary rate limit (used %d of %d, resets at %v): %w",
			msg, rateLimitErr.Rate.Used, rateLimitErr.Rate.Limit, rateLimitErr.Rate.Reset.Time, err)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := abuseErr.GetRetryAfter()
		return fmt.Errorf("%s: hit secondary rate limit (retry after %v): %w",
			msg, retryAfter, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
