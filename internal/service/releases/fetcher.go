// Package releases fetches the upstream release list from the GitHub API.
package releases

import (
	"context"
	"fmt"

	"github.com/oshokin/ollama-updater/internal/domain/release"
	"github.com/oshokin/ollama-updater/internal/logger"
	"github.com/oshokin/ollama-updater/internal/service/common"
)

// Fetcher reads the first page of the releases endpoint.
type Fetcher struct {
	client *common.Client
	url    string
}

// NewFetcher creates a fetcher for the releases list at url.
func NewFetcher(client *common.Client, url string) *Fetcher {
	return &Fetcher{
		client: client,
		url:    url,
	}
}

// Fetch returns releases in API order (newest first). It does not paginate.
func (f *Fetcher) Fetch(ctx context.Context) ([]release.Release, error) {
	logger.DebugKV(ctx, "Fetching release list", "url", f.url)

	var releases []release.Release
	if err := f.client.GetJSON(ctx, f.url, &releases); err != nil {
		return nil, fmt.Errorf("fetch releases: %w", err)
	}

	logger.DebugKV(ctx, "Fetched release list", "count", len(releases))

	return releases, nil
}
