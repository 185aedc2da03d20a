package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Fetcher downloads dataset files over HTTP.
type Fetcher struct {
	rest *resty.Client
}

// NewFetcher builds a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	return &Fetcher{rest: r}
}

// Download fetches url and writes the body to destPath, creating parent
// directories as needed.
func (f *Fetcher) Download(url, destPath string) error {
	resp, err := f.rest.R().Get(url)
	if err != nil {
		return fmt.Errorf("dataset download failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("dataset download failed: status %d, body: %s",
			resp.StatusCode(), resp.String())
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if err := os.WriteFile(destPath, resp.Body(), 0644); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}

	log.Info().
		Str("url", url).
		Str("file", destPath).
		Int("bytes", len(resp.Body())).
		Msg("Dataset downloaded")

	return nil
}

// Ensure downloads the dataset only when the local file is missing.
func (f *Fetcher) Ensure(url, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return nil
	}
	if url == "" {
		return fmt.Errorf("dataset file %s is missing and no download URL is configured", destPath)
	}
	return f.Download(url, destPath)
}
