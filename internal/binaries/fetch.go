package binaries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	getter "github.com/hashicorp/go-getter/v2"
)

// Fetcher wraps go-getter for downloading binary archives and
// unpacking them into the binary root.
type Fetcher struct {
	client *getter.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher with default configuration.
func NewFetcher(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &getter.Client{
			DisableSymlinks: true,
		},
		logger: logger,
	}
}

// FetchFile downloads the archive at src to the dest path, without
// unpacking it. src may be any go-getter source (https, file, ...).
func (f *Fetcher) FetchFile(ctx context.Context, src, dest string) error {
	// Keep the archive intact; unpacking is a separate, cached step.
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}
	fullSrc := src + sep + "archive=false"
	f.logger.Debug("fetching archive", "src", src, "dest", dest)

	req := &getter.Request{
		Src:             fullSrc,
		Dst:             dest,
		GetMode:         getter.ModeFile,
		DisableSymlinks: true,
	}
	if _, err := f.client.Get(ctx, req); err != nil {
		return fmt.Errorf("fetching %s: %w", src, err)
	}
	return nil
}

// Unpack extracts a local archive into destDir. The archive format is
// inferred from the file extension.
func (f *Fetcher) Unpack(ctx context.Context, archivePath, destDir string) error {
	f.logger.Debug("unpacking archive", "archive", archivePath, "dest", destDir)

	req := &getter.Request{
		Src:             archivePath,
		Dst:             destDir,
		GetMode:         getter.ModeDir,
		DisableSymlinks: true,
	}
	if _, err := f.client.Get(ctx, req); err != nil {
		return fmt.Errorf("unpacking %s: %w", archivePath, err)
	}
	return nil
}
