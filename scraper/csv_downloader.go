// scraper/csv_downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// maxExportBytes caps how much of a remote export is read into memory.
const maxExportBytes = 64 << 20

func httpGet(ctx context.Context, url string, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// Create a new HTTP client with a timeout
	client := http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request for %s: %w", url, err)
	}
	// Make the GET request
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	// Check for a successful status code
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file from %s: received status code %d", url, resp.StatusCode)
	}
	return resp, nil
}

// FetchExport downloads a price-list export and returns its body as text.
func FetchExport(ctx context.Context, url string, timeout time.Duration) (string, error) {
	log.Info().Str("url", url).Msg("Scraper: fetching price list export")

	resp, err := httpGet(ctx, url, timeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Read one byte past the cap so an oversized export is detected
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read export body from %s: %w", url, err)
	}
	if len(body) > maxExportBytes {
		return "", fmt.Errorf("export at %s exceeds %d bytes", url, maxExportBytes)
	}
	return string(body), nil
}

// DownloadFile downloads url and saves it to localSavePath, creating the
// directory if needed. The caller keeps the file as an archive of the export.
func DownloadFile(ctx context.Context, url, localSavePath string, timeout time.Duration) error {
	log.Info().Str("url", url).Str("path", localSavePath).Msg("Scraper: downloading export")

	resp, err := httpGet(ctx, url, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Ensure the target directory exists
	dir := filepath.Dir(localSavePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Create the local file
	outFile, err := os.Create(localSavePath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localSavePath, err)
	}
	defer outFile.Close()

	// Write the body to the file
	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localSavePath, err)
	}

	log.Info().Str("url", url).Str("path", localSavePath).Msg("Scraper: download complete")
	return nil
}
