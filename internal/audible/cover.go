package audible

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"audtag/internal/shared"
)

// Size tokens Amazon image URLs are known to carry, and the resolutions
// worth trying when downloading, best first. _SL5000_ works for some book
// covers but not all, hence the fallback ladder.
var (
	knownSizeTokens = []string{
		"_SL5000_", "_SL4000_", "_SL3000_", "_SL2400_", "_SL2000_",
		"_SL1500_", "_SL1200_", "_SL1000_", "_SL800_", "_SL600_",
		"_SS500_", "_SL500_", "_SL300_", "_SL175_", "_SX500_",
	}
	downloadResolutions = []string{
		"_SL5000_", "_SL4000_", "_SL3000_", "_SL2400_", "_SL2000_",
		"_SL1500_", "_SL1200_", "_SL1000_", "_SL800_", "_SS500_",
		"_SL500_", "_SL300_",
	}
)

// minCoverBytes filters out placeholder images the CDN serves for
// resolutions it does not have.
const minCoverBytes = 1000

// UpgradeCoverURL replaces a known size token in an image URL with the
// highest documented resolution. URLs without a token pass through
// unmodified.
func UpgradeCoverURL(coverURL string) string {
	if coverURL == "" {
		return ""
	}
	for _, token := range knownSizeTokens {
		if strings.Contains(coverURL, token) {
			return strings.Replace(coverURL, token, "_SL5000_", 1)
		}
	}
	return coverURL
}

// coverURLAt swaps whatever size token the URL carries for the given one.
func coverURLAt(coverURL, resolution string) string {
	for _, token := range knownSizeTokens {
		if strings.Contains(coverURL, token) {
			return strings.Replace(coverURL, token, resolution, 1)
		}
	}
	return coverURL
}

// DownloadCover fetches the cover image, walking down the resolution
// ladder until one succeeds, and writes it to savePath.
func (c *Client) DownloadCover(ctx context.Context, coverURL, savePath string) error {
	if coverURL == "" {
		return fmt.Errorf("no cover URL")
	}

	var lastErr error
	for _, resolution := range downloadResolutions {
		data, err := c.fetchImage(ctx, coverURLAt(coverURL, resolution))
		if err != nil {
			lastErr = err
			shared.DebugPrint(c.debug, "cover fetch failed at %s: %v", resolution, err)
			continue
		}
		if len(data) < minCoverBytes {
			lastErr = fmt.Errorf("placeholder image at %s (%d bytes)", resolution, len(data))
			continue
		}
		if err := os.WriteFile(savePath, data, 0644); err != nil {
			return fmt.Errorf("failed to save cover: %w", err)
		}
		shared.DebugPrint(c.debug, "saved %d cover bytes at %s", len(data), resolution)
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable resolution")
	}
	return fmt.Errorf("cover download failed: %w", lastErr)
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", shared.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: imageURL}
	}
	return io.ReadAll(resp.Body)
}
