package probe

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder for DecodeConfig
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"io"
	"net/http"
	"strings"
	"time"

	"ImportFixer/internal/domain"
	"ImportFixer/internal/ports"
)

const (
	defaultTimeout = 10 * time.Second
	drainLimit     = 4 << 10
	headerLimit    = 1 << 20
)

// HTTPProber checks whether remote files exist and reads image metadata.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

var _ ports.Prober = (*HTTPProber)(nil)

// NewHTTPProber wires an HTTP client; a nil client gets a 10s timeout.
func NewHTTPProber(client *http.Client, userAgent string) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if userAgent == "" {
		userAgent = "ImportFixer/1.0"
	}
	return &HTTPProber{client: client, userAgent: userAgent}
}

// Exists sends a HEAD request and reports a 2xx answer as existing. Servers
// that refuse HEAD are asked again with GET. Transport failures return
// (false, err).
func (p *HTTPProber) Exists(ctx context.Context, rawURL string) (bool, error) {
	status, err := p.status(ctx, http.MethodHead, rawURL)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		if status, err = p.status(ctx, http.MethodGet, rawURL); err != nil {
			return false, err
		}
	}
	return status >= http.StatusOK && status < http.StatusMultipleChoices, nil
}

// Describe downloads the start of an image and reports its type, size and
// dimensions. Dimensions stay zero for formats without a registered decoder.
func (p *HTTPProber) Describe(ctx context.Context, rawURL string) (domain.AssetMetadata, error) {
	req, err := p.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return domain.AssetMetadata{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.AssetMetadata{}, fmt.Errorf("request asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.AssetMetadata{}, fmt.Errorf("asset returned %s", resp.Status)
	}

	meta := domain.AssetMetadata{MimeType: mediaType(resp.Header.Get("Content-Type"))}
	if resp.ContentLength > 0 {
		meta.FileSize = resp.ContentLength
	}

	if cfg, format, err := image.DecodeConfig(io.LimitReader(resp.Body, headerLimit)); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
		if !strings.HasPrefix(meta.MimeType, "image/") {
			meta.MimeType = "image/" + format
		}
	}

	return meta, nil
}

func (p *HTTPProber) status(ctx context.Context, method, rawURL string) (int, error) {
	req, err := p.newRequest(ctx, method, rawURL)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", rawURL, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	if closeErr := resp.Body.Close(); closeErr != nil {
		return 0, fmt.Errorf("close probe body: %w", closeErr)
	}

	return resp.StatusCode, nil
}

func (p *HTTPProber) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	return req, nil
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
