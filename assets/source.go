package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrFetch wraps every failure to retrieve an asset.
var ErrFetch = errors.New("asset fetch failed")

// maxAssetBytes bounds a single SVG download.
const maxAssetBytes = 4 << 20

// Source fetches SVG markup over HTTP(S) or from the local filesystem.
// Relative paths resolve against Root.
type Source struct {
	Client *http.Client
	Root   string
}

// NewSource creates a source with a bounded HTTP client.
func NewSource(root string) *Source {
	return &Source{
		Client: &http.Client{Timeout: 10 * time.Second},
		Root:   root,
	}
}

// Fetch retrieves and parses one asset.
func (s *Source) Fetch(ctx context.Context, url string) (*Sprite, error) {
	markup, err := s.fetchText(ctx, url)
	if err != nil {
		return nil, err
	}
	sprite, err := ParseSprite(url, markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return sprite, nil
}

func (s *Source) fetchText(ctx context.Context, url string) (string, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return s.fetchHTTP(ctx, url)
	}

	p := url
	if !filepath.IsAbs(p) && s.Root != "" {
		p = filepath.Join(s.Root, p)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return string(data), nil
}

func (s *Source) fetchHTTP(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: status %s", ErrFetch, url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrFetch, url, err)
	}
	return string(data), nil
}
