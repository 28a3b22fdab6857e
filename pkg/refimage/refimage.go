// Package refimage manages the reference photo pool used to keep generated
// selfies on-model.
package refimage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// cloudinaryTransform requests a ~1024px wide variant with automatic quality
// and format, keeping reference payloads small.
const cloudinaryTransform = "w_1024,q_auto,f_auto"

// Pool is a set of candidate reference photo URLs. Selfie generation picks
// at most one per call to bound request payload size.
type Pool struct {
	urls   []string
	client *http.Client
}

// New builds a pool over the given URLs. A nil client gets a default with a
// 15 second timeout.
func New(urls []string, client *http.Client) *Pool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Pool{urls: urls, client: client}
}

// Empty reports whether the pool has no entries.
func (p *Pool) Empty() bool { return len(p.urls) == 0 }

// PickOne returns one URL chosen uniformly at random, rewritten for
// optimized delivery. ok is false when the pool is empty.
func (p *Pool) PickOne() (picked string, ok bool) {
	if len(p.urls) == 0 {
		return "", false
	}
	return OptimizeURL(p.urls[rand.IntN(len(p.urls))]), true
}

// Fetch downloads a reference image and returns its mime type and bytes.
func (p *Pool) Fetch(ctx context.Context, rawURL string) (mimeType string, data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("building reference image request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetching reference image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetching reference image: unexpected status %s", resp.Status)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("reading reference image: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("reference image is empty")
	}

	mimeType = resp.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return mimeType, data, nil
}

// OptimizeURL rewrites known image-host URLs to request a resized,
// quality- and format-autotuned variant. Unknown hosts and already
// transformed URLs pass through unchanged.
func OptimizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "res.cloudinary.com" {
		return rawURL
	}
	const marker = "/upload/"
	before, after, found := strings.Cut(u.Path, marker)
	if !found || strings.HasPrefix(after, "w_") {
		return rawURL
	}
	u.Path = before + marker + cloudinaryTransform + "/" + after
	return u.String()
}
