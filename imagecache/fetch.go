package imagecache

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

var defaultHTTPClient = &http.Client{
	Timeout: 20 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// HTTPFetcher downloads images over HTTP(S) and decodes png, jpeg and webp.
// URLs with a file:// prefix are read from the local filesystem. At most
// Concurrency downloads run at the same time.
type HTTPFetcher struct {
	client *http.Client
	sem    *semaphore.Weighted
}

func NewHTTPFetcher(client *http.Client, concurrency int) *HTTPFetcher {
	if client == nil {
		client = defaultHTTPClient
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &HTTPFetcher{client: client, sem: semaphore.NewWeighted(int64(concurrency))}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	if path, ok := strings.CutPrefix(url, "file://"); ok {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		img, _, err := image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", url, err)
		}
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %s", url, resp.Status)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return img, nil
}
