package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "journeycal/internal/log"
)

// Subscription is a remote calendar feed.
type Subscription struct {
	ID  string
	URL string
}

// FetchResult is the body of one subscription, fresh or from the disk cache.
type FetchResult struct {
	Subscription Subscription
	Body         []byte
	FromCache    bool
}

// cacheMeta holds HTTP validators for one feed URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads subscriptions using conditional requests and keeps the
// last good body on disk so a flaky feed still yields drafts.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir. A nil client gets a
// 15 second timeout client.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// FetchAll fetches every subscription. Failures are logged and returned;
// results only contain subscriptions that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, subs []Subscription) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(subs))
	var errs []error

	for _, sub := range subs {
		res, err := f.Fetch(ctx, sub)
		if err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			appLog.Error("ics fetch failed", err, "id", sub.ID, "url", redactURL(sub.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// Fetch downloads one subscription, honoring ETag and Last-Modified. On a
// network error or non-OK status with a cached body, the cached body wins.
func (f *Fetcher) Fetch(ctx context.Context, sub Subscription) (FetchResult, error) {
	if sub.URL == "" {
		return FetchResult{}, errors.New("subscription URL is empty")
	}

	dir := f.cachePath(sub.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))
	fallback := func(reason error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, reason
		}
		appLog.Error("ics fetch degraded, using cached body", reason, "id", sub.ID, "url", redactURL(sub.URL))
		return FetchResult{Subscription: sub, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9")
	if meta.URL == sub.URL {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
		if err != nil {
			return fallback(err)
		}
		if len(body) > MaxFileSize {
			return fallback(errors.New("feed larger than 5MB"))
		}
		m := cacheMeta{
			URL:          sub.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, m, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", sub.ID, "url", redactURL(sub.URL))
		}
		appLog.Debug("ics fetch success", "id", sub.ID, "url", redactURL(sub.URL), "bytes", len(body))
		return FetchResult{Subscription: sub, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		return FetchResult{Subscription: sub, Body: cached, FromCache: true}, nil

	default:
		return fallback(errors.New(resp.Status))
	}
}

func (f *Fetcher) cachePath(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return cacheMeta{}, err
	}
	return m, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func saveCache(dir string, m cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; feed paths and query strings often
// embed private tokens.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
