package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_ConditionalAndFallback(t *testing.T) {
	body := calendar(`UID:f
SUMMARY:Feed item
DTSTART:20240105T140000Z`)

	var (
		hits    atomic.Int32
		failing atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	sub := Subscription{ID: "work", URL: srv.URL + "/private/token.ics"}
	ctx := context.Background()

	first, err := f.Fetch(ctx, sub)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, body, first.Body)

	second, err := f.Fetch(ctx, sub)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "304 served from cache")
	assert.Equal(t, body, second.Body)

	failing.Store(true)
	third, err := f.Fetch(ctx, sub)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	results, errs := f.FetchAll(context.Background(), []Subscription{
		{ID: "missing", URL: srv.URL + "/nope.ics"},
		{ID: "empty"},
	})
	assert.Empty(t, results)
	assert.Len(t, errs, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/u/123/basic.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
	assert.Equal(t, "", redactURL(""))
}
