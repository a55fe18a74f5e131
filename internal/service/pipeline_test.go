package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releasewatch/internal/detect"
	"releasewatch/internal/notify"
	"releasewatch/internal/rss"
	"releasewatch/internal/storage"
)

type feedStub struct {
	mu    sync.Mutex
	items []string
}

func (f *feedStub) set(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = ids
}

func (f *feedStub) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Releases</title>`)
	for _, id := range f.items {
		fmt.Fprintf(&sb, `<item><title>Release %s</title><link>https://developer.apple.com/news/releases/?id=%s</link><guid>%s</guid></item>`, id, id, id)
	}
	sb.WriteString(`</channel></rss>`)
	w.Header().Set("Content-Type", "application/rss+xml")
	_, _ = w.Write([]byte(sb.String()))
}

type barkStub struct {
	mu     sync.Mutex
	titles []string
}

func (b *barkStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	b.mu.Lock()
	if len(parts) >= 2 {
		b.titles = append(b.titles, parts[1])
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *barkStub) pushed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.titles...)
	b.titles = nil
	return out
}

func TestPipeline_ColdStartThenIncremental(t *testing.T) {
	feed := &feedStub{}
	feedSrv := httptest.NewServer(feed)
	defer feedSrv.Close()
	bark := &barkStub{}
	barkSrv := httptest.NewServer(bark)
	defer barkSrv.Close()

	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "last_update_id.txt")
	cursor := storage.NewFileStore(cachePath, discardLogger())
	fetcher := rss.NewRetryingFetcher(rss.NewFetcher(feedSrv.URL, 15, discardLogger()), 6, 0, discardLogger())
	pusher := notify.NewBark(barkSrv.URL, "key", "AppleUpdate", barkSrv.Client())
	c := NewChecker(fetcher, pusher, nil, cursor, discardLogger(), Options{ColdStart: detect.ColdStartLatest})

	// first deployment: only the newest entry is announced
	feed.set("3", "2", "1")
	res := c.RunOnce(ctx)
	assert.Equal(t, []string{"Release 3"}, bark.pushed())
	assert.True(t, res.CacheUpdated)
	id, err := cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", id)

	// nothing changed
	c.RunOnce(ctx)
	assert.Empty(t, bark.pushed())

	// two new releases arrive
	feed.set("5", "4", "3", "2", "1")
	c.RunOnce(ctx)
	assert.Equal(t, []string{"Release 4", "Release 5"}, bark.pushed())
	id, err = cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", id)
}

func TestPipeline_EmptyFeedExhaustsRetries(t *testing.T) {
	feed := &feedStub{}
	var hits int
	var mu sync.Mutex
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		feed.ServeHTTP(w, r)
	}))
	defer feedSrv.Close()

	ctx := context.Background()
	cursor := storage.NewFileStore(filepath.Join(t.TempDir(), "last_update_id.txt"), discardLogger())
	fetcher := rss.NewRetryingFetcher(rss.NewFetcher(feedSrv.URL, 15, discardLogger()), 6, 0, discardLogger())
	c := NewChecker(fetcher, &pusherMock{}, nil, cursor, discardLogger(), Options{})

	res := c.RunOnce(ctx)

	mu.Lock()
	assert.Equal(t, 6, hits)
	mu.Unlock()
	assert.Contains(t, res.Err, rss.ErrRetriesExhausted.Error())
	id, err := cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", id)
}
