package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"releasewatch/internal/analysis"
	"releasewatch/internal/detect"
	"releasewatch/internal/notify"
	"releasewatch/internal/rss"
	"releasewatch/internal/storage"
)

// Pusher delivers one notification and reports the gateway status code.
type Pusher interface {
	Push(ctx context.Context, msg notify.Message) (int, error)
}

// Result summarizes one check.
type Result struct {
	StartedAt    time.Time `json:"started_at"`
	Fetched      int       `json:"fetched"`
	New          int       `json:"new"`
	Pushed       int       `json:"pushed"`
	Failed       int       `json:"failed"`
	CacheUpdated bool      `json:"cache_updated"`
	LastID       string    `json:"last_id"`
	Err          string    `json:"error,omitempty"`
}

// Options tune a Checker.
type Options struct {
	ColdStart    detect.ColdStart
	PollInterval time.Duration
	BindAddr     string
}

// Checker ties together feed polling, change detection and push delivery.
type Checker struct {
	fetcher    rss.Source
	pusher     Pusher
	summarizer analysis.Summarizer
	cursor     storage.Cursor
	logger     *log.Logger
	opts       Options

	mu   sync.RWMutex
	last *Result
}

// NewChecker creates a Checker. summarizer may be nil.
func NewChecker(fetcher rss.Source, pusher Pusher, summarizer analysis.Summarizer, cursor storage.Cursor, logger *log.Logger, opts Options) *Checker {
	return &Checker{
		fetcher:    fetcher,
		pusher:     pusher,
		summarizer: summarizer,
		cursor:     cursor,
		logger:     logger,
		opts:       opts,
	}
}

// RunOnce performs a single fetch, diff, notify and persist cycle. Failures
// are logged and reported in the Result; the cursor is only written when
// the fetch succeeded and produced new entries.
func (c *Checker) RunOnce(ctx context.Context) Result {
	res := Result{StartedAt: time.Now()}
	defer func() { c.record(res) }()

	lastID, err := c.cursor.Load(ctx)
	if err != nil {
		c.logger.Printf("load last update id failed, treating as first run: %v", err)
		lastID = ""
	}
	res.LastID = lastID

	entries, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.logger.Printf("fetch failed, cache left untouched: %v", err)
		res.Err = err.Error()
		return res
	}
	res.Fetched = len(entries)

	fresh := detect.NewEntries(entries, lastID, c.opts.ColdStart)
	res.New = len(fresh)
	if len(fresh) == 0 {
		c.logger.Println("No new updates.")
		return res
	}
	c.logger.Printf("Found %d new updates.", len(fresh))

	for _, entry := range detect.OldestFirst(fresh) {
		status, err := c.pusher.Push(ctx, c.message(ctx, entry))
		if err != nil {
			res.Failed++
			c.logger.Printf("push failed: %s, status=%d: %v", entry.Title, status, err)
			continue
		}
		res.Pushed++
		c.logger.Printf("Pushed: %s, status=%d", entry.Title, status)
	}

	newest, _ := detect.Newest(entries)
	if err := c.cursor.Save(ctx, newest); err != nil {
		c.logger.Printf("save last update id failed: %v", err)
		res.Err = err.Error()
		return res
	}
	res.CacheUpdated = true
	res.LastID = newest
	c.logger.Printf("run finished: pushed=%d failed=%d last_id=%q", res.Pushed, res.Failed, res.LastID)
	return res
}

func (c *Checker) message(ctx context.Context, entry rss.Entry) notify.Message {
	msg := notify.Message{Title: entry.Title, Body: entry.Title, Link: entry.Link}
	if c.summarizer == nil || !c.summarizer.Ready() {
		return msg
	}
	summary, err := c.summarizer.Summarize(ctx, analysis.Item{
		Title:       entry.Title,
		Link:        entry.Link,
		PublishedAt: entry.PublishedAt,
		Description: entry.Description,
	})
	if err != nil {
		c.logger.Printf("summary failed for %s, using title: %v", entry.Title, err)
		return msg
	}
	msg.Body = summary
	return msg
}

func (c *Checker) record(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &res
}

// Last returns the most recent Result, if any.
func (c *Checker) Last() (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Run starts the HTTP status server and the polling loop.
func (c *Checker) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    c.opts.BindAddr,
		Handler: c.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		c.logger.Printf("HTTP server listening on %s", c.opts.BindAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Printf("http server error: %v", err)
		}
	}()

	// Kick off an initial check.
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Println("stopping watcher, context cancelled")
			return nil
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// Handler serves /healthz and /status.
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", c.healthHandler)
	mux.HandleFunc("/status", c.statusHandler)
	return mux
}

func (c *Checker) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (c *Checker) statusHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := c.Last()
	if !ok {
		http.Error(w, "no run yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		c.logger.Printf("write status response failed: %v", err)
	}
}
