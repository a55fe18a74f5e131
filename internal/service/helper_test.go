package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/stretchr/testify/mock"

	"releasewatch/internal/analysis"
	"releasewatch/internal/notify"
	"releasewatch/internal/rss"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// pusherMock is a testify mock for the Pusher
type pusherMock struct {
	mock.Mock
}

func (m *pusherMock) Push(ctx context.Context, msg notify.Message) (int, error) {
	args := m.Called(ctx, msg)
	return args.Int(0), args.Error(1)
}

// pushedTitles lists the titles passed to Push, in call order.
func (m *pusherMock) pushedTitles() []string {
	var titles []string
	for _, call := range m.Calls {
		if call.Method == "Push" {
			titles = append(titles, call.Arguments.Get(1).(notify.Message).Title)
		}
	}
	return titles
}

// summarizerMock is a testify mock for the analysis.Summarizer
type summarizerMock struct {
	mock.Mock
}

func (m *summarizerMock) Summarize(ctx context.Context, item analysis.Item) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *summarizerMock) Ready() bool {
	return m.Called().Bool(0)
}

type staticFetcher struct {
	entries []rss.Entry
	err     error
	calls   int
}

func (f *staticFetcher) Fetch(context.Context) ([]rss.Entry, error) {
	f.calls++
	return f.entries, f.err
}

type memoryCursor struct {
	id      string
	loadErr error
	saveErr error
	saves   []string
}

func (c *memoryCursor) Load(context.Context) (string, error) {
	if c.loadErr != nil {
		return "", c.loadErr
	}
	return c.id, nil
}

func (c *memoryCursor) Save(_ context.Context, id string) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.id = id
	c.saves = append(c.saves, id)
	return nil
}

func (c *memoryCursor) Close() error { return nil }

var errBoom = errors.New("boom")

func entries(ids ...string) []rss.Entry {
	out := make([]rss.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, rss.Entry{ID: id, Title: "title " + id, Link: "https://developer.apple.com/news/releases/?id=" + id})
	}
	return out
}
