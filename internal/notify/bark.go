package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is one push notification.
type Message struct {
	Title string
	Body  string
	Link  string
}

// StatusError reports a non-2xx reply from the gateway.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bark returned non-2xx status: %s", e.Status)
}

// Bark sends notifications through a Bark server.
type Bark struct {
	baseURL string
	key     string
	group   string
	client  *http.Client
}

// NewBark builds a Bark client. client may be nil.
func NewBark(baseURL, key, group string, client *http.Client) *Bark {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Bark{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		group:   group,
		client:  client,
	}
}

// PushURL renders the GET URL for msg. Title and body are escaped as path
// segments; link and group are query parameters.
func (b *Bark) PushURL(msg Message) string {
	var sb strings.Builder
	sb.WriteString(b.baseURL)
	for _, segment := range []string{b.key, msg.Title, msg.Body} {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(segment))
	}

	q := url.Values{}
	if msg.Link != "" {
		q.Set("url", msg.Link)
	}
	if b.group != "" {
		q.Set("group", b.group)
	}
	if len(q) > 0 {
		sb.WriteByte('?')
		sb.WriteString(q.Encode())
	}
	return sb.String()
}

// Push sends msg and returns the HTTP status code. Any status outside 2xx
// is returned together with a *StatusError.
func (b *Bark) Push(ctx context.Context, msg Message) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.PushURL(msg), nil)
	if err != nil {
		return 0, fmt.Errorf("build bark request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send bark request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.StatusCode, nil
}
