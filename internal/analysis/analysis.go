package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// maxSummaryRunes bounds the push body.
const maxSummaryRunes = 120

// Item contains the fields passed to the model.
type Item struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Description string
}

// Summarizer abstracts AI generated push bodies.
type Summarizer interface {
	Summarize(ctx context.Context, item Item) (string, error)
	Ready() bool
}

// ErrDisabled is returned when no API key was configured.
var ErrDisabled = errors.New("openai client disabled: missing OPENAI_API_KEY")

// Client implements Summarizer using the OpenAI chat completion API.
type Client struct {
	client    *openai.Client
	model     string
	logger    *log.Logger
	activated bool
}

// NewClient builds a new Summarizer. If apiKey is empty, calls will be no-op with errors.
func NewClient(apiKey, model, baseURL string, logger *log.Logger) *Client {
	var cli *openai.Client
	activated := apiKey != ""
	if activated {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		cli = openai.NewClientWithConfig(cfg)
	}
	return &Client{
		client:    cli,
		model:     model,
		logger:    logger,
		activated: activated,
	}
}

// Ready indicates whether the summarizer is usable.
func (c *Client) Ready() bool {
	return c.activated && c.client != nil
}

// Summarize asks the model for a one-line description of a release entry.
func (c *Client) Summarize(ctx context.Context, item Item) (string, error) {
	if !c.Ready() {
		return "", ErrDisabled
	}

	systemPrompt := "You write push notification bodies for Apple developer release announcements.\n" +
		"Reply with one plain-text line of at most 100 characters that says what was released " +
		"(product, version, build number, beta or final). No quotes, no markdown, no emoji."

	published := "unknown"
	if !item.PublishedAt.IsZero() {
		published = item.PublishedAt.Format(time.RFC3339)
	}
	userPrompt := fmt.Sprintf("Title: %s\nLink: %s\nPublished: %s\nDescription: %s",
		item.Title,
		item.Link,
		published,
		trimText(item.Description, 800),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", item.Title, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned by OpenAI")
	}

	summary := cleanupResponse(resp.Choices[0].Message.Content)
	if summary == "" {
		c.logger.Printf("empty summary for %q, raw=%q", item.Title, resp.Choices[0].Message.Content)
		return "", errors.New("empty summary returned by OpenAI")
	}
	return trimText(summary, maxSummaryRunes), nil
}

func trimText(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}

// cleanupResponse strips code fences and wrapping quotes and keeps the first non-empty line.
func cleanupResponse(s string) string {
	c := strings.TrimSpace(s)
	if strings.HasPrefix(c, "```") {
		if idx := strings.Index(c, "\n"); idx != -1 {
			c = c[idx+1:]
		}
		c = strings.TrimSuffix(strings.TrimSpace(c), "```")
	}
	for _, line := range strings.Split(c, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.Trim(line, "\"'“”")
	}
	return ""
}
