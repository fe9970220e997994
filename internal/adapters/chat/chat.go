// Package chat answers volunteer questions through the Gemini API.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

const (
	defaultModel         = "gemini-2.5-flash"
	defaultMaxMessageLen = 2000
	defaultMaxAttempts   = 2
	defaultRetryDelay    = 500 * time.Millisecond
	defaultTimeout       = 30 * time.Second
	maxOutputTokens      = 1024
)

const systemPrompt = `You are the assistant of a platform that matches volunteers with NGO projects.
Answer questions about volunteering, building a good volunteer profile, and how matching works.
Matches are scored out of 100 from skills, location, interests, availability and experience.
Keep answers short and friendly. Do not invent specific projects or organizations.`

// Sentinel kinds for chat errors.
var (
	ErrDisabled     = errors.New("chat is not configured")
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrTooLong      = errors.New("message is too long")
	ErrUpstream     = errors.New("chat provider failed")
)

// Responder produces a reply to a user message.
type Responder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// contentGenerator is the part of genai.Models the responder calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Option configures a GeminiResponder.
type Option func(*GeminiResponder)

// WithModel selects the Gemini model.
func WithModel(model string) Option {
	return func(g *GeminiResponder) {
		if model = strings.TrimSpace(model); model != "" {
			g.model = model
		}
	}
}

// WithMaxMessageLen bounds the accepted message length in characters.
func WithMaxMessageLen(n int) Option {
	return func(g *GeminiResponder) {
		if n > 0 {
			g.maxMessageLen = n
		}
	}
}

// WithTimeout bounds a whole Reply call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(g *GeminiResponder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *GeminiResponder) {
		if l != nil {
			g.logger = l
		}
	}
}

// GeminiResponder replies using a Gemini model.
type GeminiResponder struct {
	models        contentGenerator
	model         string
	maxMessageLen int
	maxAttempts   int
	retryDelay    time.Duration
	timeout       time.Duration
	logger        logger.Logger
}

// NewGeminiResponder creates a responder for the Gemini API backend.
func NewGeminiResponder(ctx context.Context, apiKey string, opts ...Option) (*GeminiResponder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newResponder(client.Models, opts...), nil
}

func newResponder(models contentGenerator, opts ...Option) *GeminiResponder {
	g := &GeminiResponder{
		models:        models,
		model:         defaultModel,
		maxMessageLen: defaultMaxMessageLen,
		maxAttempts:   defaultMaxAttempts,
		retryDelay:    defaultRetryDelay,
		timeout:       defaultTimeout,
		logger:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model name.
func (g *GeminiResponder) Model() string { return g.model }

// Reply implements Responder. Temporary provider errors are retried once.
func (g *GeminiResponder) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		metrics.RecordChatRequest("invalid")
		return "", ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(message); n > g.maxMessageLen {
		metrics.RecordChatRequest("invalid")
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrTooLong, n, g.maxMessageLen)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		MaxOutputTokens:   maxOutputTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(message), cfg)
		if err == nil {
			reply, err := extractText(resp)
			if err != nil {
				metrics.RecordChatRequest("empty")
				return "", fmt.Errorf("%w: %w", ErrUpstream, err)
			}
			metrics.RecordChatRequest("ok")
			return reply, nil
		}
		lastErr = err
		if !temporary(err) || attempt == g.maxAttempts || ctx.Err() != nil {
			break
		}
		g.logger.Warn(ctx, "chat provider error, retrying",
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if err := wait(ctx, g.retryDelay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	metrics.RecordChatRequest("upstream_error")
	return "", fmt.Errorf("%w: generate content: %w", ErrUpstream, lastErr)
}

// wait pauses for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func temporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}
