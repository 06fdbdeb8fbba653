package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"skynix/internal/domain"
)

const (
	// Gemini exposes an OpenAI-compatible chat completions endpoint.
	defaultGeminiBase  = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultGeminiModel = "gemini-2.5-pro"
)

// ChatRewriterConfig configures a chat-completions rewriter.
type ChatRewriterConfig struct {
	APIKey     string
	APIBase    string // default: Gemini OpenAI-compatible base URL
	Model      string // default: gemini-2.5-pro
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ChatRewriter implements domain.Rewriter with a single-turn chat completion.
type ChatRewriter struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

var _ domain.Rewriter = (*ChatRewriter)(nil)

func NewChatRewriter(cfg ChatRewriterConfig) *ChatRewriter {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultGeminiBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.APIBase),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(maxRetries),
	)
	return &ChatRewriter{
		client: client,
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (r *ChatRewriter) Name() string { return r.model }

// Rewrite sends prompt as a user message and returns the first choice.
func (r *ChatRewriter) Rewrite(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(r.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty message content")
	}

	r.logger.Info("rewrite complete",
		"model", r.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)
	return content, nil
}
