package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"skynix/internal/domain"
)

// WhisperConfig configures the Whisper speech-to-text provider.
type WhisperConfig struct {
	APIBase    string // e.g., "https://api.groq.com/openai/v1" or "https://api.openai.com/v1"
	APIKey     string
	Model      string // e.g., "whisper-large-v3" (Groq) or "whisper-1" (OpenAI)
	Language   string // optional: ISO-639-1 language code
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Whisper transcribes audio through the OpenAI-compatible transcription API.
type Whisper struct {
	apiBase  string
	apiKey   string
	model    string
	language string
	client   *http.Client
	logger   *slog.Logger
}

var _ domain.SpeechToText = (*Whisper)(nil)

// NewWhisper creates a new Whisper transcription provider.
func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(cfg.Timeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Whisper{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   cfg.HTTPClient,
		logger:   cfg.Logger,
	}
}

// Transcribe converts audio data to text.
// filename should include the extension (e.g., "voice.wav").
func (w *Whisper) Transcribe(ctx context.Context, audio io.Reader, filename string) (*domain.Transcript, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	_ = writer.WriteField("model", w.model)
	_ = writer.WriteField("response_format", "json")
	if w.language != "" {
		_ = writer.WriteField("language", w.language)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	payload := body.Bytes()
	url := w.apiBase + "/audio/transcriptions"

	resp, err := doWithRetry(ctx, w.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
		return req, nil
	}, w.logger)
	if err != nil {
		return nil, fmt.Errorf("whisper API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result domain.Transcript
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	w.logger.Info("transcription complete",
		"text_len", len(result.Text),
		"language", result.Language,
		"duration", result.Duration,
	)

	return &result, nil
}
