package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI implements Translator (chat completions) and Synthesizer
// (audio/speech) against the OpenAI HTTP API or a compatible endpoint.
type OpenAI struct {
	APIKey     string
	BaseURL    string
	Model      string
	TTSModel   string
	Voice      string
	HTTPClient *http.Client
}

func NewOpenAI(apiKey, baseURL, model, ttsModel, voice string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		TTSModel:   ttsModel,
		Voice:      voice,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// do posts body as JSON and returns the raw response body of a 2xx answer.
func (o *OpenAI) do(ctx context.Context, path string, body any) ([]byte, string, error) {
	if o.APIKey == "" {
		return nil, "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+path, &buf)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openai: %w", err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 25<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, "", fmt.Errorf("openai: read body: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &UpstreamError{Provider: "openai", Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Translate(ctx context.Context, text, from, to string) (string, error) {
	req := chatRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(
				"Translate the user's text from language code %q to language code %q. Reply with the translation only.", from, to)},
			{Role: "user", Content: text},
		},
	}
	raw, _, err := o.do(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("openai: decode: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &UpstreamError{Provider: "openai", Status: http.StatusOK, Body: "empty completion"}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (Audio, error) {
	raw, ct, err := o.do(ctx, "/v1/audio/speech", speechRequest{
		Model:          o.TTSModel,
		Voice:          o.Voice,
		Input:          text,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return Audio{}, err
	}
	if len(raw) == 0 {
		return Audio{}, &UpstreamError{Provider: "openai", Status: http.StatusOK, Body: "empty audio"}
	}
	if ct == "" || strings.HasPrefix(ct, "application/json") {
		ct = "audio/mpeg"
	}
	return Audio{Data: raw, ContentType: ct, Ext: ".mp3"}, nil
}
