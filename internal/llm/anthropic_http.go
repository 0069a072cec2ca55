package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// AnthropicHttpBackend calls the Anthropic messages endpoint directly,
// grounded on the pack's Anthropic HTTP client (theRebelliousNerd-codenerd)
// for header shape and retry posture.
type AnthropicHttpBackend struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
}

const anthropicDefaultBaseURL = "https://api.anthropic.com/v1"

func (b *AnthropicHttpBackend) apiKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

func (b *AnthropicHttpBackend) baseURL() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return anthropicDefaultBaseURL
}

func (b *AnthropicHttpBackend) client() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Minute}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

func (b *AnthropicHttpBackend) Invoke(ctx context.Context, inv LlmInvocation) (*LlmResult, *LlmError) {
	ctx, cancel := deadlineContext(ctx, inv.Deadline)
	defer cancel()

	if b.apiKey() == "" {
		return nil, providerError("anthropic: API key not configured", nil)
	}

	var messages []anthropicMessage
	for _, m := range inv.Messages {
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := anthropicRequest{Model: inv.Model, MaxTokens: 8192, Messages: messages}

	maxRetries := b.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, timeoutError()
		}
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, timeoutError()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, providerError("anthropic: marshaling request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL()+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			return nil, providerError("anthropic: building request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", b.apiKey())
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := b.client().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeoutError()
			}
			lastErr = err
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, providerError(fmt.Sprintf("anthropic: status %d", resp.StatusCode), fmt.Errorf("%s", body))
		}

		var parsed anthropicResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, providerError("anthropic: decoding response", err)
		}
		var text string
		for _, block := range parsed.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return &LlmResult{Text: text}, nil
	}

	return nil, providerError("anthropic: retries exhausted", lastErr)
}
