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

// OpenRouterHttpBackend calls the OpenRouter chat-completions endpoint
// directly, grounded on the retry/timeout/header shape of the pack's
// OpenRouter HTTP client (theRebelliousNerd-codenerd). The full
// response schema is an external-collaborator detail (SPEC_FULL.md
// §1): only the assistant message text is extracted.
type OpenRouterHttpBackend struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
}

const openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"

func (b *OpenRouterHttpBackend) apiKey() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	return os.Getenv("OPENROUTER_API_KEY")
}

func (b *OpenRouterHttpBackend) baseURL() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return openRouterDefaultBaseURL
}

func (b *OpenRouterHttpBackend) client() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Minute}
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
}

type openRouterChoice struct {
	Message openRouterMessage `json:"message"`
}

type openRouterResponse struct {
	Choices []openRouterChoice `json:"choices"`
}

func (b *OpenRouterHttpBackend) Invoke(ctx context.Context, inv LlmInvocation) (*LlmResult, *LlmError) {
	ctx, cancel := deadlineContext(ctx, inv.Deadline)
	defer cancel()

	if b.apiKey() == "" {
		return nil, providerError("openrouter: API key not configured", nil)
	}

	var messages []openRouterMessage
	for _, m := range inv.Messages {
		messages = append(messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := openRouterRequest{Model: inv.Model, Messages: messages}

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
			return nil, providerError("openrouter: marshaling request", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL()+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, providerError("openrouter: building request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+b.apiKey())

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
			return nil, providerError(fmt.Sprintf("openrouter: status %d", resp.StatusCode), fmt.Errorf("%s", body))
		}

		var parsed openRouterResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, providerError("openrouter: decoding response", err)
		}
		if len(parsed.Choices) == 0 {
			return nil, providerError("openrouter: empty choices", nil)
		}
		return &LlmResult{Text: parsed.Choices[0].Message.Content}, nil
	}

	return nil, providerError("openrouter: retries exhausted", lastErr)
}
