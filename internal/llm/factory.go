package llm

import "fmt"

// New resolves provider to a concrete Backend. Providers are
// resolvable only from the closed set; an unknown name is a hard
// error at config load, not a runtime surprise (spec §4.8).
func New(provider Provider) (Backend, error) {
	switch provider {
	case ClaudeCli:
		return &ClaudeCliBackend{}, nil
	case GeminiCli:
		return &GeminiCliBackend{}, nil
	case OpenRouterHttp:
		return &OpenRouterHttpBackend{}, nil
	case AnthropicHttp:
		return &AnthropicHttpBackend{}, nil
	case MockForTests:
		return &MockBackend{}, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
