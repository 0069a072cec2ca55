package llm

import "context"

// MockBackend is the MockForTests variant: it never shells out or
// makes a network call, and is driven entirely by the fields below so
// orchestrator and phase tests can exercise every LlmError path
// without a real provider.
type MockBackend struct {
	Result *LlmResult
	Err    *LlmError
	Invocations []LlmInvocation
}

func (m *MockBackend) Invoke(ctx context.Context, inv LlmInvocation) (*LlmResult, *LlmError) {
	m.Invocations = append(m.Invocations, inv)
	if ctx.Err() != nil {
		return nil, timeoutError()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &LlmResult{Text: "mock output"}, nil
}
