// internal/agent/mocks_test.go
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

// mockBrowser is a scriptable BrowserController. Every call is recorded as
// "op target" (plus value where relevant) so tests can assert exact
// dispatch sequences. Errors are injected per op name.
type mockBrowser struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	snapshot *schemas.PageSnapshot
	text     string
	closed   bool
}

var _ BrowserController = (*mockBrowser)(nil)

func newMockBrowser() *mockBrowser {
	return &mockBrowser{
		failures: make(map[string]error),
		snapshot: &schemas.PageSnapshot{URL: "https://example.com/", Title: "Example", HTML: "<html></html>"},
	}
}

func (m *mockBrowser) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockBrowser) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

func (m *mockBrowser) failure(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[op]
}

func (m *mockBrowser) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockBrowser) Navigate(_ context.Context, url string) (*schemas.PageSnapshot, error) {
	m.record("navigate " + url)
	if err := m.failure("navigate"); err != nil {
		return nil, err
	}
	return m.snapshot, nil
}

func (m *mockBrowser) Fill(_ context.Context, locator, value string) error {
	m.record(fmt.Sprintf("fill %s=%s", locator, value))
	return m.failure("fill")
}

func (m *mockBrowser) Click(_ context.Context, locator string) error {
	m.record("click " + locator)
	return m.failure("click")
}

func (m *mockBrowser) SelectOption(_ context.Context, locator, value string) error {
	m.record(fmt.Sprintf("select %s=%s", locator, value))
	return m.failure("select")
}

func (m *mockBrowser) SubmitForm(_ context.Context, locator string) error {
	m.record("submit " + locator)
	return m.failure("submit")
}

func (m *mockBrowser) WaitFor(_ context.Context, locator string, timeout time.Duration) error {
	m.record(fmt.Sprintf("wait %s %s", locator, timeout))
	return m.failure("wait")
}

func (m *mockBrowser) ExtractText(_ context.Context, locator string) (string, error) {
	m.record("extract " + locator)
	if err := m.failure("extract"); err != nil {
		return "", err
	}
	return m.text, nil
}

func (m *mockBrowser) Screenshot(_ context.Context, path string) (string, error) {
	m.record("screenshot " + path)
	if err := m.failure("screenshot"); err != nil {
		return "", err
	}
	return path, nil
}

func (m *mockBrowser) PageState(_ context.Context) (*schemas.PageSnapshot, error) {
	m.record("page_state")
	if err := m.failure("page_state"); err != nil {
		return nil, err
	}
	return m.snapshot, nil
}

func (m *mockBrowser) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockBrowser) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// mockLLM returns canned responses in order, then repeats the last one.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

var _ LLM = (*mockLLM)(nil)

func (m *mockLLM) Infer(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

type mockRetriever struct {
	results []schemas.SearchResult
	err     error
	queries []string
}

var _ ContextRetriever = (*mockRetriever)(nil)

func (m *mockRetriever) Search(_ context.Context, query string, _ int) ([]schemas.SearchResult, error) {
	m.queries = append(m.queries, query)
	return m.results, m.err
}

type mockSink struct {
	mu    sync.Mutex
	saved []schemas.ExecutionRecord
	err   error
}

var _ ResultSink = (*mockSink)(nil)

func (m *mockSink) Save(_ context.Context, rec schemas.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rec)
	return m.err
}
