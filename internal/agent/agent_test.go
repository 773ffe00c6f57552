// internal/agent/agent_test.go
package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxCycles:     15,
		MaxRetries:    2,
		StepCeiling:   10,
		ScreenshotDir: "screenshots",
		ContextTopK:   5,
	}
}

func TestExecuteTaskHappyPath(t *testing.T) {
	browser := newMockBrowser()
	// The heuristic click check passes once the login markers are gone.
	browser.snapshot = &schemas.PageSnapshot{
		URL:   "https://lms.example.com/my/",
		Title: "Dashboard",
		HTML:  "<h1>Welcome, logout</h1>",
	}
	sink := &mockSink{}
	a := New(testAgentConfig(), zap.NewNop(), nil,
		func(ctx context.Context) (BrowserController, error) { return browser, nil },
		nil, sink)

	rec := a.ExecuteTask(context.Background(),
		"Log in where the username is 'bob' and the password is 'secret'",
		"https://lms.example.com/login/index.php")

	assert.True(t, rec.Success)
	assert.Empty(t, rec.Error)
	assert.NotEmpty(t, rec.ExecutionID)
	assert.Len(t, rec.Screenshots, 1)
	assert.True(t, browser.Closed(), "session must be closed after the run")
	require.Len(t, sink.saved, 1)
	assert.Equal(t, rec.ExecutionID, sink.saved[0].ExecutionID)

	// The heuristic plan drove real browser calls.
	calls := strings.Join(browser.Calls(), "\n")
	assert.Contains(t, calls, "navigate https://lms.example.com/login/index.php")
	assert.Contains(t, calls, "fill")
	assert.Contains(t, calls, "=bob")
	assert.Contains(t, calls, "=secret")
	assert.Contains(t, calls, "click")
	assert.Contains(t, calls, "screenshot")
}

func TestExecuteTaskSessionFailure(t *testing.T) {
	sink := &mockSink{}
	a := New(testAgentConfig(), zap.NewNop(), nil,
		func(ctx context.Context) (BrowserController, error) { return nil, errors.New("chrome not found") },
		nil, sink)

	rec := a.ExecuteTask(context.Background(), "log in", "https://example.com")

	assert.False(t, rec.Success)
	assert.Contains(t, rec.Error, "browser session failed")
	assert.NotEmpty(t, rec.ExecutionID)
	require.Len(t, sink.saved, 1, "failed runs are persisted too")
}

func TestExecuteTaskAlwaysTerminates(t *testing.T) {
	// Every browser call fails and there is no judge: the retry budget and
	// leniency rules must still drive the loop to a bounded stop.
	browser := newMockBrowser()
	browser.failOn("navigate", errors.New("net::ERR_CONNECTION_REFUSED"))
	browser.failOn("fill", errors.New("no element"))
	browser.failOn("click", errors.New("no element"))
	browser.failOn("screenshot", errors.New("no page"))
	browser.failOn("page_state", errors.New("no page"))

	cfg := testAgentConfig()
	a := New(cfg, zap.NewNop(), nil,
		func(ctx context.Context) (BrowserController, error) { return browser, nil },
		nil, nil)

	rec := a.ExecuteTask(context.Background(),
		"Log in where the username is 'bob' and the password is 'secret'",
		"https://unreachable.invalid")

	assert.True(t, browser.Closed())
	// Execute+validate per cycle, each at most one browser action batch;
	// the cycle budget is the hard stop.
	assert.LessOrEqual(t, len(browser.Calls()), cfg.MaxCycles*3)
	_ = rec
}

func TestExecuteTaskUsesRetrievedContext(t *testing.T) {
	retriever := &mockRetriever{results: []schemas.SearchResult{
		{Content: "URL: https://example.com/login TITLE: Login"},
	}}
	llm := &mockLLM{responses: []string{`{"steps": [{"step": 1, "action": "screenshot", "target": "final_result"}]}`}}
	browser := newMockBrowser()

	a := New(testAgentConfig(), zap.NewNop(), llm,
		func(ctx context.Context) (BrowserController, error) { return browser, nil },
		retriever, nil)

	rec := a.ExecuteTask(context.Background(), "capture the login page", "https://example.com")

	assert.True(t, rec.Success)
	require.Len(t, retriever.queries, 1)
	assert.Equal(t, kbSearchQuery, retriever.queries[0])
	require.NotEmpty(t, llm.prompts)
	assert.Contains(t, llm.prompts[0], "https://example.com/login")
}

func TestExecuteTaskRetrieverFailureIsNonFatal(t *testing.T) {
	retriever := &mockRetriever{err: errors.New("index empty")}
	browser := newMockBrowser()
	browser.snapshot = &schemas.PageSnapshot{URL: "https://example.com/my/", HTML: "<p>dashboard</p>"}

	a := New(testAgentConfig(), zap.NewNop(), nil,
		func(ctx context.Context) (BrowserController, error) { return browser, nil },
		retriever, nil)

	rec := a.ExecuteTask(context.Background(),
		"Log in where the username is 'bob' and the password is 'x'",
		"https://example.com")

	assert.NotEmpty(t, rec.ExecutionID)
	assert.True(t, browser.Closed())
}

func TestExecuteTaskSinkFailureIsNonFatal(t *testing.T) {
	browser := newMockBrowser()
	sink := &mockSink{err: errors.New("disk full")}

	a := New(testAgentConfig(), zap.NewNop(), nil,
		func(ctx context.Context) (BrowserController, error) { return browser, nil },
		nil, sink)

	rec := a.ExecuteTask(context.Background(), "capture it", "https://example.com")

	assert.NotEmpty(t, rec.ExecutionID)
	require.Len(t, sink.saved, 1)
}
