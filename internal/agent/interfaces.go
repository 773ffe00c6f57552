// internal/agent/interfaces.go
package agent

import (
	"context"
	"time"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

// BrowserController is the browser surface the executor drives. Locator
// parameters accept comma-joined CSS selector lists; implementations try
// each in order and act on the first match.
type BrowserController interface {
	Navigate(ctx context.Context, url string) (*schemas.PageSnapshot, error)
	Fill(ctx context.Context, locator, value string) error
	Click(ctx context.Context, locator string) error
	SelectOption(ctx context.Context, locator, value string) error
	SubmitForm(ctx context.Context, locator string) error
	WaitFor(ctx context.Context, locator string, timeout time.Duration) error
	ExtractText(ctx context.Context, locator string) (string, error)
	Screenshot(ctx context.Context, path string) (string, error)
	PageState(ctx context.Context) (*schemas.PageSnapshot, error)
	Close(ctx context.Context) error
}

// LLM is the inference surface the planner and validator consult. A nil LLM
// is legal everywhere; components fall back to their deterministic
// heuristics.
type LLM interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever surfaces crawled site knowledge to ground the planner.
type ContextRetriever interface {
	Search(ctx context.Context, query string, limit int) ([]schemas.SearchResult, error)
}

// ResultSink persists the final execution record.
type ResultSink interface {
	Save(ctx context.Context, rec schemas.ExecutionRecord) error
}

// SessionFactory opens a fresh browser session for a single task run.
type SessionFactory func(ctx context.Context) (BrowserController, error)
