// internal/agent/executor.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

// defaultWaitTimeout applies to wait steps that carry no explicit timeout.
const defaultWaitTimeout = 30 * time.Second

// stepResult is the serialized outcome of a single dispatched step. It is
// stored on the state verbatim as the agent's reasoning trail.
type stepResult struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message,omitempty"`
	Error     string                `json:"error,omitempty"`
	Path      string                `json:"path,omitempty"`
	Text      string                `json:"text,omitempty"`
	PageState *schemas.PageSnapshot `json:"page_state,omitempty"`
}

// Executor dispatches the step at the current cursor against the browser.
// It never advances the cursor and never recovers from failures; it records
// the outcome on the state and leaves adjudication to validator and router.
type Executor struct {
	browser       BrowserController
	screenshotDir string
	logger        *zap.Logger
}

func NewExecutor(browser BrowserController, screenshotDir string, logger *zap.Logger) *Executor {
	return &Executor{
		browser:       browser,
		screenshotDir: screenshotDir,
		logger:        logger.Named("agent.executor"),
	}
}

// ExecuteCurrent runs the step the cursor points at. With no plan it records
// an error; with the cursor past the end it marks the run successful and
// does nothing, so a stray extra cycle is harmless.
func (e *Executor) ExecuteCurrent(ctx context.Context, state *ExecutionState) {
	if state.Plan.Len() == 0 {
		state.Error = "no plan available"
		return
	}
	if state.CurrentStep >= state.Plan.Len() {
		state.Success = true
		return
	}

	step := state.Plan.Steps[state.CurrentStep]
	e.logger.Info("Executing step",
		zap.Int("step", step.Index+1),
		zap.String("action", string(step.Action)),
		zap.String("target", step.Target))

	res := e.dispatch(ctx, step)

	if res.Success {
		if res.PageState != nil {
			state.BrowserState = res.PageState
		}
		if res.Path != "" {
			state.Screenshots = append(state.Screenshots, res.Path)
		}
	} else {
		if res.Error == "" {
			res.Error = "action failed"
		}
		state.Error = res.Error
		e.logger.Warn("Step failed",
			zap.Int("step", step.Index+1),
			zap.String("code", string(ErrCodeExecutionFailure)),
			zap.String("error", res.Error))
	}

	state.AgentReasoning = serializeResult(res)
}

func (e *Executor) dispatch(ctx context.Context, step Step) stepResult {
	switch step.Action {
	case ActionNavigate:
		snap, err := e.browser.Navigate(ctx, step.Target)
		if err != nil {
			return failure(err)
		}
		return stepResult{Success: true, Message: "navigated to " + step.Target, PageState: snap}

	case ActionFill, ActionFillForm:
		if step.Data != nil && !step.Data.SingleValue() {
			return e.fillForm(ctx, step)
		}
		value := ""
		if step.Data != nil {
			value = step.Data.Value
		}
		if err := e.browser.Fill(ctx, step.Target, value); err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "filled " + step.Target})

	case ActionClick:
		if err := e.browser.Click(ctx, step.Target); err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "clicked " + step.Target})

	case ActionSelect:
		value := ""
		if step.Data != nil {
			value = step.Data.Value
		}
		if err := e.browser.SelectOption(ctx, step.Target, value); err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "selected option on " + step.Target})

	case ActionSubmit:
		if err := e.browser.SubmitForm(ctx, step.Target); err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "submitted " + step.Target})

	case ActionWait:
		timeout := defaultWaitTimeout
		if step.Data != nil && step.Data.TimeoutMs > 0 {
			timeout = time.Duration(step.Data.TimeoutMs) * time.Millisecond
		}
		if err := e.browser.WaitFor(ctx, step.Target, timeout); err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "element appeared: " + step.Target})

	case ActionExtract:
		text, err := e.browser.ExtractText(ctx, step.Target)
		if err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "extracted text", Text: text})

	case ActionScreenshot:
		path := filepath.Join(e.screenshotDir, fmt.Sprintf("step-%d.png", step.Index+1))
		saved, err := e.browser.Screenshot(ctx, path)
		if err != nil {
			return failure(err)
		}
		return e.observed(ctx, stepResult{Success: true, Message: "screenshot captured", Path: saved})

	default:
		return stepResult{Success: false, Error: fmt.Sprintf("Unknown action: %s", step.Action)}
	}
}

// fillForm fills each selector/value pair from the step data, in a stable
// order so retries behave identically.
func (e *Executor) fillForm(ctx context.Context, step Step) stepResult {
	selectors := make([]string, 0, len(step.Data.Fields))
	for sel := range step.Data.Fields {
		selectors = append(selectors, sel)
	}
	sort.Strings(selectors)

	for _, sel := range selectors {
		if err := e.browser.Fill(ctx, sel, step.Data.Fields[sel]); err != nil {
			return failure(fmt.Errorf("field %s: %w", sel, err))
		}
	}
	return e.observed(ctx, stepResult{
		Success: true,
		Message: fmt.Sprintf("filled %d form fields", len(selectors)),
	})
}

// observed attaches the current page snapshot to a successful result. A
// failing snapshot read does not fail the step.
func (e *Executor) observed(ctx context.Context, res stepResult) stepResult {
	snap, err := e.browser.PageState(ctx)
	if err != nil {
		e.logger.Debug("Page state unavailable after action", zap.Error(err))
		return res
	}
	res.PageState = snap
	return res
}

func failure(err error) stepResult {
	return stepResult{Success: false, Error: err.Error()}
}

func serializeResult(res stepResult) string {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf(`{"success":%t}`, res.Success)
	}
	return string(b)
}
