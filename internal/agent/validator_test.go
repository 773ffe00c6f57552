// internal/agent/validator_test.go
package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

func loginSnapshot(url string) *schemas.PageSnapshot {
	return &schemas.PageSnapshot{
		URL:   url,
		Title: "Log in to the site",
		HTML:  `<a href="#login">Log in</a><form id="login"><input id="username"><input id="password"></form>`,
	}
}

func TestValidateNavigateOnLoginPage(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "https://lms.example.com/login/index.php"},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.BrowserState = loginSnapshot("https://lms.example.com/login/index.php")

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, []int{0}, state.StepsCompleted)
	assert.Empty(t, state.Error)
}

func TestValidateFillBySelectorPresence(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionFill, Target: "#username", Data: &StepData{Value: "bob"}},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.CurrentStep = 3
	state.BrowserState = loginSnapshot("https://lms.example.com/login/index.php")

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 4, state.CurrentStep)
	assert.Contains(t, state.StepsCompleted, 3)
}

func TestValidateClickPassesWhenPageChanged(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{{Action: ActionClick, Target: "#loginbtn"}})
	state.BrowserState = &schemas.PageSnapshot{
		URL:   "https://lms.example.com/my/",
		Title: "Dashboard",
		HTML:  "<h1>Dashboard</h1>",
	}

	v.ValidateCurrent(context.Background(), state)

	assert.True(t, state.Success)
	assert.Equal(t, []int{0}, state.StepsCompleted)
}

func TestValidateScreenshotAlwaysPasses(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{{Action: ActionScreenshot, Target: "final_result"}})

	v.ValidateCurrent(context.Background(), state)

	assert.True(t, state.Success)
}

func TestValidatePostLoginKeywordsFromFourthStep(t *testing.T) {
	steps := []Step{
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionWait, Target: "#main"},
	}
	snap := &schemas.PageSnapshot{URL: "https://lms.example.com/my/", HTML: "<p>Welcome back, logout here</p>"}

	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, steps)
	state.CurrentStep = 3
	state.BrowserState = snap

	v.ValidateCurrent(context.Background(), state)

	assert.True(t, state.Success, "post-login keyword should validate a late step")
}

func TestValidateLeniencyForceAdvancesEarlySteps(t *testing.T) {
	// Heuristic fails, no judge: non-retryable failure at step 0 advances
	// with the error cleared.
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "https://example.com"},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 1, state.CurrentStep)
	assert.Empty(t, state.Error)
	assert.Empty(t, state.StepsCompleted, "force-advance does not count as completion")
}

func TestValidateNonRetryableFailureAtLateStep(t *testing.T) {
	steps := []Step{
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "x"},
		{Action: ActionNavigate, Target: "https://example.com"},
		{Action: ActionScreenshot, Target: "final_result"},
	}
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, steps)
	state.CurrentStep = 3
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 3, state.CurrentStep, "no leniency from the fourth step on")
	assert.NotEmpty(t, state.Error)
}

func TestValidateJudgeVerdictRetryable(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"success": false, "reason": "form still visible", "should_retry": true}`}}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, []Step{{Action: ActionClick, Target: "#loginbtn"}})
	state.BrowserState = loginSnapshot("https://lms.example.com/login/index.php")

	v.ValidateCurrent(context.Background(), state)

	// Retryable failure: cursor and error untouched, router will count it.
	assert.Equal(t, 0, state.CurrentStep)
	assert.Empty(t, state.Error)
	assert.False(t, state.Success)
}

func TestValidateJudgeSuccess(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"success": true, "reason": "outcome met", "should_retry": false}`}}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "https://example.com"},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 1, state.CurrentStep)
	assert.Equal(t, []int{0}, state.StepsCompleted)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Expected Outcome")
}

func TestValidateJudgeNotConsultedWhenHeuristicPasses(t *testing.T) {
	llm := &mockLLM{responses: []string{`{"success": false, "reason": "should not be asked", "should_retry": false}`}}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, []Step{{Action: ActionScreenshot, Target: "final_result"}})

	v.ValidateCurrent(context.Background(), state)

	assert.True(t, state.Success)
	assert.Empty(t, llm.prompts)
}

func TestValidateJudgeGarbageIsNonRetryableFailure(t *testing.T) {
	llm := &mockLLM{responses: []string{"The step probably worked, I think."}}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "https://example.com"},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	// Non-retryable failure at an early step falls under leniency.
	assert.Equal(t, 1, state.CurrentStep)
	assert.Empty(t, state.Error)
}

func TestValidateJudgeTransportErrorAutoAdvances(t *testing.T) {
	llm := &mockLLM{err: errors.New("connection refused")}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, []Step{
		{Action: ActionNavigate, Target: "https://example.com"},
		{Action: ActionScreenshot, Target: "final_result"},
	})
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 1, state.CurrentStep)
	assert.Empty(t, state.Error)
}

func TestValidateJudgeTransportErrorAtLateStep(t *testing.T) {
	steps := make([]Step, 6)
	for i := range steps {
		steps[i] = Step{Action: ActionNavigate, Target: "https://example.com"}
	}
	llm := &mockLLM{err: errors.New("connection refused")}
	v := NewValidator(llm, zap.NewNop())
	state := newTestState(t, steps)
	state.CurrentStep = 5
	state.BrowserState = &schemas.PageSnapshot{URL: "https://example.com/", HTML: "<html></html>"}

	v.ValidateCurrent(context.Background(), state)

	assert.Equal(t, 5, state.CurrentStep)
	assert.Contains(t, state.Error, "Validation failed")
}

func TestValidatePastEndSetsSuccess(t *testing.T) {
	v := NewValidator(nil, zap.NewNop())
	state := newTestState(t, []Step{{Action: ActionScreenshot, Target: "final_result"}})
	state.CurrentStep = 1

	v.ValidateCurrent(context.Background(), state)

	assert.True(t, state.Success)
}
