// internal/agent/planner.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/llmutil"
)

// Comma-joined fallback locator lists for the heuristic login plan. The
// executor tries each selector in order and acts on the first match.
const (
	usernameLocators = "input[name='acct'], input[name='username'], input[name='email'], #username, #email"
	passwordLocators = "input[name='pw'], input[name='password'], #password, #pass"
	submitLocators   = "input[type='submit'], button[type='submit'], #loginbtn, form button"
)

// planContextLimit bounds how much retrieved site context is inlined into
// the planning prompt.
const planContextLimit = 2000

const planPromptTemplate = `You are a web automation planner. Produce a JSON action plan for the task below.

Task: %s
Target domain: %s

Site context gathered from a crawl of the domain:
%s

Respond with a single JSON object of the form:
{"steps": [{"step": 1, "action": "navigate", "target": "<url>", "expected_outcome": "<what should be true afterward>"}]}

Allowed actions: navigate, fill, fill_form, click, select, submit, wait, extract, screenshot.
For "fill" put the input value under data.value; for "fill_form" put a selector-to-value map under data.
Targets are CSS selectors (a comma-joined list means try each in order). Keep the plan short and end with a screenshot step.
Respond with JSON only.`

type planPayload struct {
	Steps []Step `json:"steps"`
}

// Planner produces execution plans. It prefers the generative path when an
// LLM is available and always has the deterministic heuristic to fall back
// on, so plan construction never fails outward.
type Planner struct {
	llm    LLM
	logger *zap.Logger
}

func NewPlanner(llm LLM, logger *zap.Logger) *Planner {
	return &Planner{llm: llm, logger: logger.Named("agent.planner")}
}

// BuildPlan installs a plan on the state and resets the step cursor and
// completion set. The previous plan, if any, is discarded wholesale.
func (p *Planner) BuildPlan(ctx context.Context, state *ExecutionState) {
	plan := p.generativePlan(ctx, state)
	if plan == nil {
		plan = HeuristicPlan(state.Task, state.Domain)
		p.logger.Info("Using heuristic fallback plan", zap.Int("steps", plan.Len()))
	}

	state.Plan = plan
	state.CurrentStep = 0
	state.StepsCompleted = []int{}
}

func (p *Planner) generativePlan(ctx context.Context, state *ExecutionState) *Plan {
	if p.llm == nil {
		return nil
	}

	siteContext := strings.Join(state.RetrievedContext, "\n")
	if len(siteContext) > planContextLimit {
		siteContext = siteContext[:planContextLimit]
	}
	if siteContext == "" {
		siteContext = "(no crawl context available)"
	}

	prompt := fmt.Sprintf(planPromptTemplate, state.Task, state.Domain, siteContext)
	resp, err := p.llm.Infer(ctx, prompt)
	if err != nil {
		p.logger.Warn("Plan inference failed, falling back to heuristic",
			zap.String("code", string(ErrCodePlanningFailure)), zap.Error(err))
		return nil
	}

	payload, err := llmutil.ParseJSONResponse[planPayload](resp)
	if err != nil {
		p.logger.Warn("Plan response was not parseable, falling back to heuristic",
			zap.String("code", string(ErrCodePlanningFailure)), zap.Error(err))
		return nil
	}

	plan, err := NewPlan(payload.Steps)
	if err != nil {
		p.logger.Warn("Generated plan was invalid, falling back to heuristic",
			zap.String("code", string(ErrCodePlanningFailure)), zap.Error(err))
		return nil
	}

	p.logger.Info("Generated plan", zap.Int("steps", plan.Len()))
	return plan
}

// HeuristicPlan builds the deterministic login plan from the task text
// alone: navigate, fill credentials whose values are lifted from the task,
// submit, screenshot. Identical inputs always produce an identical plan.
func HeuristicPlan(task, domain string) *Plan {
	lower := strings.ToLower(task)
	steps := []Step{{
		Action:          ActionNavigate,
		Target:          domain,
		ExpectedOutcome: "login page is displayed",
	}}

	if strings.Contains(lower, "user") || strings.Contains(lower, "login") {
		steps = append(steps, Step{
			Action:          ActionFill,
			Target:          usernameLocators,
			Data:            &StepData{Value: extractTaskValue(task, []string{"username", "user", "id"})},
			ExpectedOutcome: "username field is populated",
		})
	}
	if strings.Contains(lower, "pass") {
		steps = append(steps, Step{
			Action:          ActionFill,
			Target:          passwordLocators,
			Data:            &StepData{Value: extractTaskValue(task, []string{"password", "pass"})},
			ExpectedOutcome: "password field is populated",
		})
	}

	steps = append(steps,
		Step{
			Action:          ActionClick,
			Target:          submitLocators,
			ExpectedOutcome: "credentials are submitted",
		},
		Step{
			Action:          ActionScreenshot,
			Target:          "final_result",
			ExpectedOutcome: "final page is captured",
		},
	)

	plan, err := NewPlan(steps)
	if err != nil {
		// Unreachable: the step list above is never empty.
		panic(err)
	}
	return plan
}

// extractTaskValue scans the task text for any of the keywords and returns
// the word two positions after the first hit, with surrounding quotes
// stripped. This matches phrasing like "username is 'bob'". Absent a hit,
// "unknown_value" is returned.
func extractTaskValue(task string, keywords []string) string {
	words := strings.Fields(task)
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, kw := range keywords {
			if strings.Contains(lw, kw) && i+2 < len(words) {
				return strings.Trim(words[i+2], `"'.,;:!?`)
			}
		}
	}
	return "unknown_value"
}
