// internal/agent/validator.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/llmutil"
)

// loginPathFragment is the URL fragment the navigate heuristic accepts as
// proof the login page is displayed.
const loginPathFragment = "login/index.php"

// postLoginKeywords signal a successful login landing page. They are only
// consulted from the fourth step onward, after credentials were submitted.
var postLoginKeywords = []string{
	"dashboard", "profile", "welcome", "logout", "student", "courses", "saveetha",
}

const judgePromptTemplate = `Precise web automation step validator.

Expected Outcome: %s
Page State: %s
Error: %s

SUCCESS RULES:
- Navigate: Current URL contains "login/index.php"
- Fill: Target field value matches data
- Click/Submit: Target no longer exists OR page changes
- Post-login: "dashboard", "profile", "welcome", "logout", "student", "courses" OR no "#login"/"#username"
- Screenshot: File saved

Output ONLY JSON:
{"success": true/false, "reason": "brief", "should_retry": false}`

// verdict is the adjudication of one step, from either the heuristic tier or
// the LLM judge.
type verdict struct {
	Success     bool   `json:"success"`
	Reason      string `json:"reason"`
	ShouldRetry bool   `json:"should_retry"`
}

// Validator adjudicates the step at the cursor. Cheap deterministic
// heuristics run first; the LLM judge is only consulted when they fail. The
// validator is the only component that advances the cursor.
type Validator struct {
	llm    LLM
	logger *zap.Logger
}

func NewValidator(llm LLM, logger *zap.Logger) *Validator {
	return &Validator{llm: llm, logger: logger.Named("agent.validator")}
}

// ValidateCurrent adjudicates the current step and mutates the state
// accordingly: advance on success, record an error on a non-retryable
// failure, or leave the state for the router to count a retry. Early steps
// get leniency so a strict judge cannot wedge the run before credentials
// are submitted.
func (v *Validator) ValidateCurrent(ctx context.Context, state *ExecutionState) {
	defer v.recoverCrash(state)

	if state.CurrentStep >= state.Plan.Len() {
		state.Success = true
		v.logger.Info("All steps completed")
		return
	}

	step := state.Plan.Steps[state.CurrentStep]
	result := heuristicVerdict(step, state.BrowserState, state.CurrentStep)

	if !result.Success && v.llm != nil {
		judged, err := v.judge(ctx, step, state)
		if err != nil {
			v.recoverError(state, err)
			return
		}
		result = judged
	}

	if result.Success {
		state.StepsCompleted = append(state.StepsCompleted, state.CurrentStep)
		state.CurrentStep++
		v.logger.Info("Step validated",
			zap.Int("step", step.Index+1),
			zap.String("reason", result.Reason))

		if state.CurrentStep >= state.Plan.Len() {
			state.Success = true
			v.logger.Info("All steps finished successfully")
		}
		return
	}

	v.logger.Warn("Step validation failed",
		zap.Int("step", step.Index+1),
		zap.String("code", string(ErrCodeValidationFailure)),
		zap.String("reason", result.Reason))

	if !result.ShouldRetry {
		state.Error = result.Reason
		if state.Error == "" {
			state.Error = "validation failed"
		}
		// Leniency for setup steps: force-advance instead of failing the
		// run before credentials were even submitted.
		if state.CurrentStep < 3 {
			state.CurrentStep++
			state.Error = ""
		}
	}
}

// judge consults the LLM with the step's expected outcome and the observed
// page state. An unparseable response counts as a non-retryable failure; a
// transport error bubbles up to the recovery path.
func (v *Validator) judge(ctx context.Context, step Step, state *ExecutionState) (verdict, error) {
	pageState := serializeSnapshot(state.BrowserState)
	stepError := state.Error
	if stepError == "" {
		stepError = "None"
	}
	expected := step.ExpectedOutcome
	if expected == "" {
		expected = "Complete step"
	}

	prompt := fmt.Sprintf(judgePromptTemplate, expected, pageState, stepError)
	resp, err := v.llm.Infer(ctx, prompt)
	if err != nil {
		return verdict{}, err
	}

	judged, perr := llmutil.ParseJSONResponse[verdict](resp)
	if perr != nil {
		v.logger.Warn("Judge returned no parseable verdict", zap.Error(perr))
		return verdict{Success: false, Reason: "judge returned no parseable verdict", ShouldRetry: false}, nil
	}
	return *judged, nil
}

// recoverError applies the crash leniency rule when the judge itself is
// unreachable: auto-advance through the first five steps, hard error after.
func (v *Validator) recoverError(state *ExecutionState, err error) {
	v.logger.Error("Validator judge failed", zap.Error(err))
	if state.CurrentStep <= 4 {
		state.CurrentStep++
		v.logger.Info("Auto-advancing step", zap.Int("step", state.CurrentStep))
		return
	}
	state.Error = fmt.Sprintf("Validation failed: %v", err)
}

func (v *Validator) recoverCrash(state *ExecutionState) {
	r := recover()
	if r == nil {
		return
	}
	v.recoverError(state, fmt.Errorf("validator panic: %v", r))
}

// heuristicVerdict applies the deterministic per-action rules against the
// last observed page snapshot.
func heuristicVerdict(step Step, snap *schemas.PageSnapshot, currentStep int) verdict {
	target := strings.ToLower(step.Target)
	content := strings.ToLower(serializeSnapshot(snap))
	currentURL := ""
	if snap != nil {
		currentURL = strings.ToLower(snap.URL)
	}

	switch step.Action {
	case ActionNavigate:
		if strings.Contains(currentURL, loginPathFragment) {
			return verdict{Success: true, Reason: "On login page"}
		}

	case ActionFill, ActionFillForm:
		cleaned := strings.NewReplacer("#", "", ".", "").Replace(target)
		if strings.Contains(content, cleaned) || strings.Contains(content, target) {
			return verdict{Success: true, Reason: "Filled " + step.Target}
		}

	case ActionClick, ActionSubmit:
		noLoginForm := !strings.Contains(content, "#login") && !strings.Contains(content, "#username")
		pageChanged := !strings.Contains(currentURL, loginPathFragment)
		if noLoginForm || pageChanged {
			return verdict{Success: true, Reason: "Form submitted or page changed"}
		}

	case ActionScreenshot:
		return verdict{Success: true, Reason: "Screenshot completed"}
	}

	if currentStep >= 3 {
		for _, kw := range postLoginKeywords {
			if strings.Contains(content, kw) {
				return verdict{Success: true, Reason: "Post-login content detected: " + kw}
			}
		}
	}

	return verdict{Success: false, Reason: "heuristic checks did not confirm the expected outcome"}
}

// serializeSnapshot renders the snapshot the way the judge and the
// heuristics inspect it. A nil snapshot serializes to an empty object.
func serializeSnapshot(snap *schemas.PageSnapshot) string {
	if snap == nil {
		return "{}"
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "{}"
	}
	return string(b)
}
