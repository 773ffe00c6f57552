// internal/agent/models.go
package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
)

// StepAction enumerates the browser operations a plan step may request.
// Dispatch over this set is exhaustive; anything outside it is rejected at
// execution time with an UNKNOWN_ACTION failure.
type StepAction string

const (
	ActionNavigate   StepAction = "navigate"
	ActionFill       StepAction = "fill"
	ActionFillForm   StepAction = "fill_form" // alias accepted from generative plans
	ActionClick      StepAction = "click"
	ActionSelect     StepAction = "select"
	ActionSubmit     StepAction = "submit"
	ActionWait       StepAction = "wait"
	ActionExtract    StepAction = "extract"
	ActionScreenshot StepAction = "screenshot"
)

// Known reports whether the action belongs to the closed dispatch set.
func (a StepAction) Known() bool {
	switch a {
	case ActionNavigate, ActionFill, ActionFillForm, ActionClick,
		ActionSelect, ActionSubmit, ActionWait, ActionExtract, ActionScreenshot:
		return true
	}
	return false
}

// StepData carries the optional payload of a step. It is a flattened tagged
// variant: Value for single-field fill/select, TimeoutMs for wait, Fields
// (selector -> value) for multi-field form fills. Which members are
// meaningful depends on the step's action and is checked at plan
// construction time.
type StepData struct {
	Value     string
	TimeoutMs int
	Fields    map[string]string
}

// SingleValue reports whether the payload addresses a single field, i.e. the
// step target is the field locator and Value is what goes into it.
func (d *StepData) SingleValue() bool {
	return d == nil || len(d.Fields) == 0
}

// UnmarshalJSON accepts the wire shape produced by generative planners:
// {"value": ...}, {"timeout": ...}, or an arbitrary selector->value map.
func (d *StepData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("step data must be an object: %w", err)
	}

	for key, val := range raw {
		switch key {
		case "value":
			d.Value = decodeScalar(val)
		case "timeout":
			var ms int
			if err := json.Unmarshal(val, &ms); err != nil {
				return fmt.Errorf("step data timeout must be a number: %w", err)
			}
			d.TimeoutMs = ms
		default:
			if d.Fields == nil {
				d.Fields = make(map[string]string)
			}
			d.Fields[key] = decodeScalar(val)
		}
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON so serialized plans round-trip.
func (d *StepData) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 2+len(d.Fields))
	if d.Value != "" {
		out["value"] = d.Value
	}
	if d.TimeoutMs != 0 {
		out["timeout"] = d.TimeoutMs
	}
	for k, v := range d.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// decodeScalar renders a JSON scalar as its string form; generative plans
// occasionally emit numbers where strings are expected.
func decodeScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// Step is one planned unit of work: an action against a locator, with an
// optional payload and a human-readable expected outcome used by the
// validator. Target may encode multiple fallback locators as a
// comma-joined CSS selector list ("try any of these").
type Step struct {
	Index           int        `json:"step"`
	Action          StepAction `json:"action"`
	Target          string     `json:"target"`
	Data            *StepData  `json:"data,omitempty"`
	ExpectedOutcome string     `json:"expected_outcome,omitempty"`
}

// Plan is an ordered, non-empty sequence of steps. It is immutable once
// produced; a new plan is only ever obtained by re-invoking the planner.
type Plan struct {
	Steps []Step `json:"steps"`
}

// NewPlan normalizes and validates a step sequence into a Plan. Indexes are
// assigned from position, ignoring whatever numbering the planner emitted.
// Payload shapes are checked here, at construction time, not at dispatch.
func NewPlan(steps []Step) (*Plan, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan must contain at least one step")
	}
	normalized := make([]Step, len(steps))
	copy(normalized, steps)
	for i := range normalized {
		normalized[i].Index = i
		if err := validateStepData(&normalized[i]); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return &Plan{Steps: normalized}, nil
}

// Len returns the number of steps in the plan; safe on a nil plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

func validateStepData(s *Step) error {
	switch s.Action {
	case ActionWait:
		if s.Data != nil && s.Data.TimeoutMs < 0 {
			return fmt.Errorf("wait timeout must not be negative, got %d", s.Data.TimeoutMs)
		}
	case ActionClick, ActionSubmit, ActionExtract:
		if s.Target == "" {
			return fmt.Errorf("action %q requires a target", s.Action)
		}
	}
	// Unknown actions pass through untouched; the executor reports them as
	// failures so the router can adjudicate, exactly like any other failed
	// step.
	return nil
}

// ExecutionState is the single mutable record threaded through the control
// loop. Each component writes only its own fields: the planner sets Plan and
// resets the cursor, the executor writes BrowserState/Error/Screenshots/
// AgentReasoning, the validator advances the cursor and completion set, and
// the router owns Retries and error clearing.
type ExecutionState struct {
	Task             string
	Domain           string
	RetrievedContext []string

	Plan           *Plan
	CurrentStep    int
	StepsCompleted []int

	BrowserState *schemas.PageSnapshot

	Success     bool
	Error       string
	Retries     int
	Screenshots []string

	// AgentReasoning holds the serialized outcome of the last executed
	// step, overwritten each cycle.
	AgentReasoning string

	ExecutionID string
	Timestamp   time.Time
}

// NewExecutionState creates the per-task state record. ExecutionID and
// Timestamp are assigned once and never change.
func NewExecutionState(task, domain string, retrieved []string) *ExecutionState {
	return &ExecutionState{
		Task:             task,
		Domain:           domain,
		RetrievedContext: retrieved,
		StepsCompleted:   []int{},
		Screenshots:      []string{},
		ExecutionID:      uuid.New().String(),
		Timestamp:        time.Now(),
	}
}

// Record serializes the state into the reportable execution record.
func (s *ExecutionState) Record() schemas.ExecutionRecord {
	return schemas.ExecutionRecord{
		Success:        s.Success,
		Error:          s.Error,
		ExecutionID:    s.ExecutionID,
		Timestamp:      s.Timestamp.Format(time.RFC3339),
		Task:           s.Task,
		Domain:         s.Domain,
		StepsCompleted: append([]int{}, s.StepsCompleted...),
		Screenshots:    append([]string{}, s.Screenshots...),
		AgentReasoning: s.AgentReasoning,
	}
}
