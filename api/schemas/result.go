// api/schemas/result.go
package schemas

// ExecutionRecord is the externally persisted artifact of one task
// execution. Its layout is the reporting contract; the control loop's
// internal state never leaves the agent package directly.
type ExecutionRecord struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	ExecutionID    string   `json:"execution_id"`
	Timestamp      string   `json:"timestamp"`
	Task           string   `json:"task"`
	Domain         string   `json:"domain"`
	StepsCompleted []int    `json:"steps_completed"`
	Screenshots    []string `json:"screenshots"`
	AgentReasoning string   `json:"agent_reasoning"`
}
