// internal/agent/errors.go
package agent

// ErrorCode classifies control-loop failures for logging and reporting.
type ErrorCode string

const (
	ErrCodeSessionFailure    ErrorCode = "SESSION_FAILURE"
	ErrCodePlanningFailure   ErrorCode = "PLANNING_FAILURE"
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION"
)

// TerminationReason names why the control loop stopped. Exactly one reason
// is reported per run.
type TerminationReason string

const (
	TerminationCompleted        TerminationReason = "completed"
	TerminationRetriesExhausted TerminationReason = "retries_exhausted"
	TerminationStepCeiling      TerminationReason = "step_ceiling"
	TerminationCycleBudget      TerminationReason = "cycle_budget"
)
