// internal/agent/router.go
package agent

import "go.uber.org/zap"

// Decision is the router's routing verdict for one cycle.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionDone     Decision = "done"
)

// Router decides, after each execute/validate cycle, whether the loop
// continues or the run terminates. It is the single owner of the retry
// counter and the only component that clears an error without advancing.
type Router struct {
	maxRetries  int
	stepCeiling int
	logger      *zap.Logger
}

func NewRouter(maxRetries, stepCeiling int, logger *zap.Logger) *Router {
	return &Router{
		maxRetries:  maxRetries,
		stepCeiling: stepCeiling,
		logger:      logger.Named("agent.router"),
	}
}

// Route applies the termination rules in strict precedence order. Rule
// order matters: retry exhaustion outranks completion, completion outranks
// the step ceiling, and the ceiling outranks granting another retry.
func (r *Router) Route(state *ExecutionState) (Decision, TerminationReason) {
	if state.Error != "" && state.Retries >= r.maxRetries {
		r.logger.Warn("Retries exhausted, terminating",
			zap.Int("retries", state.Retries),
			zap.String("error", state.Error))
		return DecisionDone, TerminationRetriesExhausted
	}

	if state.Success || state.CurrentStep >= state.Plan.Len() {
		state.Success = true
		r.logger.Info("Run complete", zap.Int("steps_completed", len(state.StepsCompleted)))
		return DecisionDone, TerminationCompleted
	}

	if state.CurrentStep >= r.stepCeiling {
		r.logger.Warn("Step ceiling reached, terminating",
			zap.Int("current_step", state.CurrentStep),
			zap.Int("ceiling", r.stepCeiling))
		return DecisionDone, TerminationStepCeiling
	}

	if state.Error != "" {
		state.Retries++
		state.Error = ""
		r.logger.Info("Retrying current step",
			zap.Int("step", state.CurrentStep+1),
			zap.Int("retry", state.Retries))
		return DecisionContinue, ""
	}

	return DecisionContinue, ""
}
