// internal/agent/agent.go

// Package agent implements the plan/execute/validate/route control loop
// that drives a browser session toward a natural-language task. LLM output
// never reaches the loop unparsed, and termination is bounded by a retry
// budget, a step ceiling, and an outer cycle budget.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

// kbSearchQuery seeds the context retrieval that grounds the planner.
const kbSearchQuery = "login form username password"

// sessionCloseTimeout bounds browser teardown once the run is over.
const sessionCloseTimeout = 10 * time.Second

// Agent wires planner, executor, validator and router around a browser
// session and runs tasks to completion.
type Agent struct {
	cfg        config.AgentConfig
	logger     *zap.Logger
	planner    *Planner
	validator  *Validator
	router     *Router
	newSession SessionFactory
	retriever  ContextRetriever
	sink       ResultSink
}

// New assembles an agent. llm, retriever and sink may each be nil: the
// planner and validator then run heuristics only, planning proceeds without
// crawl context, and the result is not persisted.
func New(cfg config.AgentConfig, logger *zap.Logger, llm LLM, newSession SessionFactory, retriever ContextRetriever, sink ResultSink) *Agent {
	log := logger.Named("agent")
	return &Agent{
		cfg:        cfg,
		logger:     log,
		planner:    NewPlanner(llm, log),
		validator:  NewValidator(llm, log),
		router:     NewRouter(cfg.MaxRetries, cfg.StepCeiling, log),
		newSession: newSession,
		retriever:  retriever,
		sink:       sink,
	}
}

// ExecuteTask runs one task end to end and always returns a record, even
// when the browser cannot be started. The record is persisted through the
// sink before returning.
func (a *Agent) ExecuteTask(ctx context.Context, task, domain string) schemas.ExecutionRecord {
	state := NewExecutionState(task, domain, a.retrieveContext(ctx))

	a.logger.Info("Starting task",
		zap.String("execution_id", state.ExecutionID),
		zap.String("domain", domain))

	browser, err := a.newSession(ctx)
	if err != nil {
		a.logger.Error("Browser session could not be started",
			zap.String("code", string(ErrCodeSessionFailure)), zap.Error(err))
		state.Error = "browser session failed: " + err.Error()
		return a.finish(ctx, state, "")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
		defer cancel()
		if cerr := browser.Close(closeCtx); cerr != nil {
			a.logger.Warn("Browser session close failed", zap.Error(cerr))
		}
	}()

	a.planner.BuildPlan(ctx, state)
	executor := NewExecutor(browser, a.cfg.ScreenshotDir, a.logger)

	reason := TerminationCycleBudget
	for cycle := 0; cycle < a.cfg.MaxCycles; cycle++ {
		executor.ExecuteCurrent(ctx, state)
		a.validator.ValidateCurrent(ctx, state)

		decision, why := a.router.Route(state)
		if decision == DecisionDone {
			reason = why
			break
		}
	}

	if reason == TerminationCycleBudget {
		// The retry and ceiling rules terminate the loop before the cycle
		// budget is reached; hitting it is an anomaly.
		a.logger.Warn("Cycle budget exhausted before the router terminated the run",
			zap.Int("max_cycles", a.cfg.MaxCycles))
		if !state.Success && state.Error == "" {
			state.Error = "execution cycle budget exhausted"
		}
	}

	return a.finish(ctx, state, reason)
}

func (a *Agent) retrieveContext(ctx context.Context) []string {
	if a.retriever == nil {
		return nil
	}
	results, err := a.retriever.Search(ctx, kbSearchQuery, a.cfg.ContextTopK)
	if err != nil {
		a.logger.Warn("Context retrieval failed, planning without it", zap.Error(err))
		return nil
	}
	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	a.logger.Info("Retrieved planning context", zap.Int("chunks", len(contents)))
	return contents
}

func (a *Agent) finish(ctx context.Context, state *ExecutionState, reason TerminationReason) schemas.ExecutionRecord {
	rec := state.Record()

	a.logger.Info("Task finished",
		zap.String("execution_id", rec.ExecutionID),
		zap.Bool("success", rec.Success),
		zap.String("reason", string(reason)),
		zap.Int("steps_completed", len(rec.StepsCompleted)))

	if a.sink != nil {
		if err := a.sink.Save(ctx, rec); err != nil {
			a.logger.Error("Result persistence failed", zap.Error(err))
		}
	}
	return rec
}
