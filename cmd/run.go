// cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/agent"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/browser"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/crawler"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/knowledge"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/llmclient"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/observability"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/store"
)

// newRunCmd creates the `run` command: crawl, plan, execute, report.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Runs a natural-language automation task against a target domain",
		Long: `Runs the full pipeline for one task: crawl the target domain, index it
into the knowledge store, generate an action plan, and drive the browser
through it with bounded retries.

The task text carries the inputs, e.g.:

  webagent run "Log into the site. The username is 'bob' and the password is 'secret'" \
      --domain https://site.example/login/index.php`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("agent.llm.api_key", cmd.Flags().Lookup("api-key")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("agent.screenshot_dir", cmd.Flags().Lookup("screenshot-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			task := strings.Join(args, " ")
			domain, err := cmd.Flags().GetString("domain")
			if err != nil {
				return err
			}
			if domain == "" {
				return fmt.Errorf("--domain is required")
			}

			rec, err := runTask(ctx, cfg, logger, task, domain)
			if err != nil {
				return err
			}

			printRunSummary(cmd, rec.Success, rec.ExecutionID, len(rec.StepsCompleted), rec.Screenshots, rec.Error)
			return nil
		},
	}

	runCmd.Flags().StringP("domain", "d", "", "target domain URL, typically the login page (required)")
	runCmd.Flags().String("api-key", "", "LLM API key (overrides config and WEBAGENT_AGENT_LLM_API_KEY)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("screenshot-dir", "screenshots", "directory for screenshots and result files")

	return runCmd
}

func runTask(ctx context.Context, cfg *config.Config, logger *zap.Logger, task, domain string) (rec schemas.ExecutionRecord, err error) {
	// 1. Crawl the domain and index it for retrieval.
	retriever := buildKnowledge(ctx, cfg, logger, domain)

	// 2. LLM backend; without a key the agent runs on heuristics alone.
	var llm agent.LLM
	client, err := llmclient.NewClient(cfg.Agent.LLM, logger)
	if err != nil {
		logger.Warn("LLM unavailable, running with heuristic planning and validation", zap.Error(err))
	} else {
		llm = client
	}

	// 3. Result persistence: database when configured, JSON files otherwise.
	sink, cleanup, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return rec, err
	}
	defer cleanup()

	sessionFactory := func(ctx context.Context) (agent.BrowserController, error) {
		return browser.NewSession(ctx, cfg.Browser, cfg.Network, logger)
	}

	a := agent.New(cfg.Agent, logger, llm, sessionFactory, retriever, sink)
	return a.ExecuteTask(ctx, task, domain), nil
}

// buildKnowledge crawls the domain into the vector store. Crawl failures
// only cost planning context, never the run.
func buildKnowledge(ctx context.Context, cfg *config.Config, logger *zap.Logger, domain string) agent.ContextRetriever {
	kb := knowledge.NewStore(cfg.Knowledge, logger)

	pages, err := crawler.NewCrawler(cfg.Crawler, logger).Crawl(ctx, domain)
	if err != nil {
		logger.Warn("Crawl failed, planning without site context", zap.Error(err))
		return kb
	}
	kb.AddPages(pages)
	return kb
}

func buildSink(ctx context.Context, cfg *config.Config, logger *zap.Logger) (agent.ResultSink, func(), error) {
	if cfg.Database.URL == "" {
		return store.NewFileSink(cfg.Agent.ScreenshotDir, logger), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	dbStore, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := dbStore.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return dbStore, pool.Close, nil
}

func printRunSummary(cmd *cobra.Command, success bool, executionID string, stepsCompleted int, screenshots []string, errMsg string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Repeat("=", 60))
	if success {
		fmt.Fprintln(out, "TASK COMPLETED")
	} else {
		fmt.Fprintln(out, "TASK FAILED")
	}
	fmt.Fprintf(out, "Execution ID:    %s\n", executionID)
	fmt.Fprintf(out, "Steps completed: %d\n", stepsCompleted)
	for _, shot := range screenshots {
		fmt.Fprintf(out, "Screenshot:      %s\n", shot)
	}
	if errMsg != "" {
		fmt.Fprintf(out, "Error:           %s\n", errMsg)
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))
}
