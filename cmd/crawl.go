// cmd/crawl.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/crawler"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/observability"
)

// newCrawlCmd creates the `crawl` command, which runs only the site survey
// and prints or saves what the knowledge store would be built from.
func newCrawlCmd() *cobra.Command {
	crawlCmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawls a domain and reports the discovered pages and forms",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("crawler.max_depth", cmd.Flags().Lookup("depth")); err != nil {
				return err
			}
			return viper.BindPFlag("crawler.max_pages", cmd.Flags().Lookup("max-pages"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			pages, err := crawler.NewCrawler(cfg.Crawler, logger).Crawl(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for url, page := range pages {
				fmt.Fprintf(out, "%s  status=%s forms=%d inputs=%d\n",
					url, page.Status, len(page.Forms), len(page.Inputs))
			}
			fmt.Fprintf(out, "%d pages crawled\n", len(pages))

			if output, _ := cmd.Flags().GetString("output"); output != "" {
				data, err := json.MarshalIndent(pages, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal crawl output: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write crawl output: %w", err)
				}
				fmt.Fprintf(out, "written to %s\n", output)
			}
			return nil
		},
	}

	crawlCmd.Flags().Int("depth", 2, "maximum crawl depth")
	crawlCmd.Flags().Int("max-pages", 10, "maximum number of pages to fetch")
	crawlCmd.Flags().StringP("output", "o", "", "write the full crawl result to a JSON file")

	return crawlCmd
}
