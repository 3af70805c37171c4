package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/config"
	"top-posts-report/report-backend/internal/media"
	"top-posts-report/report-backend/internal/reports"
)

// runOptions collects the command line flags
type runOptions struct {
	configFile  string
	date        string
	outputPath  string
	skipTrigger bool
	rankCutoff  int
	jsonOutput  bool
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "report-generator",
		Short: "Render the daily top posts report to PDF",
		Long: `report-generator asks the scraping API to refresh the top_posts table,
then renders the posts of one extraction date to a PDF document.

Example usage:
  report-generator                         # Trigger and render today's batch
  report-generator --date 2024-05-01       # Render a past batch
  report-generator --skip-trigger -o out.pdf`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "JSON config file")
	cmd.Flags().StringVarP(&opts.date, "date", "d", "", "extraction date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "output PDF path")
	cmd.Flags().BoolVar(&opts.skipTrigger, "skip-trigger", false, "render without calling the scraping API")
	cmd.Flags().IntVar(&opts.rankCutoff, "rank-cutoff", 0, "include posts with rank up to this value")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the run result as JSON")

	return cmd
}

// parseDate parses a YYYY-MM-DD date in local time; empty means today.
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// applyFlags overrides configuration with the flags that were set.
func applyFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.Report.OutputPath = opts.outputPath
	}
	if cmd.Flags().Changed("rank-cutoff") {
		cfg.Report.RankCutoff = opts.rankCutoff
	}
}

func run(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(!opts.skipTrigger); err != nil {
		return err
	}

	date, err := parseDate(opts.date, time.Now())
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	resolver := media.NewHTTPResolver(nil, reports.ResolverOptionsFromConfig(cfg), logger)
	service := reports.NewServiceFromConfig(cfg, resolver, logger)

	result, err := service.Run(cmd.Context(), reports.RunOptions{
		Date:        date,
		SkipTrigger: opts.skipTrigger,
	})
	if err != nil {
		logger.Error("Report generation failed", zap.String("error_kind", reports.ErrorKind(err)))
		return err
	}

	return printResult(cmd, opts, result)
}

func printResult(cmd *cobra.Command, opts *runOptions, result *reports.RunResult) error {
	w := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Status == reports.RunStatusSkipped {
		fmt.Fprintf(w, "Report for %s skipped: the scraping API declined the request\n", result.Date)
		return nil
	}
	fmt.Fprintf(w, "Report for %s written to %s\n", result.Date, result.OutputPath)
	fmt.Fprintf(w, "  posts:           %d\n", result.RecordCount)
	fmt.Fprintf(w, "  media embedded:  %d\n", result.MediaEmbedded)
	fmt.Fprintf(w, "  media as links:  %d\n", result.MediaFallbacks)
	for _, extra := range result.ExtraOutputs {
		fmt.Fprintf(w, "  companion:       %s\n", extra)
	}
	return nil
}
