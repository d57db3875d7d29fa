package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/daybrief/internal/cache"
	"github.com/ppiankov/daybrief/internal/ingest"
	"github.com/ppiankov/daybrief/internal/worker"
)

var (
	ingestConcurrency   int
	ingestSourceTimeout time.Duration
	ingestInputDir      string
	ingestTimeout       time.Duration
	ingestNoCache       bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <sources.yaml>",
	Short: "Collect documents from configured sources into the inbox",
	Long: `Ingest runs every source named in a sources.yaml file concurrently:
- File sources sweep local drop directories
- HTTP sources fetch pages under robots.txt and per-domain rate limits
- Each source runs inside its own time box; a slow source is abandoned
  and its already-collected documents are kept

Collected documents land in the input directory as JSON envelopes,
ready for the brief command.

Example:
  daybrief ingest sources.yaml
  daybrief ingest sources.yaml --concurrency 8 --source-timeout 1m
  daybrief ingest sources.yaml --input ./inbox`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "workers per source (default: configured ingest workers)")
	ingestCmd.Flags().DurationVar(&ingestSourceTimeout, "source-timeout", 0, "per-source time box (default: configured source_timeout)")
	ingestCmd.Flags().StringVar(&ingestInputDir, "input", "", "inbox directory (default: configured ingest input_dir)")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "total collection timeout")
	ingestCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "disable the fetch cache (force fresh fetches)")
}

// formatReport renders one source outcome line for the collection summary.
func formatReport(rep ingest.SourceReport) string {
	switch {
	case rep.Err != "":
		return fmt.Sprintf("✗ %s: %s", rep.Source, rep.Err)
	case rep.TimedOut:
		return fmt.Sprintf("⚠ %s: timed out, kept %d/%d documents", rep.Source, rep.Collected, rep.Discovered)
	default:
		return fmt.Sprintf("✓ %s: %d/%d documents", rep.Source, rep.Collected, rep.Discovered)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if ingestConcurrency > 0 {
		cfg.Ingest.Workers = ingestConcurrency
	}
	if ingestSourceTimeout > 0 {
		cfg.Ingest.SourceTimeout = ingestSourceTimeout
	}
	if ingestInputDir != "" {
		cfg.Ingest.InputDir = ingestInputDir
	}
	if ingestNoCache {
		cfg.Cache.Enabled = false
	}

	sf, err := ingest.LoadSources(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Daybrief Collection\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Sources:      %d\n", len(sf.Sources))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Ingest.Workers)
	fmt.Fprintf(os.Stderr, "  Time box:     %v\n", cfg.Ingest.SourceTimeout)
	fmt.Fprintf(os.Stderr, "  Inbox:        %s\n", cfg.Ingest.InputDir)
	fmt.Fprintf(os.Stderr, "\n")

	var fetchCache cache.Cache
	if cfg.Cache.Enabled {
		fetchCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	sources := ingest.BuildSources(sf, cfg, fetchCache, limiter)
	orch := ingest.NewOrchestrator(sources, cfg.Ingest.SourceTimeout, cfg.Ingest.Workers)
	result := orch.Collect(ctx)

	for _, rep := range result.Reports {
		fmt.Fprintln(os.Stderr, formatReport(rep))
	}

	written := 0
	for i := range result.Items {
		path, err := ingest.WriteItem(cfg.Ingest.InputDir, &result.Items[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Items[i].Document.Title, err)
			continue
		}
		written++
		if verbose {
			fmt.Fprintf(os.Stderr, "  → %s\n", path)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Collected:    %d documents\n", len(result.Items))
	fmt.Fprintf(os.Stderr, "  Written:      %d envelopes\n", written)
	fmt.Fprintf(os.Stderr, "\n")

	if written < len(result.Items) {
		return fmt.Errorf("%d documents could not be written", len(result.Items)-written)
	}
	return nil
}
