package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/daybrief/internal/drilldown"
	"github.com/ppiankov/daybrief/internal/ingest"
	"github.com/ppiankov/daybrief/internal/pipeline"
)

var (
	briefInput     string
	briefDate      string
	briefOutput    string
	briefTimeout   time.Duration
	briefDrilldown bool
	llmEnabled     bool
	llmProvider    string
	llmModel       string
)

// briefCmd represents the brief command
var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Build the daily decision brief from collected documents",
	Long: `Brief runs the full pipeline over the documents in the input directory:
- Segment and classify every document
- Triage chunks to the presentation budget
- Extract verbatim claims and filter them to the configured scope
- Tier, synthesize, and check drift against prior days
- Render one page-budgeted markdown brief

The pipeline is deterministic without an LLM provider; --llm enables
provider-backed classification and extraction.

Example:
  daybrief brief --input ~/.daybrief/inbox
  daybrief brief --date 2026-08-28 --output ./briefs
  daybrief brief --llm --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.NoArgs,
	RunE: runBrief,
}

func init() {
	rootCmd.AddCommand(briefCmd)

	// Input/output flags
	briefCmd.Flags().StringVar(&briefInput, "input", "", "input directory (default: configured ingest input_dir)")
	briefCmd.Flags().StringVar(&briefDate, "date", "", "brief date as YYYY-MM-DD (default: today)")
	briefCmd.Flags().StringVar(&briefOutput, "output", "", "output directory (default: configured brief output_dir)")
	briefCmd.Flags().DurationVar(&briefTimeout, "timeout", 5*time.Minute, "overall run timeout")
	briefCmd.Flags().BoolVar(&briefDrilldown, "drilldown", false, "write a companion claim-provenance file next to the brief")

	// LLM flags
	briefCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM classification and extraction")
	briefCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	briefCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBrief(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), briefTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if briefInput != "" {
		cfg.Ingest.InputDir = briefInput
	}
	if briefOutput != "" {
		cfg.Brief.OutputDir = briefOutput
	}

	day := time.Now()
	if briefDate != "" {
		day, err = time.Parse("2006-01-02", briefDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", briefDate)
		}
	}

	// Configure LLM if enabled
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			baseURL := os.Getenv("OLLAMA_BASE_URL")
			if baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	pol, err := loadPolicy(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Input:  %s\n", cfg.Ingest.InputDir)
		fmt.Fprintf(os.Stderr, "Date:   %s\n", day.Format("2006-01-02"))
		if llmEnabled {
			fmt.Fprintf(os.Stderr, "LLM:    %s/%s\n", llmProvider, llmModel)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg, pol)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer p.Close()

	// Collect the day's documents from the inbox
	inbox := ingest.NewFileSource("inbox", "sellside", cfg.Ingest.InputDir, "")
	orch := ingest.NewOrchestrator([]ingest.Source{inbox}, cfg.Ingest.SourceTimeout, cfg.Ingest.Workers)
	collected := orch.Collect(ctx)

	if len(collected.Items) == 0 && verbose {
		fmt.Fprintf(os.Stderr, "No documents found in %s; producing a thin-day brief\n", cfg.Ingest.InputDir)
	}

	result, err := p.Run(ctx, collected.Items, day, collected.Notices())
	if err != nil {
		return fmt.Errorf("brief failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Collected %d documents\n", len(collected.Items))
		fmt.Fprintf(os.Stderr, "✓ Triaged %d chunks to %d\n", result.Triage.InputCount, result.Triage.OutputCount)
		fmt.Fprintf(os.Stderr, "✓ Scope: %s\n", result.Filter.Summary())
		fmt.Fprintf(os.Stderr, "✓ Stored %d claims\n", result.Stored)
		fmt.Fprintf(os.Stderr, "✓ Brief: %d/%d words\n", result.Brief.WordCount, result.Brief.WordBudget)
		fmt.Fprintln(os.Stderr)
	}

	if briefDrilldown && result.Provenance != nil {
		path, err := writeDrilldown(cfg.Brief.OutputDir, day.Format("2006-01-02"), result.Provenance)
		if err != nil {
			return err
		}
		if verbose && path != "" {
			fmt.Fprintf(os.Stderr, "✓ Provenance: %s (%s)\n", path, result.Provenance.Summary())
		}
	}

	if result.Path != "" {
		fmt.Println(result.Path)
	} else {
		fmt.Print(result.Markdown)
	}
	return nil
}

// writeDrilldown writes the claim-provenance companion next to the brief.
// Without an output directory the provenance goes to stderr so a piped
// brief stays clean on stdout.
func writeDrilldown(dir, date string, index *drilldown.Index) (string, error) {
	markdown := index.Markdown(date)
	if dir == "" {
		fmt.Fprint(os.Stderr, markdown)
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("drilldown_%s.md", date))
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("write provenance: %w", err)
	}
	return path, nil
}
