package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/store"
)

var (
	claimsTicker string
	claimsAuthor string
	claimsDate   string
	claimsStats  bool
	claimsDays   int
)

// claimsCmd represents the claims command
var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Query the claim ledger",
	Long: `Claims queries the SQLite ledger of every claim past briefs filed:
- By ticker: what has been asserted about a name over the lookback window
- By author: one analyst's track of assertions
- By date: everything a single brief filed
- Stats: ledger totals

Example:
  daybrief claims --ticker META
  daybrief claims --author "Brent Thill" --days 30
  daybrief claims --date 2026-08-28
  daybrief claims --stats`,
	Args: cobra.NoArgs,
	RunE: runClaims,
}

func init() {
	rootCmd.AddCommand(claimsCmd)

	claimsCmd.Flags().StringVar(&claimsTicker, "ticker", "", "filter by ticker")
	claimsCmd.Flags().StringVar(&claimsAuthor, "author", "", "filter by author")
	claimsCmd.Flags().StringVar(&claimsDate, "date", "", "filter by stored date (YYYY-MM-DD)")
	claimsCmd.Flags().BoolVar(&claimsStats, "stats", false, "print ledger statistics")
	claimsCmd.Flags().IntVar(&claimsDays, "days", 0, "lookback window in days (default: configured lookback_days)")
}

func runClaims(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	days := claimsDays
	if days <= 0 {
		days = cfg.Brief.LookbackDays
	}

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open claim store: %w", err)
	}
	defer s.Close()

	switch {
	case claimsStats:
		st, err := s.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Claims:   %d\n", st.TotalClaims)
		fmt.Printf("Tickers:  %d\n", st.UniqueTickers)
		fmt.Printf("Authors:  %d\n", st.UniqueAuthors)
		fmt.Printf("Days:     %d\n", st.DaysTracked)
		return nil

	case claimsTicker != "":
		claims, err := s.ClaimsForTicker(claimsTicker, days, false)
		if err != nil {
			return err
		}
		printClaims(claims)
		return nil

	case claimsAuthor != "":
		claims, err := s.ClaimsForAuthor(claimsAuthor, days, "")
		if err != nil {
			return err
		}
		printClaims(claims)
		return nil

	case claimsDate != "":
		claims, err := s.ClaimsByDate(claimsDate)
		if err != nil {
			return err
		}
		printClaims(claims)
		return nil

	default:
		return fmt.Errorf("one of --ticker, --author, --date, or --stats is required")
	}
}

func printClaims(claims []model.HistoricalClaim) {
	if len(claims) == 0 {
		fmt.Fprintln(os.Stderr, "No claims found")
		return
	}
	for _, c := range claims {
		ticker := c.Ticker
		if ticker == "" {
			ticker = "-"
		}
		fmt.Printf("%s  %-6s %-12s %-8s %s\n", c.DateStored, ticker, c.ClaimType, c.Confidence, c.Text())
		if c.SourceCitation != "" {
			fmt.Printf("            %s\n", c.SourceCitation)
		}
	}
	fmt.Fprintf(os.Stderr, "\n%d claims\n", len(claims))
}
