// Package cli wires the cobra command tree. All configuration is resolved
// here into one immutable model.Config before any component is built.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/daybrief/internal/logging"
	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "daybrief",
	Short: "Daybrief - deterministic daily decision briefs from financial research",
	Long: `Daybrief turns the day's ingested research documents - broker notes,
newsletters, podcast transcripts, macro headlines - into one page-budgeted
decision brief.

Claims are extracted verbatim, scored against a configured coverage policy,
tiered by urgency, checked for drift against prior days, and rendered under
a hard word budget. The pipeline is deterministic: the same inputs and policy
always produce the same brief.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logging.Close()

	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("daybrief v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.daybrief/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.daybrief")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match DAYBRIEF_*
	viper.SetEnvPrefix("DAYBRIEF")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig resolves the effective configuration: defaults overlaid with
// the config file values viper found.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if viper.ConfigFileUsed() != "" {
		if err := viper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Output.Verbose = verbose || viper.GetBool("verbose")
	return cfg, nil
}

// loadPolicy loads the scoring policy named in the config, falling back to
// the built-in TMT default.
func loadPolicy(cfg *model.Config) (*policy.Policy, error) {
	if cfg.PolicyPath == "" {
		return policy.Default(), nil
	}
	p, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return p, nil
}
