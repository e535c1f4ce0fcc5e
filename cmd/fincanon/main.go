// fincanon — financial statement normalization & reconciliation engine.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"fincanon/api"
	"fincanon/internal/config"
	"fincanon/internal/infra"
	"fincanon/internal/pipeline"
	"fincanon/internal/provider"
	"fincanon/internal/providers/mops"
	"fincanon/internal/providers/yahoo"
	"fincanon/internal/recon"
	"fincanon/internal/report"
	"fincanon/internal/roster"
	"fincanon/internal/store"
	"fincanon/internal/store/sqlite"
	"fincanon/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fincanon",
	Short: "fincanon — canonical financial statement series for underwriting",
	Long: `fincanon ingests quarterly and annual disclosures from upstream
providers, reconciles them into canonical per-company metric series,
and persists the result for underwriting review.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		configureLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
}

func configureLogging() {
	level := log.ParseLevel(cfg.Logging.Level)
	log.DefaultLogger.SetLevel(level)
}

// buildRegistry constructs the provider registry in configured priority
// order.
func buildRegistry() (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, name := range cfg.Providers.Order {
		switch name {
		case "yahoo":
			registry.Register(yahoo.New(yahoo.WithBaseURL(cfg.Providers.Yahoo.BaseURL)))
		case "mops":
			registry.Register(mops.New(mops.WithBaseURL(cfg.Providers.MOPS.BaseURL)))
		default:
			return nil, fmt.Errorf("unknown provider %q in order", name)
		}
	}
	return registry, nil
}

// buildRunner wires the registry, engine, and store into a pipeline
// runner. The caller owns closing the returned store.
func buildRunner() (*pipeline.Runner, store.Store, error) {
	registry, err := buildRegistry()
	if err != nil {
		return nil, nil, err
	}
	st, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	engine := recon.New(cfg.Providers.Order, cfg.Fiscal.Epoch)
	since := time.Now().UTC().AddDate(-cfg.Fiscal.SinceYears, 0, 0)
	return pipeline.NewRunner(registry, engine, st, since), st, nil
}

func loadRoster(path string) ([]roster.Company, error) {
	if path == "" {
		path = cfg.Batch.RosterPath
	}
	if path == "" {
		return nil, nil
	}
	return roster.LoadFile(path)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fincanon %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Sync Command ---

var syncCmd = &cobra.Command{
	Use:   "sync [code]",
	Short: "Ingest and reconcile one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, st, err := buildRunner()
		if err != nil {
			return err
		}
		defer st.Close()

		code := utils.ExtractCode(args[0])
		if code == "" {
			return fmt.Errorf("no company code in %q", args[0])
		}
		company := roster.Company{Code: code, Venue: utils.VenueTWSE}
		if companies, err := loadRoster(""); err == nil {
			for _, c := range companies {
				if c.Code == code {
					company = c
					break
				}
			}
		}

		series, err := runner.RunCompany(cmd.Context(), company)
		if err != nil {
			return err
		}
		fmt.Print(report.Render(series))
		decision := report.Decide(series, cfg.Underwriting.RevenueFloorThousands)
		fmt.Printf("\nDecision: group A = %v (%s)\n", decision.GroupA, decision.Reason)
		return nil
	},
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Ingest every company on the roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		rosterPath, _ := cmd.Flags().GetString("roster")
		feed, _ := cmd.Flags().GetBool("feed")
		limit, _ := cmd.Flags().GetInt("limit")

		companies, err := loadRoster(rosterPath)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			return fmt.Errorf("roster is empty; set batch.roster_path or pass --roster")
		}

		if feed {
			if cfg.Providers.MOPS.FeedURL == "" {
				return fmt.Errorf("--feed requires providers.mops.feed_url")
			}
			codes, err := roster.NewWatcher(cfg.Providers.MOPS.FeedURL).RecentCodes(cmd.Context())
			if err != nil {
				return err
			}
			companies = roster.Filter(companies, codes)
			fmt.Printf("Feed narrowed the roster to %d companies\n", len(companies))
		}
		if limit > 0 && len(companies) > limit {
			companies = companies[:limit]
		}

		runner, st, err := buildRunner()
		if err != nil {
			return err
		}
		defer st.Close()

		pacer := infra.NewPacer(time.Duration(cfg.Batch.PaceMillis) * time.Millisecond)
		fmt.Printf("Syncing %d companies...\n", len(companies))
		result := runner.RunBatch(cmd.Context(), companies, pacer)

		fmt.Printf("Synced %d, skipped %d\n", len(result.Synced), len(result.Skipped))
		for _, skip := range result.Skipped {
			fmt.Printf("  %s: %s\n", skip.Code, skip.Reason)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().String("roster", "", "roster csv path (code,name,venue)")
	batchCmd.Flags().Bool("feed", false, "restrict the run to companies in the disclosure feed")
	batchCmd.Flags().Int("limit", 0, "sync at most this many companies")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The server only reads what sync and batch persisted, so the
		// provider stack stays out of the serving path.
		st, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		// The roster only resolves analyze queries; serving without one
		// still answers code-based requests.
		companies, err := loadRoster("")
		if err != nil {
			log.DefaultLogger.Warn().Err(err).Msg("serving without a roster")
			companies = nil
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting fincanon API server on %s\n", addr)
		return api.NewServer(cfg, st, companies).ListenAndServe(addr)
	},
}

// --- Providers Command ---

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and check connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		for i, prov := range registry.InOrder() {
			role := "secondary"
			if i == 0 {
				role = "primary"
			}
			status := "ok"
			if err := prov.Ping(ctx); err != nil {
				status = err.Error()
			}
			fmt.Printf("  %-8s %-10s %s\n", prov.Name(), role, status)
		}
		return nil
	},
}
