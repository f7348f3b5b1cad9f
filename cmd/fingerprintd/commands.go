package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-fingerprint/internal/accesslog"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
	"github.com/nerrad567/gray-logic-fingerprint/migrations"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "fingerprintd",
		Short:   "Fingerprint access-control node",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Long: `fingerprintd drives a fingerprint sensor, keeps the enrolled template
registry in sync with the device and bridges scans and admin commands to MQTT.

Running without a subcommand is the same as "fingerprintd serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"path to config.yaml (env FINGERPRINT_CONFIG)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(templatesCmd(&configPath))
	rootCmd.AddCommand(historyCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the node until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *configPath)
		},
	}
}

func templatesCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Print the persisted template registry",
		Long: `Print the template registry file named by registry.path.

This reads the file only; it does not talk to the sensor, so slots enrolled
or deleted since the node last ran are not reflected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			records, err := template.NewFileStore(cfg.Registry.Path).Load(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return printTemplates(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func historyCmd(configPath *string) *cobra.Command {
	var (
		limit  int
		kind   string
		slot   int
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the access log",
		Example: `  fingerprintd history --limit 20
  fingerprintd history --kind unauthorized --since 24h
  fingerprintd history --slot 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck // read-only command
			if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			filter := accesslog.Filter{Kind: accesslog.Kind(kind), Limit: limit}
			if cmd.Flags().Changed("slot") {
				filter.Slot = &slot
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			res, err := accesslog.NewSQLiteRepository(db.DB).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printHistory(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", accesslog.DefaultLimit, "maximum events to show")
	cmd.Flags().StringVar(&kind, "kind", "", "only this kind (match, unauthorized, enroll, delete, empty)")
	cmd.Flags().IntVar(&slot, "slot", 0, "only this slot")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this (e.g. 24h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fingerprintd %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}

func printTemplates(w io.Writer, records []template.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tACTION\tCOUNT\tLAST SEEN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			r.ID, r.Label, r.Action, r.Count, r.LastSeen().UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func printHistory(w io.Writer, res *accesslog.ListResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tSLOT\tLABEL\tACTION\tCONFIDENCE\tOK")
	for _, ev := range res.Events {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%t\n",
			ev.OccurredAt.Format(time.RFC3339), ev.Kind, ev.Slot, ev.Label, ev.Action, ev.Confidence, ev.Success)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d events\n", len(res.Events), res.Total)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
