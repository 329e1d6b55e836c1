package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/onnwee/ingame-bot/crypto"
	"github.com/onnwee/ingame-bot/db"
	"github.com/onnwee/ingame-bot/twitchapi"
)

const defaultDSN = "sqlite://tokens.db"

type options struct {
	dsn string
	key string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tokens",
		Short:         "Inspect and maintain stored Twitch tokens",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
		},
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", envOr("DB_DSN", defaultDSN), "database DSN (sqlite://path or postgres://...)")
	root.PersistentFlags().StringVar(&opts.key, "key", os.Getenv("ENCRYPTION_KEY"), "base64 32-byte token encryption key")

	root.AddCommand(
		newListCmd(opts),
		newEncryptCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (o *options) open(cmd *cobra.Command) (*sqlx.DB, *db.TokenStore, error) {
	var cipher *crypto.TokenCipher
	if o.key != "" {
		c, err := crypto.NewTokenCipher(o.key)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		cipher = c
	}
	dbx, err := db.Connect(cmd.Context(), o.dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Prepare(cmd.Context(), dbx); err != nil {
		_ = dbx.Close()
		return nil, nil, err
	}
	return dbx, db.NewTokenStore(dbx, cipher), nil
}

type listedToken struct {
	AccountID string `json:"account_id"`
	Access    string `json:"access_token"`
	Refresh   string `json:"refresh_token"`
	Sealed    bool   `json:"sealed"`
}

func displayValue(v string) string {
	switch {
	case v == "":
		return "-"
	case crypto.IsSealed(v):
		return "(sealed)"
	default:
		return twitchapi.MaskToken(v)
	}
}

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored accounts with masked token values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbx, store, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer dbx.Close()

			rows, err := store.Raw(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]listedToken, 0, len(rows))
			for _, r := range rows {
				out = append(out, listedToken{
					AccountID: r.AccountID,
					Access:    displayValue(r.AccessToken),
					Refresh:   displayValue(r.RefreshToken),
					Sealed:    crypto.IsSealed(r.AccessToken),
				})
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ACCOUNT\tACCESS\tREFRESH")
			for _, t := range out {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", t.AccountID, t.Access, t.Refresh)
			}
			_, _ = fmt.Fprintf(tw, "\naccounts: %d\n", len(out))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newEncryptCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal plaintext token rows with the encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.key == "" {
				return fmt.Errorf("encrypt: %w (set ENCRYPTION_KEY or --key)", crypto.ErrKeyRequired)
			}
			dbx, store, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer dbx.Close()

			n, err := store.SealPlaintext(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "would encrypt %d row(s)\n", n)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "encrypted %d row(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be encrypted without writing")
	return cmd
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbx, _, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer dbx.Close()

			version, dirty, err := db.MigrationVersion(dbx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}
