package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aurracloud/agentic-x402/internal/core/config"
	"github.com/Aurracloud/agentic-x402/internal/core/domain"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
	redisclient "github.com/Aurracloud/agentic-x402/internal/infra/redis"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent payments from the journal",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of payments to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	journal, err := openJournal(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open payment journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = journal.Close()
	}()

	events, err := journal.Recent(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to read payment journal", "error", err)
		os.Exit(1)
	}

	decimals := cfg.Token.Decimals
	if decimals <= 0 {
		decimals = token.DefaultDecimals
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "DETECTED\tROUTER\tINCREASE\tBALANCE")

	for _, ev := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			domain.Timestamp(ev.DetectedAt),
			ev.Label,
			token.FormatUnits(ev.Increase, decimals),
			token.FormatUnits(ev.Current, decimals),
		)
	}
	_ = w.Flush()
}

func openJournal(ctx context.Context, cfg *config.AppConfig) (storage.PaymentJournal, error) {
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgres.NewPaymentRepo(db), nil
	}
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisclient.NewJournal(client), nil
	}
	return nil, fmt.Errorf("no journal backend configured (set database.url or redis.url)")
}
