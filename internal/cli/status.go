package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aurracloud/agentic-x402/internal/core/config"
	"github.com/Aurracloud/agentic-x402/internal/watch"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's watcher status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/status", cfg.Server.Port))
	if err != nil {
		slog.Error("Failed to reach the watcher daemon", "port", cfg.Server.Port, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var status watch.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		slog.Error("Failed to decode status", "error", err)
		os.Exit(1)
	}

	lastPoll := "never"
	if status.LastPollAt != nil {
		lastPoll = *status.LastPollAt
	}

	fmt.Printf("running: %t\n", status.Running)
	fmt.Printf("poll interval: %dms\n", status.PollIntervalMs)
	fmt.Printf("payments detected: %d\n", status.PaymentsDetected)
	fmt.Printf("last poll: %s\n\n", lastPoll)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ROUTER\tADDRESS\tBALANCE\tLAST CHECKED")

	for _, router := range status.TrackedRouters {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			router.Name, router.Address, router.Balance, router.LastChecked)
	}
	_ = w.Flush()
}
