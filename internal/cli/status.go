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

	"github.com/vietddude/aggregator/internal/core/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider health from a running aggregator",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type providerStatus struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Health   *struct {
		Status           string    `json:"status"`
		SuccessCount     uint64    `json:"success_count"`
		FailCount        uint64    `json:"fail_count"`
		ConsecutiveFails int       `json:"consecutive_fails"`
		CooldownUntil    time.Time `json:"cooldown_until"`
	} `json:"health"`
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d/providers", cfg.Server.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to reach aggregator, is it running?", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var providers []providerStatus
	if err := json.NewDecoder(resp.Body).Decode(&providers); err != nil {
		slog.Error("Failed to decode response", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RESOURCE\tCATEGORY\tSTATUS\tOK\tFAIL\tSTREAK\tCOOLDOWN UNTIL")

	for _, p := range providers {
		status, ok, fail, streak, cooldown := "available", uint64(0), uint64(0), 0, "-"
		if p.Health != nil {
			status = p.Health.Status
			ok = p.Health.SuccessCount
			fail = p.Health.FailCount
			streak = p.Health.ConsecutiveFails
			if !p.Health.CooldownUntil.IsZero() && p.Health.CooldownUntil.After(time.Now()) {
				cooldown = p.Health.CooldownUntil.Format(time.RFC3339)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			p.ID, p.Category, status, ok, fail, streak, cooldown)
	}
	_ = w.Flush()
}
