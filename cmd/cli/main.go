package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	messaging "github.com/iho/cashbook/internal/adapter/messaging/redis"
	"github.com/iho/cashbook/internal/domain"
	"github.com/iho/cashbook/internal/infrastructure/logger"
	"github.com/iho/cashbook/internal/infrastructure/redis"
	"github.com/iho/cashbook/internal/usecase"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cashbook-cli",
		Short: "Cashbook CLI tool",
		Long:  `A command line interface for interacting with the Cashbook API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Cashbook API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Offline queue operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show pending offline actions",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/queue")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Replay pending offline actions",
		Run: func(cmd *cobra.Command, args []string) {
			postJSON("/api/v1/queue/replay")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dead-letters",
		Short: "List permanently failed actions",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/queue/dead-letters")
		},
	})

	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <companyId> <entityId> <date>",
		Short: "Show the ledger entry for a date",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON(fmt.Sprintf("/api/v1/companies/%s/entities/%s/entries/%s", args[0], args[1], args[2]))
		},
	})

	var from, to string
	chainCmd := &cobra.Command{
		Use:   "chain <companyId> <entityId>",
		Short: "Verify the balance chain for a date range",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON(fmt.Sprintf("/api/v1/companies/%s/entities/%s/chain?from=%s&to=%s", args[0], args[1], from, to))
		},
	}
	chainCmd.Flags().StringVar(&from, "from", "", "Range start (YYYY-MM-DD)")
	chainCmd.Flags().StringVar(&to, "to", "", "Range end (YYYY-MM-DD)")
	cmd.AddCommand(chainCmd)

	return cmd
}

func reconcileCmd() *cobra.Command {
	var (
		service string
		from    string
		to      string
		amounts []string
	)

	cmd := &cobra.Command{
		Use:   "reconcile <companyId> <entityId>",
		Short: "Match an external payment list against recorded formula amounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("invalid --from %q: %w", from, err)
			}
			toDate, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("invalid --to %q: %w", to, err)
			}

			payload := map[string]any{
				"service":       service,
				"from":          fromDate.Format(time.RFC3339),
				"to":            toDate.Format(time.RFC3339),
				"systemAmounts": amounts,
			}
			postBody(fmt.Sprintf("/api/v1/companies/%s/entities/%s/reconcile", args[0], args[1]), payload)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service to reconcile (e.g. ria, wave)")
	cmd.Flags().StringVar(&from, "from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&amounts, "amounts", nil, "External amounts, comma separated")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func watchCmd() *cobra.Command {
	var (
		redisURL string
		userID   string
	)

	cmd := &cobra.Command{
		Use:   "watch <entityId> <date>",
		Short: "Watch live presence signals for an entity and date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[1], err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			client, err := redis.NewClient(ctx, redisURL)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer client.Close()

			appLogger := logger.New(logger.Config{Level: "warn", Format: "console"})
			broadcaster := messaging.NewBroadcaster(client, appLogger)
			presence := usecase.NewPresenceUseCase(broadcaster, usecase.Session{UserID: userID}, appLogger)

			unsubscribe, err := presence.OnPresenceUpdate(ctx, args[0], date, func(signal domain.PresenceSignal) {
				cleared := ""
				if signal.Cleared {
					cleared = " (cleared)"
				}
				fmt.Printf("%s  %s editing %s%s\n",
					signal.Timestamp.Format(time.TimeOnly), truncate(signal.UserName, 24), signal.Field, cleared)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer unsubscribe()

			fmt.Printf("watching %s %s, ctrl-c to stop\n", args[0], args[1])

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			return nil
		},
	}

	cmd.Flags().StringVar(&redisURL, "redis-url", "redis://localhost:6379", "Redis URL for presence signals")
	cmd.Flags().StringVar(&userID, "user-id", "", "Own user id, used to drop own signals")

	return cmd
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func postJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(nil))
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func postBody(path string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Failed to encode request: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	printJSON(result)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
