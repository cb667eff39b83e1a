package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/hostledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hostledger-cli",
		Short: "HostLedger CLI tool",
		Long:  `A command line interface for interacting with the HostLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the HostLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check the ledger-wide double-entry invariant",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}

	ledgerCmd.AddCommand(consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	// Balance command
	var fresh bool
	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Resolve an account's current balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showBalance(args[0], fresh)
		},
	}
	balanceCmd.Flags().BoolVar(&fresh, "fresh", false, "Bypass cache and checkpoint, force an exact full scan")
	rootCmd.AddCommand(balanceCmd)

	// Debts command
	var overdue bool
	debtsCmd := &cobra.Command{
		Use:   "debts <host-account-id>",
		Short: "List a host's outstanding debts",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			listDebts(args[0], overdue)
		},
	}
	debtsCmd.Flags().BoolVar(&overdue, "overdue", false, "Only debts past their grace period")
	rootCmd.AddCommand(debtsCmd)

	// Checkpoint commands
	var currency string
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Balance checkpoint operations",
	}
	checkpointCmd.PersistentFlags().StringVar(&currency, "currency", "USD", "Host currency of the checkpoint")

	checkpointRefreshCmd := &cobra.Command{
		Use:   "refresh <account-id>",
		Short: "Fold settled legs into the account's checkpoint",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			refreshCheckpoint(args[0], currency)
		},
	}

	checkpointCmd.AddCommand(checkpointRefreshCmd)
	rootCmd.AddCommand(checkpointCmd)

	// Migration commands
	var databaseURL, migrationsPath string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "internal/infrastructure/postgres/migrations", "Migrations directory")

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrations(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations applied")
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrationsDown(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Rollback failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations rolled back")
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func checkConsistency() {
	result, status, err := getJSON("/api/v1/ledger/consistency")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}

	if status != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\n", status)
		os.Exit(1)
	}

	fmt.Printf("Consistency check PASSED\n")
	if consistent, ok := result["consistent"].(bool); ok {
		fmt.Printf("Consistent: %v\n", consistent)
	}
}

func showBalance(accountID string, fresh bool) {
	path := "/api/v1/accounts/" + accountID + "/balance"
	if fresh {
		path += "?fresh=true"
	}

	result, status, err := getJSON(path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}

	if status != http.StatusOK {
		fmt.Printf("Balance read failed (Status: %d)\n", status)
		os.Exit(1)
	}

	fmt.Printf("Account:   %s\n", result["account_id"])
	fmt.Printf("Currency:  %s\n", result["currency"])
	fmt.Printf("Available: %s\n", result["available"])
	fmt.Printf("Disputed:  %s\n", result["disputed"])
	fmt.Printf("Source:    %s\n", result["source"])
}

func listDebts(hostAccountID string, overdue bool) {
	path := "/api/v1/hosts/" + hostAccountID + "/debts"
	if overdue {
		path += "?overdue=true"
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Debt listing failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var debts []map[string]any
	if err := json.Unmarshal(body, &debts); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if len(debts) == 0 {
		fmt.Println("No debts")
		return
	}

	fmt.Printf("%-28s %-22s %-12s %-8s\n", "ID", "KIND", "AMOUNT", "STATUS")
	for _, d := range debts {
		fmt.Printf("%-28s %-22s %-12v %-8s\n",
			truncate(fmt.Sprint(d["id"]), 28),
			truncate(fmt.Sprint(d["kind"]), 22),
			d["amount"],
			d["status"])
	}
}

func refreshCheckpoint(accountID, currency string) {
	path := "/api/v1/accounts/" + accountID + "/checkpoint/refresh?currency=" + currency

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Checkpoint refresh failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account:  %s\n", result["account_id"])
	fmt.Printf("Currency: %s\n", result["host_currency"])
	fmt.Printf("Balance:  %s\n", result["balance"])
	fmt.Printf("As of:    %s\n", result["as_of"])
}

func getJSON(path string) (map[string]any, int, error) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, resp.StatusCode, err
	}

	return result, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
