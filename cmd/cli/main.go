package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
)

type options struct {
	baseURL string
	timeout time.Duration
	actor   string
	asJSON  bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "reconctl",
		Short:        "Bank reconciliation CLI",
		Long:         `A command line interface for the bank reconciliation API.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the reconciliation API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", os.Getenv("USER"), "Actor recorded on write operations")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(
		accountsCmd(opts),
		sessionsCmd(opts),
		discrepanciesCmd(opts),
		balancesCmd(opts),
		outstandingCmd(opts),
	)
	return rootCmd
}

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Bank account operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bank accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ListAccountsResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts", nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBANK\tNUMBER\tNAME\tCURRENCY\tBALANCE\tSTATUS")
			for _, a := range resp.Accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, truncate(a.BankName, 20), a.AccountNumber, truncate(a.AccountName, 24),
					a.Currency, a.CurrentBalance.StringFixed(2), a.Status)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(listCmd)
	return cmd
}

func sessionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Reconciliation session operations",
	}

	var (
		from    string
		to      string
		closing string
	)
	startCmd := &cobra.Command{
		Use:   "start <account-id>",
		Short: "Start a reconciliation session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := decimal.NewFromString(closing)
			if err != nil {
				return fmt.Errorf("invalid --closing-balance %q: %w", closing, err)
			}
			req := dto.StartSessionRequest{
				AccountID:               args[0],
				PeriodStart:             from,
				PeriodEnd:               to,
				StatementClosingBalance: balance,
			}
			var resp dto.SessionResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/sessions", req, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started session %s (%s) for %s..%s\n",
				resp.SessionNumber, resp.ID, resp.PeriodStart, resp.PeriodEnd)
			return nil
		},
	}
	startCmd.Flags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	startCmd.Flags().StringVar(&to, "to", "", "Period end (YYYY-MM-DD)")
	startCmd.Flags().StringVar(&closing, "closing-balance", "", "Statement closing balance")
	_ = startCmd.MarkFlagRequired("from")
	_ = startCmd.MarkFlagRequired("to")
	_ = startCmd.MarkFlagRequired("closing-balance")

	autoMatchCmd := &cobra.Command{
		Use:   "auto-match <session-id>",
		Short: "Run the automatic matcher over a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AutoRunResponse
			path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/auto-match"
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Matched: %d\nUnmatched: %d\nSkipped: %d\n",
				len(resp.Matches), len(resp.Unmatched), len(resp.Skipped))
			return nil
		},
	}

	summaryCmd := &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Show a session summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SessionSummaryResponse
			path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/summary"
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Session:            %s (%s)\n", resp.SessionNumber, resp.Status)
			fmt.Fprintf(w, "Statement balance:  %s\n", resp.StatementClosingBalance.StringFixed(2))
			fmt.Fprintf(w, "Book balance:       %s\n", resp.BookBalance.StringFixed(2))
			fmt.Fprintf(w, "Difference:         %s\n", resp.Difference.StringFixed(2))
			fmt.Fprintf(w, "Matched:            %d\n", resp.MatchedCount)
			fmt.Fprintf(w, "Unmatched:          %d\n", resp.UnmatchedCount)
			fmt.Fprintf(w, "Open discrepancies: %d (%s)\n", resp.OpenDiscrepancies, resp.TotalDiscrepancyAmount.StringFixed(2))
			return nil
		},
	}

	var notes string
	closeCmd := func(use, action, short string) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <session-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp dto.SessionResponse
				path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/" + action
				if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, dto.CloseSessionRequest{Notes: notes}, &resp); err != nil {
					return err
				}
				if opts.asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s is now %s\n", resp.SessionNumber, resp.Status)
				return nil
			},
		}
		c.Flags().StringVar(&notes, "notes", "", "Closing notes")
		return c
	}

	cmd.AddCommand(
		startCmd,
		autoMatchCmd,
		summaryCmd,
		closeCmd("complete", "complete", "Complete a session"),
		closeCmd("reject", "reject", "Reject a session"),
	)
	return cmd
}

func discrepanciesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discrepancies",
		Short: "Discrepancy operations",
	}

	var status string
	listCmd := &cobra.Command{
		Use:   "list <session-id>",
		Short: "List the discrepancies recorded in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/discrepancies"
			if status != "" {
				path += "?status=" + url.QueryEscape(status)
			}
			var resp []*dto.DiscrepancyResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNUMBER\tTYPE\tAMOUNT\tSTATUS\tDESCRIPTION")
			for _, d := range resp {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Number, d.Type, d.Amount.StringFixed(2), d.Status, truncate(d.Description, 32))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (open, resolved, escalated)")

	var notes string
	actionCmd := func(action, short string) *cobra.Command {
		c := &cobra.Command{
			Use:   action + " <discrepancy-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp dto.DiscrepancyResponse
				path := "/api/v1/discrepancies/" + url.PathEscape(args[0]) + "/" + action
				if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, dto.DiscrepancyActionRequest{Notes: notes}, &resp); err != nil {
					return err
				}
				if opts.asJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discrepancy %s is now %s\n", resp.Number, resp.Status)
				return nil
			},
		}
		c.Flags().StringVar(&notes, "notes", "", "Notes recorded with the action")
		return c
	}

	cmd.AddCommand(
		listCmd,
		actionCmd("resolve", "Resolve a discrepancy"),
		actionCmd("escalate", "Escalate a discrepancy"),
	)
	return cmd
}

func balancesCmd(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Compare book and statement balances for every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/reports/balances"
			if asOf != "" {
				path += "?as_of=" + url.QueryEscape(asOf)
			}
			var resp []*dto.BalanceComparisonResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACCOUNT\tAS OF\tBOOK\tSTATEMENT\tDIFFERENCE\tRECONCILED")
			for _, b := range resp {
				statement := "-"
				if b.HasStatement {
					statement = b.StatementBalance.StringFixed(2)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
					b.AccountID, b.AsOf, b.BookBalance.StringFixed(2), statement,
					b.Difference.StringFixed(2), b.IsReconciled)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Comparison date (YYYY-MM-DD), defaults to today")
	return cmd
}

func outstandingCmd(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "outstanding <account-id>",
		Short: "List unreconciled transactions and payment records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/outstanding"
			if asOf != "" {
				path += "?as_of=" + url.QueryEscape(asOf)
			}
			var resp dto.OutstandingItemsResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SIDE\tID\tDATE\tREFERENCE\tAMOUNT")
			for _, t := range resp.UnmatchedTransactions {
				fmt.Fprintf(tw, "bank\t%s\t%s\t%s\t%s\n", t.ID, t.Date, truncate(t.Reference, 24), t.Amount.StringFixed(2))
			}
			for _, p := range resp.UnmatchedPaymentRecords {
				fmt.Fprintf(tw, "book\t%s\t%s\t%s\t%s\n", p.ID, p.Date, truncate(p.Reference, 24), p.Amount.StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nBank total: %s\nBook total: %s\n",
				resp.UnmatchedTransactionsSum.StringFixed(2), resp.UnmatchedPaymentsSum.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Report date (YYYY-MM-DD), defaults to today")
	return cmd
}

// apiClient performs JSON requests against the API.
type apiClient struct {
	baseURL string
	actor   string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: opts.baseURL,
		actor:   opts.actor,
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

// do sends body as JSON and decodes a 2xx response into out. Write requests
// carry a fresh Idempotency-Key so a client-side retry cannot apply twice.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", ulid.Make().String())
		if c.actor != "" {
			req.Header.Set("X-Actor", c.actor)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp dto.ErrorResponse
		_ = json.Unmarshal(raw, &errResp)
		return &apiError{Status: resp.StatusCode, Code: errResp.Error, Message: errResp.Message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
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
