package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}

	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestAccountsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/accounts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") != "" {
			t.Error("GET must not carry an idempotency key")
		}
		_, _ = io.WriteString(w, `{"accounts":[{"id":"acc-1","bank_name":"Equity","account_number":"0011","account_name":"Main","currency":"KES","current_balance":"1250.5","status":"active"}],"total":1}`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "accounts", "list")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "acc-1") || !strings.Contains(out, "1250.50") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSessionsStartSendsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("expected an idempotency key")
		}
		if r.Header.Get("X-Actor") != "alice" {
			t.Errorf("expected actor alice, got %q", r.Header.Get("X-Actor"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"sess-1","session_number":"REC-00001","period_start":"2024-01-01","period_end":"2024-01-31","status":"in_progress"}`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "--actor", "alice",
		"sessions", "start", "acc-1", "--from", "2024-01-01", "--to", "2024-01-31", "--closing-balance", "1235")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got["account_id"] != "acc-1" || got["period_start"] != "2024-01-01" || got["statement_closing_balance"] != "1235" {
		t.Fatalf("unexpected request body: %v", got)
	}
	if !strings.Contains(out, "REC-00001") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSessionsStartRejectsBadBalance(t *testing.T) {
	_, err := runCLI(t, "--url", "http://127.0.0.1:1",
		"sessions", "start", "acc-1", "--from", "2024-01-01", "--to", "2024-01-31", "--closing-balance", "abc")
	if err == nil || !strings.Contains(err.Error(), "closing-balance") {
		t.Fatalf("expected closing balance error, got %v", err)
	}
}

func TestAutoMatchReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"conflict","message":"session is not in progress"}`)
	}))
	defer srv.Close()

	_, err := runCLI(t, "--url", srv.URL, "sessions", "auto-match", "sess-1")

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "session is not in progress" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestBalancesJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("as_of") != "2024-02-01" {
			t.Errorf("expected as_of query, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"account_id":"acc-1","as_of":"2024-02-01","book_balance":"10","statement_balance":"10","has_statement":true,"difference":"0","is_reconciled":true}]`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "--json", "balances", "--as-of", "2024-02-01")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(decoded) != 1 || decoded[0]["is_reconciled"] != true {
		t.Fatalf("unexpected output: %v", decoded)
	}
}

func TestDiscrepanciesListFiltersByStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/sess-1/discrepancies" || r.URL.Query().Get("status") != "open" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[{"id":"d-1","session_id":"sess-1","number":"REC-00001-D001","type":"missing_from_pos","amount":"75","status":"open","description":"unknown deposit"}]`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "discrepancies", "list", "sess-1", "--status", "open")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "REC-00001-D001") || !strings.Contains(out, "75.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDiscrepanciesResolveSendsNotes(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/discrepancies/d-1/resolve" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"id":"d-1","number":"REC-00001-D001","status":"resolved"}`)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "discrepancies", "resolve", "d-1", "--notes", "bank fee")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if got["notes"] != "bank fee" {
		t.Fatalf("unexpected request body: %v", got)
	}
	if !strings.Contains(out, "REC-00001-D001 is now resolved") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
