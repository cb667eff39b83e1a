package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	origURL, origTimeout := baseURL, timeout
	baseURL = srv.URL
	timeout = 5 * time.Second
	t.Cleanup(func() {
		baseURL = origURL
		timeout = origTimeout
	})
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestCheckConsistency(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ledger/consistency" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"consistent":true,"status":"ok"}`))
	})

	out := captureOutput(t, checkConsistency)

	if !strings.Contains(out, "PASSED") {
		t.Fatalf("expected PASSED in output, got %q", out)
	}
	if !strings.Contains(out, "Consistent: true") {
		t.Fatalf("expected consistent flag in output, got %q", out)
	}
}

func TestShowBalance(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/acc-1/balance" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("fresh") != "true" {
			t.Errorf("expected fresh=true, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account_id":"acc-1","currency":"USD","available":"570","disputed":"30","source":"full_scan"}`))
	})

	out := captureOutput(t, func() { showBalance("acc-1", true) })

	if !strings.Contains(out, "Available: 570") {
		t.Fatalf("expected available balance in output, got %q", out)
	}
	if !strings.Contains(out, "Source:    full_scan") {
		t.Fatalf("expected source in output, got %q", out)
	}
}

func TestListDebts(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/hosts/host-1/debts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"stl-1","kind":"PLATFORM_TIP_DEBT","amount":"25","status":"OWED"}]`))
	})

	out := captureOutput(t, func() { listDebts("host-1", false) })

	if !strings.Contains(out, "PLATFORM_TIP_DEBT") {
		t.Fatalf("expected debt kind in output, got %q", out)
	}
	if !strings.Contains(out, "OWED") {
		t.Fatalf("expected OWED status in output, got %q", out)
	}
}

func TestListDebtsEmpty(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	out := captureOutput(t, func() { listDebts("host-1", false) })

	if !strings.Contains(out, "No debts") {
		t.Fatalf("expected empty notice, got %q", out)
	}
}

func TestRefreshCheckpoint(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.URL.Query().Get("currency"); got != "EUR" {
			t.Errorf("expected currency EUR, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"account_id":"acc-1","host_currency":"EUR","balance":"120.5","as_of":"2026-09-01T00:00:00Z"}`))
	})

	out := captureOutput(t, func() {
		refreshCheckpoint("acc-1", "EUR")
	})

	if !strings.Contains(out, "Balance:  120.5") {
		t.Fatalf("expected balance in output, got %q", out)
	}
	if !strings.Contains(out, "Currency: EUR") {
		t.Fatalf("expected currency in output, got %q", out)
	}
}
