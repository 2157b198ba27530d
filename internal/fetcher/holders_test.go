package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestHoldersMissingConfig(t *testing.T) {
	h := NewHolders(HoldersOptions{}, noopLogger())
	if _, err := h.FetchHolderCount(context.Background()); err == nil {
		t.Fatal("expected error without base url")
	}

	h = NewHolders(HoldersOptions{BaseURL: "http://localhost"}, noopLogger())
	if _, err := h.FetchHolderCount(context.Background()); err == nil {
		t.Fatal("expected error without token address")
	}
}

func TestHoldersPaginatedSum(t *testing.T) {
	// Two full pages of 3, one partial page of 2, then an empty page.
	pages := map[int]int{1: 3, 2: 3, 3: 2}
	var requestedLimits []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		requestedLimits = append(requestedLimits, r.URL.Query().Get("limit"))

		accounts := make([]map[string]string, pages[page])
		for i := range accounts {
			accounts[i] = map[string]string{"address": "acct", "owner": "owner", "amount": "1"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"accounts": accounts})
	}))
	defer srv.Close()

	h := NewHolders(HoldersOptions{
		BaseURL:      srv.URL,
		TokenAddress: "0xabc",
		PageSize:     3,
		Timeout:      time.Second,
	}, noopLogger())

	count, err := h.FetchHolderCount(context.Background())
	if err != nil {
		t.Fatalf("paginated scan should not error: %v", err)
	}
	if count != 8 {
		t.Fatalf("expected 8 accounts across pages, got %d", count)
	}
	for _, limit := range requestedLimits {
		if limit != "3" {
			t.Fatalf("every page should request the configured size, got %q", limit)
		}
	}
}

func TestHoldersUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	h := NewHolders(HoldersOptions{BaseURL: srv.URL, TokenAddress: "0xabc", Timeout: time.Second}, noopLogger())
	if _, err := h.FetchHolderCount(context.Background()); err == nil {
		t.Fatal("non-200 page should return an error")
	}
}

func TestHoldersPageLimitGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accounts": []map[string]string{{"address": "acct"}},
		})
	}))
	defer srv.Close()

	h := NewHolders(HoldersOptions{
		BaseURL:      srv.URL,
		TokenAddress: "0xabc",
		PageSize:     1,
		MaxPages:     5,
		Timeout:      time.Second,
	}, noopLogger())

	count, err := h.FetchHolderCount(context.Background())
	if err != nil {
		t.Fatalf("hitting the page cap should not error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected scan to stop at the page cap with 5 accounts, got %d", count)
	}
}
