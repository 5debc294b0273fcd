package models

import (
	"encoding/json"
	"testing"
	"time"
)

const chainFixture = `{
  "symbol": "QQQ",
  "status": "SUCCESS",
  "underlyingPrice": 602.0,
  "callExpDateMap": {
    "2025-10-31:3": {
      "600.0": [{"putCall": "CALL", "strikePrice": 600.0, "openInterest": 250, "gamma": 0.04, "daysToExpiration": 3}]
    },
    "2025-10-28:0": {
      "605.0": [{"putCall": "CALL", "strikePrice": 605.0, "openInterest": 120, "gamma": 0.03, "daysToExpiration": 0}],
      "600.0": [{"putCall": "CALL", "strikePrice": 600.0, "openInterest": 500, "gamma": 0.05, "daysToExpiration": 0}]
    }
  },
  "putExpDateMap": {
    "2025-10-28:0": {
      "605.0": [{"putCall": "PUT", "strikePrice": 605.0, "openInterest": 800, "gamma": 0.06, "daysToExpiration": 0}]
    }
  }
}`

func TestSnapshotFlattenOrder(t *testing.T) {
	var resp SchwabChainResponse
	if err := json.Unmarshal([]byte(chainFixture), &resp); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	now := time.Date(2025, 10, 28, 14, 30, 0, 0, time.UTC)
	snap := resp.Snapshot(now)

	if snap.Symbol != "QQQ" {
		t.Errorf("unexpected symbol: %s", snap.Symbol)
	}
	if snap.UnderlyingPrice != 602.0 {
		t.Errorf("unexpected underlying price: %f", snap.UnderlyingPrice)
	}
	if !snap.FetchedAt.Equal(now) {
		t.Errorf("unexpected fetch time: %v", snap.FetchedAt)
	}
	if len(snap.Contracts) != 4 {
		t.Fatalf("expected 4 contracts, got %d", len(snap.Contracts))
	}

	// Nearest expiration first, strikes ascending, calls before puts.
	want := []struct {
		strike float64
		exp    string
		right  Right
	}{
		{600.0, "2025-10-28:0", RightCall},
		{605.0, "2025-10-28:0", RightCall},
		{600.0, "2025-10-31:3", RightCall},
		{605.0, "2025-10-28:0", RightPut},
	}
	for i, w := range want {
		c := snap.Contracts[i]
		if c.Strike != w.strike || c.ExpirationKey != w.exp || c.Right != w.right {
			t.Errorf("contract %d = {%v %s %s}, want {%v %s %s}",
				i, c.Strike, c.ExpirationKey, c.Right, w.strike, w.exp, w.right)
		}
	}
}

func TestSnapshotMissingFieldsDecodeToZero(t *testing.T) {
	payload := `{
	  "symbol": "QQQ",
	  "underlyingPrice": 600.0,
	  "callExpDateMap": {
	    "2025-10-28:0": {
	      "600.0": [{"putCall": "CALL", "strikePrice": 600.0}]
	    }
	  }
	}`
	var resp SchwabChainResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	snap := resp.Snapshot(time.Now())
	if len(snap.Contracts) != 1 {
		t.Fatalf("expected 1 contract, got %d", len(snap.Contracts))
	}
	c := snap.Contracts[0]
	if c.OpenInterest != 0 || c.Gamma != 0 {
		t.Errorf("missing fields should decode to zero, got OI=%d gamma=%f", c.OpenInterest, c.Gamma)
	}
}

func TestExpirationKeyDTE(t *testing.T) {
	cases := []struct {
		key     string
		dte     int
		wantErr bool
	}{
		{"2025-10-28:0", 0, false},
		{"2025-11-21:24", 24, false},
		{"2025-10-28", 0, true},
		{"2025-10-28:", 0, true},
		{"2025-10-28:x", 0, true},
	}
	for _, c := range cases {
		dte, err := ExpirationKeyDTE(c.key)
		if c.wantErr {
			if err == nil {
				t.Errorf("ExpirationKeyDTE(%q): expected error", c.key)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExpirationKeyDTE(%q): %v", c.key, err)
			continue
		}
		if dte != c.dte {
			t.Errorf("ExpirationKeyDTE(%q) = %d, want %d", c.key, dte, c.dte)
		}
	}
}

func TestParseExpirationScope(t *testing.T) {
	cases := []struct {
		in      string
		want    ExpirationScope
		wantErr bool
	}{
		{"all_expirations", ScopeAllExpirations, false},
		{"all", ScopeAllExpirations, false},
		{"NEAREST", ScopeNearestExpiration, false},
		{"zero_dte_only", ScopeZeroDTEOnly, false},
		{"0dte", ScopeZeroDTEOnly, false},
		{"weekly", "", true},
	}
	for _, c := range cases {
		got, err := ParseExpirationScope(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseExpirationScope(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseExpirationScope(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseExpirationScope(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestSchwabQuotePrice(t *testing.T) {
	var q SchwabQuote
	q.Quote.LastPrice = 25950.25
	q.Quote.Mark = 25949.50
	if got := q.Price(); got != 25950.25 {
		t.Errorf("expected last price preferred, got %f", got)
	}
	q.Quote.LastPrice = 0
	if got := q.Price(); got != 25949.50 {
		t.Errorf("expected mark fallback, got %f", got)
	}
}
