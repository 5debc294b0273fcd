package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SchwabContract is a single contract entry inside the Schwab chain payload.
// Missing openInterest or gamma decode to zero and never abort a batch.
type SchwabContract struct {
	PutCall      string  `json:"putCall"`
	Symbol       string  `json:"symbol"`
	StrikePrice  float64 `json:"strikePrice"`
	OpenInterest int64   `json:"openInterest"`
	Gamma        float64 `json:"gamma"`
	DaysToExp    int     `json:"daysToExpiration"`
}

// SchwabChainResponse mirrors the Schwab /marketdata/v1/chains payload.
// Both expiration maps are keyed "YYYY-MM-DD:dte"; each strike key maps to a
// list holding a single contract.
type SchwabChainResponse struct {
	Symbol          string                                 `json:"symbol"`
	Status          string                                 `json:"status"`
	UnderlyingPrice float64                                `json:"underlyingPrice"`
	CallExpDateMap  map[string]map[string][]SchwabContract `json:"callExpDateMap"`
	PutExpDateMap   map[string]map[string][]SchwabContract `json:"putExpDateMap"`
}

// ExpirationKeyDTE extracts the days-to-expiration suffix from a Schwab
// expiration map key such as "2025-10-28:0".
func ExpirationKeyDTE(key string) (int, error) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 || idx == len(key)-1 {
		return 0, fmt.Errorf("malformed expiration key %q", key)
	}
	dte, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed expiration key %q: %w", key, err)
	}
	return dte, nil
}

// Snapshot flattens the nested expiration->strike->contract maps into an
// ordered contract sequence. Expirations are visited nearest first and
// strikes ascending so the result is deterministic regardless of map order.
func (r *SchwabChainResponse) Snapshot(fetchedAt time.Time) *ChainSnapshot {
	snap := &ChainSnapshot{
		Symbol:          r.Symbol,
		UnderlyingPrice: r.UnderlyingPrice,
		FetchedAt:       fetchedAt,
	}
	snap.Contracts = append(snap.Contracts, flattenExpDateMap(r.CallExpDateMap, RightCall)...)
	snap.Contracts = append(snap.Contracts, flattenExpDateMap(r.PutExpDateMap, RightPut)...)
	return snap
}

func flattenExpDateMap(m map[string]map[string][]SchwabContract, right Right) []OptionContract {
	expKeys := make([]string, 0, len(m))
	for k := range m {
		expKeys = append(expKeys, k)
	}
	sort.Slice(expKeys, func(i, j int) bool {
		di, erri := ExpirationKeyDTE(expKeys[i])
		dj, errj := ExpirationKeyDTE(expKeys[j])
		if erri != nil || errj != nil || di == dj {
			return expKeys[i] < expKeys[j]
		}
		return di < dj
	})

	var out []OptionContract
	for _, expKey := range expKeys {
		strikes := m[expKey]
		strikeKeys := make([]string, 0, len(strikes))
		for k := range strikes {
			strikeKeys = append(strikeKeys, k)
		}
		sort.Slice(strikeKeys, func(i, j int) bool {
			si, _ := strconv.ParseFloat(strikeKeys[i], 64)
			sj, _ := strconv.ParseFloat(strikeKeys[j], 64)
			return si < sj
		})

		for _, strikeKey := range strikeKeys {
			contracts := strikes[strikeKey]
			if len(contracts) == 0 {
				continue
			}
			c := contracts[0]

			strike, err := strconv.ParseFloat(strikeKey, 64)
			if err != nil || strike <= 0 {
				strike = c.StrikePrice
			}
			if strike <= 0 {
				continue
			}

			out = append(out, OptionContract{
				Strike:        strike,
				ExpirationKey: expKey,
				Right:         right,
				OpenInterest:  c.OpenInterest,
				Gamma:         c.Gamma,
			})
		}
	}
	return out
}

// SchwabQuote is the subset of a Schwab quote payload used to price the
// correlated instrument.
type SchwabQuote struct {
	Quote struct {
		LastPrice float64 `json:"lastPrice"`
		Mark      float64 `json:"mark"`
	} `json:"quote"`
}

// Price prefers the last trade and falls back to the mark.
func (q SchwabQuote) Price() float64 {
	if q.Quote.LastPrice > 0 {
		return q.Quote.LastPrice
	}
	return q.Quote.Mark
}
