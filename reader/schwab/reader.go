// Package schwab fetches option chains and futures quotes from the Schwab
// market data API.
package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"gexflow/config"
	"gexflow/internal/schwabauth"
	"gexflow/logger"
	"gexflow/models"
)

// Reader is an authenticated Schwab market data client.
type Reader struct {
	cfg     config.SchwabConfig
	baseURL string
	client  *http.Client
	tokens  schwabauth.TokenSource
	limiter *rate.Limiter
	log     *logger.Log
}

// NewReader builds a Reader with a pooled transport and a client side rate
// limiter sized from the configuration.
func NewReader(cfg config.SchwabConfig, tokens schwabauth.TokenSource) *Reader {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:       cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:    cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:    cfg.ConnectionPool.IdleConnTimeout.Std(),
		DisableCompression: false,
	}

	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	reader := &Reader{
		cfg:     cfg,
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout.Std(),
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("schwab_reader").WithFields(logger.Fields{
		"base_url":            cfg.BaseURL,
		"max_idle_conns":      cfg.ConnectionPool.MaxIdleConns,
		"max_conns_per_host":  cfg.ConnectionPool.MaxConnsPerHost,
		"requests_per_second": rps,
		"timeout":             cfg.Timeout.Std(),
	}).Info("schwab reader initialized")

	return reader
}

// FetchChain retrieves the full option chain for the configured underlying,
// from today through the given horizon, flattened into a ChainSnapshot.
func (r *Reader) FetchChain(ctx context.Context, horizon time.Duration) (*models.ChainSnapshot, error) {
	log := r.log.WithComponent("schwab_reader").WithFields(logger.Fields{
		"symbol":    r.cfg.Underlying,
		"operation": "fetch_chain",
	})

	now := time.Now()
	params := url.Values{}
	params.Set("symbol", r.cfg.Underlying)
	params.Set("contractType", "ALL")
	params.Set("strategy", "SINGLE")
	params.Set("range", "ALL")
	params.Set("fromDate", now.Format("2006-01-02"))
	params.Set("toDate", now.Add(horizon).Format("2006-01-02"))

	start := time.Now()
	var chain models.SchwabChainResponse
	if err := r.getJSON(ctx, "/marketdata/v1/chains", params, &chain); err != nil {
		return nil, fmt.Errorf("fetch chain for %s: %w", r.cfg.Underlying, err)
	}

	snap := chain.Snapshot(time.Now().UTC())
	log.WithFields(logger.Fields{
		"contracts":        len(snap.Contracts),
		"underlying_price": snap.UnderlyingPrice,
		"duration_ms":      time.Since(start).Milliseconds(),
	}).Info("option chain fetched")

	return snap, nil
}

// FetchFuturesQuote returns the first live price found among the configured
// futures symbols. A zero return with nil error means no symbol quoted; the
// caller falls back to the static ratio.
func (r *Reader) FetchFuturesQuote(ctx context.Context) (float64, error) {
	log := r.log.WithComponent("schwab_reader").WithFields(logger.Fields{
		"operation": "fetch_futures_quote",
	})

	var lastErr error
	for _, symbol := range r.cfg.FuturesSymbols {
		params := url.Values{}
		params.Set("symbols", symbol)
		params.Set("fields", "quote")

		var quotes map[string]models.SchwabQuote
		if err := r.getJSON(ctx, "/marketdata/v1/quotes", params, &quotes); err != nil {
			log.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Warn("quote request failed")
			lastErr = err
			continue
		}

		for _, q := range quotes {
			if price := q.Price(); price > 0 {
				log.WithFields(logger.Fields{"symbol": symbol, "price": price}).Info("futures quote fetched")
				return price, nil
			}
		}
	}

	if lastErr != nil {
		return 0, fmt.Errorf("fetch futures quote: %w", lastErr)
	}
	log.Warn("no futures symbol returned a usable price")
	return 0, nil
}

func (r *Reader) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := r.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain token: %w", err)
	}

	endpoint := r.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
