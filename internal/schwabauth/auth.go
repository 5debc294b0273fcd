// Package schwabauth manages the file-backed Schwab OAuth2 token state.
// The rest of the pipeline only sees the TokenSource capability; ownership
// and refresh of the underlying tokens stay here.
package schwabauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gexflow/logger"
)

// TokenSource supplies a currently-valid bearer credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ErrReauthRequired reports that no refresh token is available or the
// authorization server rejected it; the user has to run the interactive
// authorization flow again.
var ErrReauthRequired = errors.New("schwabauth: reauthorization required")

// Access tokens are considered stale two minutes before their actual expiry
// so an in-flight request never carries a token that dies mid-call.
const expiryBuffer = 2 * time.Minute

type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	TokenExpiry  time.Time `json:"token_expiry"`
	SavedAt      time.Time `json:"saved_at"`
}

// FileTokenSource keeps tokens in a JSON file and refreshes the access token
// through the OAuth2 refresh grant when it goes stale.
type FileTokenSource struct {
	path      string
	tokenURL  string
	appKey    string
	appSecret string
	client    *http.Client
	log       *logger.Log

	mu     sync.Mutex
	tok    storedToken
	loaded bool
	now    func() time.Time
}

// Options configures a FileTokenSource.
type Options struct {
	Path      string
	TokenURL  string
	AppKey    string
	AppSecret string
	Timeout   time.Duration
}

func NewFileTokenSource(opts Options) *FileTokenSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FileTokenSource{
		path:      opts.Path,
		tokenURL:  opts.TokenURL,
		appKey:    opts.AppKey,
		appSecret: opts.AppSecret,
		client:    &http.Client{Timeout: timeout},
		log:       logger.GetLogger(),
		now:       time.Now,
	}
}

// Token returns a valid access token, refreshing it first when needed.
func (s *FileTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.load(); err != nil {
			return "", err
		}
		s.loaded = true
	}

	if s.valid() {
		return s.tok.AccessToken, nil
	}

	if s.tok.RefreshToken == "" {
		return "", ErrReauthRequired
	}
	if err := s.refresh(ctx); err != nil {
		return "", err
	}
	return s.tok.AccessToken, nil
}

func (s *FileTokenSource) valid() bool {
	if s.tok.AccessToken == "" || s.tok.TokenExpiry.IsZero() {
		return false
	}
	return s.now().Before(s.tok.TokenExpiry.Add(-expiryBuffer))
}

func (s *FileTokenSource) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: token file %s not found", ErrReauthRequired, s.path)
		}
		return fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &s.tok); err != nil {
		return fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	return nil
}

func (s *FileTokenSource) refresh(ctx context.Context) error {
	log := s.log.WithComponent("schwabauth")
	log.Info("refreshing access token")

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.tok.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.SetBasicAuth(s.appKey, s.appSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		// The refresh token itself is expired or revoked.
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Warn("refresh token rejected")
		return ErrReauthRequired
	default:
		return fmt.Errorf("refresh request failed: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var grant struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return fmt.Errorf("parse refresh response: %w", err)
	}
	if grant.AccessToken == "" {
		return fmt.Errorf("refresh response missing access token")
	}

	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 1800 // Schwab access tokens last 30 minutes
	}
	now := s.now()
	s.tok = storedToken{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    grant.TokenType,
		ExpiresIn:    expiresIn,
		TokenExpiry:  now.Add(time.Duration(expiresIn) * time.Second),
		SavedAt:      now,
	}
	if s.tok.RefreshToken == "" {
		// Servers may omit the refresh token on rotation; keep the old one.
		s.tok.RefreshToken = form.Get("refresh_token")
	}

	if err := s.save(); err != nil {
		log.WithError(err).Warn("failed to persist refreshed tokens")
	}

	log.WithFields(logger.Fields{"expires_at": s.tok.TokenExpiry}).Info("access token refreshed")
	return nil
}

func (s *FileTokenSource) save() error {
	data, err := json.MarshalIndent(s.tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
