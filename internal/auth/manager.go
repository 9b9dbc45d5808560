// file: internal/auth/manager.go
package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"

	"github.com/dkoosis/freshbooks-mcp/internal/config"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// Status is the authentication state derived from the stored token.
type Status int

const (
	// StatusNotAuthenticated means no token is stored.
	StatusNotAuthenticated Status = iota
	// StatusExpired means the access token expired; a refresh may still succeed.
	StatusExpired
	// StatusAuthenticated means the stored access token is currently valid.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusExpired:
		return "expired"
	default:
		return "not_authenticated"
	}
}

// Manager hands out valid FreshBooks access tokens, refreshing them through the
// OAuth token endpoint when they expire.
type Manager struct {
	oauth  *oauth2.Config
	store  TokenStore
	logger logging.Logger

	mu sync.Mutex
}

// NewManager creates a Manager for the configured OAuth application.
func NewManager(cfg config.FreshBooksConfig, store TokenStore, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://auth.freshbooks.com/oauth/authorize",
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:  store,
		logger: logger.WithField("component", "auth_manager"),
	}
}

// Status reports the state of the stored token without contacting FreshBooks.
func (m *Manager) Status() (Status, error) {
	tok, err := m.store.Load()
	if err != nil {
		return StatusNotAuthenticated, err
	}
	switch {
	case tok == nil:
		return StatusNotAuthenticated, nil
	case tok.Valid():
		return StatusAuthenticated, nil
	default:
		return StatusExpired, nil
	}
}

// AccessToken returns a valid access token. Missing or unrefreshable credentials are
// reported as *mcperror.OAuthFailure.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if tok == nil {
		return "", &mcperror.OAuthFailure{
			Code:    "not_authenticated",
			Message: "no FreshBooks token is stored; complete the OAuth authorization first",
		}
	}
	if tok.Valid() {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", &mcperror.OAuthFailure{
			Code:    "token_expired",
			Message: "the access token expired and no refresh token is stored",
		}
	}

	m.logger.Debug("Refreshing expired FreshBooks access token.", "expiry", tok.Expiry)
	fresh, err := m.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", refreshFailure(err)
	}
	if err := m.store.Save(fresh); err != nil {
		// The refreshed token is still usable for this call.
		m.logger.Warn("Failed to persist refreshed FreshBooks token.", "error", err)
	}
	m.logger.Info("FreshBooks access token refreshed.", "expiry", fresh.Expiry)
	return fresh.AccessToken, nil
}

// refreshFailure converts a token endpoint error into an OAuthFailure.
func refreshFailure(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		code := rErr.ErrorCode
		if code == "" {
			code = "token_endpoint_error"
		}
		msg := rErr.ErrorDescription
		if msg == "" && rErr.Response != nil {
			msg = rErr.Response.Status
		}
		return &mcperror.OAuthFailure{Code: code, Message: msg}
	}
	if strings.Contains(err.Error(), "refresh token is not set") {
		return &mcperror.OAuthFailure{Code: "token_expired", Message: err.Error()}
	}
	// Anything else never got an answer from the token endpoint.
	return &mcperror.NetworkFailure{Op: "POST oauth token", Err: err}
}
