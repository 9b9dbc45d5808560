// Package auth obtains FreshBooks access tokens: it stores OAuth tokens in the OS keyring
// and refreshes them when they expire.
package auth

// file: internal/auth/token_store.go

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

const keyringUser = "oauth-token"

// TokenStore persists an OAuth token. Load returns (nil, nil) when no token is stored.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Delete() error
}

// KeyringStore keeps the token as JSON in the OS keychain.
type KeyringStore struct {
	service string
	logger  logging.Logger
}

var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore creates a store under the given keyring service name.
func NewKeyringStore(service string, logger logging.Logger) *KeyringStore {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &KeyringStore{
		service: service,
		logger:  logger.WithField("component", "keyring_token_store"),
	}
}

// Load reads the stored token. A corrupted entry is deleted and reported as an error.
func (s *KeyringStore) Load() (*oauth2.Token, error) {
	data, err := keyring.Get(s.service, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			s.logger.Debug("No FreshBooks token found in system keyring.", "service", s.service)
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load token from system keyring")
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		s.logger.Error("Token data in keyring is corrupted and cannot be parsed, attempting deletion.", "error", err)
		_ = s.Delete()
		return nil, errors.Wrap(err, "failed to parse token data from system keyring")
	}
	return &tok, nil
}

// Save writes tok to the keyring, replacing any previous token.
func (s *KeyringStore) Save(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("cannot save empty token to keyring")
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "failed to encode token for system keyring")
	}
	if err := keyring.Set(s.service, keyringUser, string(data)); err != nil {
		return errors.Wrap(err, "failed to save token to system keyring")
	}
	s.logger.Debug("FreshBooks token saved to system keyring.", "service", s.service, "expiry", tok.Expiry)
	return nil
}

// Delete removes the token. Deleting a missing token is not an error.
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(s.service, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete token from system keyring")
	}
	return nil
}
