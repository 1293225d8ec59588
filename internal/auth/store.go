package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/calassist/calassist/internal/calendar"
	"github.com/calassist/calassist/internal/logging"
)

// ErrNotFound is returned by Load when no usable credential exists for a
// backend. A corrupt or unreadable token file is reported the same way so
// callers fall back to re-authentication instead of crashing.
var ErrNotFound = errors.New("no stored credential")

// storedCredential is the on-disk token format. It captures everything the
// oauth2 client needs to resume a session without user interaction.
type storedCredential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Store persists one OAuth credential per backend under dir, as
// <dir>/<backend>.json with mode 0600.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a credential store rooted at dir. The directory is
// created lazily on the first Save.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) path(backend calendar.Backend) string {
	return filepath.Join(s.dir, string(backend)+".json")
}

// Load reads the stored credential for a backend. Missing, corrupt, or
// empty token files all return ErrNotFound.
func (s *Store) Load(backend calendar.Backend) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(backend))
	if err != nil {
		return nil, ErrNotFound
	}

	var cred storedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("stored credential is corrupt, forcing re-authentication",
			logging.Err(err), slog.String(logging.KeyBackend, string(backend)))
		return nil, ErrNotFound
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, ErrNotFound
	}

	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		TokenType:    tokenType,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}, nil
}

// Save persists a credential for a backend, replacing any previous one. The
// write is atomic (temp file plus rename) so a crash cannot leave a
// half-written token file behind.
func (s *Store) Save(backend calendar.Backend, token *oauth2.Token, scopes []string) error {
	if token == nil {
		return fmt.Errorf("cannot save nil token")
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	cred := storedCredential{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       scopes,
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(backend)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmpName, s.path(backend)); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.logger.Debug("credential saved",
		slog.String(logging.KeyBackend, string(backend)),
		slog.String("access_token", logging.SanitizeToken(token.AccessToken)))
	return nil
}

// Delete removes the stored credential for a backend. Deleting a credential
// that does not exist is not an error.
func (s *Store) Delete(backend calendar.Backend) error {
	err := os.Remove(s.path(backend))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// TokenSource wraps conf.TokenSource so refreshed tokens are written back to
// the store before they are used. A failed refresh surfaces as an AuthError,
// signaling that interactive re-authentication is required.
func (s *Store) TokenSource(ctx context.Context, backend calendar.Backend, conf *oauth2.Config, token *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		store:   s,
		backend: backend,
		scopes:  conf.Scopes,
		inner:   conf.TokenSource(ctx, token),
		last:    token.AccessToken,
	}
}

type persistingSource struct {
	store   *Store
	backend calendar.Backend
	scopes  []string
	inner   oauth2.TokenSource
	last    string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.inner.Token()
	if err != nil {
		return nil, &calendar.AuthError{Backend: p.backend, Err: err}
	}

	if token.AccessToken != p.last {
		if err := p.store.Save(p.backend, token, p.scopes); err != nil {
			// The refreshed token is still valid for this process; losing the
			// persisted copy only costs a refresh on the next run.
			p.store.logger.Warn("failed to persist refreshed credential",
				logging.Err(err), slog.String(logging.KeyBackend, string(p.backend)))
		}
		p.last = token.AccessToken
	}

	return token, nil
}
