package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/giantswarm/mcp-oauth/storage"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no stored token")

// TokenProvider stores delegated OAuth tokens keyed by participant ID.
type TokenProvider interface {
	// GetTokenForAccount retrieves the token stored for the account.
	// It returns an error wrapping ErrNoToken when there is none.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// SaveTokenForAccount stores or replaces the token for the account.
	SaveTokenForAccount(ctx context.Context, account string, token *oauth2.Token) error
}

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// DefaultTokenDir returns the per-user cache directory for token files.
func DefaultTokenDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(dir, "meetsync"), nil
}

// FileTokenProvider keeps one JSON token file per account in a directory.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider creates a provider rooted at dir. An empty dir means
// DefaultTokenDir.
func NewFileTokenProvider(dir string) (*FileTokenProvider, error) {
	if dir == "" {
		d, err := DefaultTokenDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &FileTokenProvider{dir: dir}, nil
}

func (p *FileTokenProvider) tokenFilePath(account string) string {
	return filepath.Join(p.dir, "google-"+account+".token")
}

// GetTokenForAccount reads the account's token file.
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.tokenFilePath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file for account %s: %w", account, err)
	}
	return &tok, nil
}

// SaveTokenForAccount writes the token atomically with owner-only permissions.
func (p *FileTokenProvider) SaveTokenForAccount(_ context.Context, account string, token *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(p.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.tokenFilePath(account)); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// StoreTokenProvider adapts an mcp-oauth TokenStore. Used when tokens should
// not touch disk.
type StoreTokenProvider struct {
	store storage.TokenStore
}

// NewStoreTokenProvider wraps store.
func NewStoreTokenProvider(store storage.TokenStore) *StoreTokenProvider {
	return &StoreTokenProvider{store: store}
}

// GetTokenForAccount retrieves the token for the account from the store.
func (p *StoreTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	tok, err := p.store.GetToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w for account %s: %v", ErrNoToken, account, err)
	}
	return tok, nil
}

// SaveTokenForAccount stores the token for the account.
func (p *StoreTokenProvider) SaveTokenForAccount(ctx context.Context, account string, token *oauth2.Token) error {
	if err := p.store.SaveToken(ctx, account, token); err != nil {
		return fmt.Errorf("failed to save token for account %s: %w", account, err)
	}
	return nil
}

// Usable reports whether a token can authorize a request, either directly or
// after a refresh.
func Usable(token *oauth2.Token) bool {
	if token == nil {
		return false
	}
	return token.Valid() || token.RefreshToken != ""
}
