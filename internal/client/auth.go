package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/timegrid/internal/config"
)

// ErrNotLoggedIn is returned when no usable token is stored.
var ErrNotLoggedIn = errors.New("not logged in (run: timegrid login)")

// TokenPath returns the path of the stored token (~/.timegrid/auth/token.json).
func TokenPath() (string, error) {
	base, err := config.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "auth", "token.json"), nil
}

// oauth2Config returns the oauth2.Config for the device code and refresh flows.
func oauth2Config(cfg config.AuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID: cfg.ClientID,
		Scopes:   cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: cfg.DeviceAuthURL,
			TokenURL:      cfg.TokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

func clientCredentials(cfg config.AuthConfig) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// LoadToken loads a previously saved token. A missing file yields nil, nil.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// SaveToken atomically persists a token.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Login obtains a fresh token and stores it at path. With a client secret
// the client-credentials grant is used, otherwise the device code flow, whose
// instructions are written to out.
func Login(ctx context.Context, cfg config.AuthConfig, path string, out io.Writer) (*oauth2.Token, error) {
	var tok *oauth2.Token
	var err error
	if cfg.ClientSecret != "" {
		tok, err = clientCredentials(cfg).Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("client credentials login failed: %w", err)
		}
	} else {
		tok, err = deviceLogin(ctx, oauth2Config(cfg), out)
		if err != nil {
			return nil, err
		}
	}
	if err := SaveToken(path, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func deviceLogin(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	if cfg.Endpoint.DeviceAuthURL == "" {
		return nil, errors.New("device login needs auth.device_auth_url or auth.client_secret in the config")
	}
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	return tok, nil
}

// HTTPClient returns an authenticated HTTP client. A stored token is reused
// and refreshed as needed; refreshed tokens are written back to path. With a
// client secret, new tokens are fetched on demand.
func HTTPClient(ctx context.Context, cfg config.AuthConfig, path string, timeout time.Duration) (*http.Client, error) {
	tok, err := LoadToken(path)
	if err != nil {
		// Corrupt token: warn and fall back to a fresh login below.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		tok = nil
	}

	var src oauth2.TokenSource
	switch {
	case cfg.ClientSecret != "":
		src = oauth2.ReuseTokenSource(tok, clientCredentials(cfg).TokenSource(ctx))
	case tok != nil:
		src = oauth2Config(cfg).TokenSource(ctx, tok)
	default:
		return nil, ErrNotLoggedIn
	}

	hc := oauth2.NewClient(ctx, &savingTokenSource{ts: src, path: path, last: tok})
	hc.Timeout = timeout
	return hc, nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		// Best-effort save; ignore errors.
		_ = SaveToken(s.path, tok)
		s.last = tok
	}
	return tok, nil
}
