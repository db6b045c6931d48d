// Package credential owns the OAuth token lifecycle: loading, validating,
// refreshing, and persisting tokens, falling back to an authorization
// flow when no usable token exists. It is the only writer of the token
// file.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nhle/mailbrief/internal/model"
)

// Reason classifies why obtaining credentials failed.
type Reason string

const (
	ReasonMissingClientConfig Reason = "missing_client_config"
	ReasonUserCancelled       Reason = "user_cancelled"
	ReasonProviderRejected    Reason = "provider_rejected"
)

// AuthError is returned when no usable credentials can be obtained. The
// caller treats the backend as unavailable and moves on; it is never
// retried automatically.
type AuthError struct {
	Reason Reason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// CodeProvider supplies an authorization code for an authorization URL.
// The production implementation prompts the operator; tests supply a
// fixed code.
type CodeProvider func(authURL string) (string, error)

// BrowserLauncher opens an authorization URL in a local browser context.
type BrowserLauncher func(url string) error

// manualRedirectURI is the out-of-band redirect used by the manual
// code-exchange flow.
const manualRedirectURI = "urn:ietf:wg:oauth:2.0:oob"

// Store manages credentials for a single account identity.
type Store struct {
	tokenFile    string
	clientID     string
	clientSecret string
	scopes       []string
	endpoint     oauth2.Endpoint
	codeProvider CodeProvider
	browser      BrowserLauncher
}

// Option configures a Store.
type Option func(*Store)

// WithCodeProvider enables the manual code-exchange authorization flow.
func WithCodeProvider(p CodeProvider) Option {
	return func(s *Store) { s.codeProvider = p }
}

// WithBrowser enables the redirect/local-callback authorization flow.
// When both a browser and a code provider are configured, the browser
// flow is preferred.
func WithBrowser(b BrowserLauncher) Option {
	return func(s *Store) { s.browser = b }
}

// WithEndpoint overrides the OAuth provider endpoints.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(s *Store) { s.endpoint = e }
}

// NewStore creates a credential store persisting to tokenFile.
func NewStore(
	clientID, clientSecret, tokenFile string,
	scopes []string,
	opts ...Option,
) *Store {
	s := &Store{
		tokenFile:    tokenFile,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		endpoint:     google.Endpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Obtain returns usable credentials. A persisted unexpired token is
// returned unchanged with no network call. An expired token with a
// refresh token is refreshed exactly once; refresh failure falls through
// to the authorization flow. Every successful refresh or authorization
// replaces the persisted token file as a whole.
func (s *Store) Obtain(ctx context.Context) (*model.Credentials, error) {
	creds := s.load()

	if creds.Valid() {
		return creds, nil
	}

	if creds.CanRefresh() && s.hasClientConfig() {
		refreshed, err := s.refresh(ctx, creds)
		if err == nil {
			if err := s.persist(refreshed); err != nil {
				return nil, err
			}
			return refreshed, nil
		}
		// Refresh failed: the refresh token is stale or revoked.
		// Re-authorize from scratch.
	}

	authorized, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.persist(authorized); err != nil {
		return nil, err
	}
	return authorized, nil
}

func (s *Store) hasClientConfig() bool {
	return s.clientID != "" && s.clientSecret != ""
}

func (s *Store) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     s.endpoint,
		RedirectURL:  redirectURL,
		Scopes:       s.scopes,
	}
}

// load reads the persisted credentials, returning an absent value when
// the file is missing or unreadable.
func (s *Store) load() *model.Credentials {
	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		return &model.Credentials{}
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt token file is treated as absent; the next persist
		// overwrites it whole.
		return &model.Credentials{}
	}
	return &creds
}

// refresh exchanges the refresh token for a new access token.
func (s *Store) refresh(
	ctx context.Context, creds *model.Credentials,
) (*model.Credentials, error) {
	cfg := s.oauthConfig("")
	src := cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: creds.RefreshToken,
	})

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	return s.fromToken(tok, creds.RefreshToken), nil
}

// authorize runs an authorization flow: the redirect/local-callback flow
// when a browser launcher is configured, otherwise the manual
// code-exchange flow through the injected code provider.
func (s *Store) authorize(ctx context.Context) (*model.Credentials, error) {
	if !s.hasClientConfig() {
		return nil, &AuthError{
			Reason: ReasonMissingClientConfig,
			Err:    errors.New("oauth client id/secret not configured"),
		}
	}

	switch {
	case s.browser != nil:
		return s.authorizeLocalCallback(ctx)
	case s.codeProvider != nil:
		return s.authorizeManual(ctx)
	default:
		return nil, &AuthError{
			Reason: ReasonUserCancelled,
			Err:    errors.New("no authorization flow available"),
		}
	}
}

// authorizeManual prints an authorization URL through the code provider,
// blocks for the pasted code, and exchanges it for tokens.
func (s *Store) authorizeManual(
	ctx context.Context,
) (*model.Credentials, error) {
	cfg := s.oauthConfig(manualRedirectURI)
	authURL := cfg.AuthCodeURL(
		uuid.New().String(),
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)

	code, err := s.codeProvider(authURL)
	if err != nil {
		return nil, &AuthError{Reason: ReasonUserCancelled, Err: err}
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Reason: ReasonProviderRejected, Err: err}
	}

	return s.fromToken(tok, ""), nil
}

// authorizeLocalCallback serves a one-shot loopback redirect endpoint,
// opens the authorization URL in the browser, and waits for the provider
// to deliver the code.
func (s *Store) authorizeLocalCallback(
	ctx context.Context,
) (*model.Credentials, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	defer listener.Close()

	redirectURL := fmt.Sprintf("http://%s/callback", listener.Addr())
	cfg := s.oauthConfig(redirectURL)
	state := uuid.New().String()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				errCh <- errors.New("authorization state mismatch")
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "missing code", http.StatusBadRequest)
				errCh <- errors.New("authorization response missing code")
				return
			}
			fmt.Fprintln(w, "Authorization complete. You may close this window.")
			codeCh <- code
		}),
	}
	go server.Serve(listener)
	defer server.Close()

	if err := s.browser(authURL); err != nil {
		return nil, &AuthError{Reason: ReasonUserCancelled, Err: err}
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, &AuthError{Reason: ReasonProviderRejected, Err: err}
	case <-ctx.Done():
		return nil, &AuthError{Reason: ReasonUserCancelled, Err: ctx.Err()}
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Reason: ReasonProviderRejected, Err: err}
	}

	return s.fromToken(tok, ""), nil
}

// fromToken converts an oauth2 token into a whole Credentials value.
// Providers omit the refresh token on refresh responses; the previous
// one is carried forward so the value stays refreshable.
func (s *Store) fromToken(
	tok *oauth2.Token, previousRefresh string,
) *model.Credentials {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &model.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Expiry:       tok.Expiry,
		Scopes:       s.scopes,
	}
}

// persist atomically replaces the token file with the new credentials,
// serialized against concurrent runs for the same account via a lock
// file. A crash mid-write can never be read back as a valid token.
func (s *Store) persist(creds *model.Credentials) error {
	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	dir := filepath.Dir(s.tokenFile)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating token directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("restricting token file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing token file: %w", err)
	}

	if err := os.Rename(tmpName, s.tokenFile); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing token file %s: %w", s.tokenFile, err)
	}

	return nil
}

const (
	lockRetryInterval = 50 * time.Millisecond
	lockTimeout       = 2 * time.Second
)

// acquireLock takes an advisory per-account lock on the token store.
func (s *Store) acquireLock() (release func(), err error) {
	lockPath := s.tokenFile + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating token directory: %w", err)
	}

	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(
			lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600,
		)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquiring token lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf(
				"token store %s is locked by another run", s.tokenFile,
			)
		}
		time.Sleep(lockRetryInterval)
	}
}
