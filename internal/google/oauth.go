package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
)

// ErrNoClientCredentials is returned when the delegated OAuth client is not configured.
var ErrNoClientCredentials = errors.New("google oauth client id and secret are not configured")

// NewOAuthConfig builds the OAuth2 configuration used for delegated consent
// and token refresh.
func NewOAuthConfig(g config.Google) (*oauth2.Config, error) {
	if g.ClientID == "" || g.ClientSecret == "" {
		return nil, ErrNoClientCredentials
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  g.RedirectURL,
		Scopes:       CalendarScopes,
	}, nil
}

// AuthURL returns the consent URL for a participant. The participant ID is
// carried as the state parameter. Offline access with forced consent makes
// Google issue a refresh token on every grant.
func AuthURL(conf *oauth2.Config, participantID string) string {
	return conf.AuthCodeURL(participantID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Connect exchanges an authorization code and stores the resulting token
// for the participant.
func Connect(ctx context.Context, conf *oauth2.Config, tokens TokenProvider, participantID, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code cannot be empty")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := tokens.SaveTokenForAccount(ctx, participantID, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// DelegatedTokenSource returns a token source for a participant's stored
// token. Refreshed tokens are saved back to tokens. It fails with ErrNoToken
// when the stored token is neither valid nor refreshable.
func DelegatedTokenSource(ctx context.Context, conf *oauth2.Config, tokens TokenProvider, participantID string, metrics *instrumentation.Metrics, logger *slog.Logger) (oauth2.TokenSource, error) {
	tok, err := tokens.GetTokenForAccount(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !Usable(tok) {
		return nil, fmt.Errorf("%w: token for account %s is expired and has no refresh token", ErrNoToken, participantID)
	}

	src := &savingTokenSource{
		ctx:         ctx,
		base:        conf.TokenSource(ctx, tok),
		tokens:      tokens,
		participant: participantID,
		last:        tok.AccessToken,
		metrics:     metrics,
		logger:      logging.OrDefault(logger),
	}
	return oauth2.ReuseTokenSource(tok, src), nil
}

// savingTokenSource persists every token the base source hands out that
// differs from the last one seen.
type savingTokenSource struct {
	ctx         context.Context
	base        oauth2.TokenSource
	tokens      TokenProvider
	participant string
	metrics     *instrumentation.Metrics
	logger      *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		result := instrumentation.OAuthResultFailure
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			result = instrumentation.OAuthResultExpired
		}
		s.metrics.RecordOAuthTokenRefresh(s.ctx, result)
		s.logger.Warn("delegated token refresh failed",
			logging.Participant(s.participant),
			slog.String("result", result),
			logging.Err(err))
		return nil, fmt.Errorf("failed to refresh token for account %s: %w", s.participant, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken
	s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)
	s.logger.Debug("delegated token refreshed",
		logging.Participant(s.participant),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)),
		slog.Time("expiry", tok.Expiry))

	if err := s.tokens.SaveTokenForAccount(s.ctx, s.participant, tok); err != nil {
		// The refreshed token is still good for this process.
		s.logger.Warn("failed to persist refreshed token",
			logging.Participant(s.participant),
			logging.Err(err))
	}
	return tok, nil
}

// ServiceAccountTokenSource loads a service account JSON key and returns a
// token source scoped to the calendar API.
func ServiceAccountTokenSource(ctx context.Context, keyFile string) (oauth2.TokenSource, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("service account key file is not configured")
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, CalendarScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}
