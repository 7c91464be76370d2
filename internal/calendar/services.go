package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetsync/internal/google"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
)

// ServiceFactory returns the calendar service to use for an identity.
type ServiceFactory interface {
	Service(ctx context.Context, identity model.CalendarIdentity) (*calendar.Service, error)
}

// ServiceFunc adapts a function to ServiceFactory.
type ServiceFunc func(ctx context.Context, identity model.CalendarIdentity) (*calendar.Service, error)

// Service calls f.
func (f ServiceFunc) Service(ctx context.Context, identity model.CalendarIdentity) (*calendar.Service, error) {
	return f(ctx, identity)
}

// GoogleServices builds services from real credentials. The shared service
// account service is created once and reused. Delegated services are built
// per call from the participant's current stored token.
type GoogleServices struct {
	oauth              *oauth2.Config
	tokens             google.TokenProvider
	serviceAccountFile string
	metrics            *instrumentation.Metrics
	logger             *slog.Logger
	opts               []option.ClientOption

	mu     sync.Mutex
	shared *calendar.Service
}

// GoogleServicesConfig configures GoogleServices.
type GoogleServicesConfig struct {
	// OAuth is the delegated OAuth client. Nil disables delegated calendars.
	OAuth *oauth2.Config
	// Tokens holds delegated tokens by participant ID.
	Tokens google.TokenProvider
	// ServiceAccountFile is the JSON key of the shared identity.
	ServiceAccountFile string
	Metrics            *instrumentation.Metrics
	Logger             *slog.Logger
	// Options are appended to every service, e.g. a custom endpoint.
	Options []option.ClientOption
}

// NewGoogleServices creates a credential-backed ServiceFactory.
func NewGoogleServices(cfg GoogleServicesConfig) *GoogleServices {
	return &GoogleServices{
		oauth:              cfg.OAuth,
		tokens:             cfg.Tokens,
		serviceAccountFile: cfg.ServiceAccountFile,
		metrics:            cfg.Metrics,
		logger:             logging.OrDefault(cfg.Logger),
		opts:               cfg.Options,
	}
}

// Service implements ServiceFactory. Credential problems wrap ErrAuth.
func (g *GoogleServices) Service(ctx context.Context, identity model.CalendarIdentity) (*calendar.Service, error) {
	switch identity.Mode {
	case model.ModeDelegated:
		return g.delegated(ctx, identity.ParticipantID)
	case model.ModeShared:
		return g.sharedService(ctx)
	}
	return nil, fmt.Errorf("unknown calendar mode %q", identity.Mode)
}

func (g *GoogleServices) delegated(ctx context.Context, participantID string) (*calendar.Service, error) {
	if g.oauth == nil || g.tokens == nil {
		return nil, fmt.Errorf("%w: delegated credentials are not configured", ErrAuth)
	}

	ts, err := google.DelegatedTokenSource(ctx, g.oauth, g.tokens, participantID, g.metrics, g.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create delegated calendar service: %w", err)
	}
	return svc, nil
}

func (g *GoogleServices) sharedService(ctx context.Context) (*calendar.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.shared != nil {
		return g.shared, nil
	}

	// The token source outlives this call, so it must not inherit its deadline.
	base := context.WithoutCancel(ctx)
	ts, err := google.ServiceAccountTokenSource(base, g.serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	svc, err := calendar.NewService(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared calendar service: %w", err)
	}
	g.shared = svc
	return svc, nil
}
