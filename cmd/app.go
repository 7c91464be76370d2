package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/meetsync/internal/availability"
	"github.com/teemow/meetsync/internal/calendar"
	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/eventwriter"
	"github.com/teemow/meetsync/internal/google"
	"github.com/teemow/meetsync/internal/identity"
	"github.com/teemow/meetsync/internal/instrumentation"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/meetings"
	"github.com/teemow/meetsync/internal/store"
	storememory "github.com/teemow/meetsync/internal/store/memory"
	"github.com/teemow/meetsync/internal/store/sqlite"
)

// globalFlags are the persistent flags of the root command. They override the
// environment when set explicitly.
type globalFlags struct {
	store     string
	database  string
	timezone  string
	owners    []string
	logLevel  string
	logFormat string
}

var flags globalFlags

func addGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.store, "store", config.StoreSQLite, "Storage backend: memory or sqlite. Can also use MEETSYNC_STORE env var.")
	pf.StringVar(&flags.database, "database", "meetsync.db", "SQLite database path. Can also use MEETSYNC_DATABASE_PATH env var.")
	pf.StringVar(&flags.timezone, "timezone", "", "Timezone slots are computed in (default Europe/Moscow). Can also use MEETSYNC_TIMEZONE env var.")
	pf.StringSliceVar(&flags.owners, "owners", nil, "Owner participant IDs in priority order. Can also use MEETSYNC_OWNER_IDS env var.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
}

// loadConfig reads the environment, applies explicitly set flags and
// validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("store") {
		cfg.Store = flags.store
	}
	if f.Changed("database") {
		cfg.DatabasePath = flags.database
	}
	if f.Changed("timezone") {
		cfg.Timezone = flags.timezone
	}
	if f.Changed("owners") {
		cfg.OwnerIDs = flags.owners
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds the wired scheduling engine.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   store.Store
	tokens  google.TokenProvider
	oauth   *oauth2.Config
	manager *meetings.Manager
}

// setupApp loads the configuration and wires the engine for a CLI command.
// Logs go to stderr so stdout stays free for command output.
func setupApp(cmd *cobra.Command, metrics *instrumentation.Metrics) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, logger, metrics)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := newTokenProvider(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	oauthConf, err := google.NewOAuthConfig(cfg.Google)
	if err != nil {
		if !errors.Is(err, google.ErrNoClientCredentials) {
			_ = st.Close()
			return nil, err
		}
		logger.Debug("delegated calendars disabled", logging.Err(err))
		oauthConf = nil
	}

	services := calendar.NewGoogleServices(calendar.GoogleServicesConfig{
		OAuth:              oauthConf,
		Tokens:             tokens,
		ServiceAccountFile: cfg.Google.ServiceAccountFile,
		Metrics:            metrics,
		Logger:             logger,
	})
	provider := calendar.NewClient(services, metrics, logger)
	identities := identity.NewResolver(st, tokens, logger)

	slots := availability.NewResolver(availability.Config{
		Participants: st,
		Availability: st,
		Meetings:     st,
		Identities:   identities,
		Provider:     provider,
		Options: availability.Options{
			Owners:       cfg.OwnerIDs,
			Location:     cfg.Location(),
			Duration:     cfg.MeetingDuration,
			SkipWeekends: cfg.SkipWeekends,
			BusyTimeout:  cfg.Timeouts.Busy,
		},
		Metrics: metrics,
		Logger:  logger,
	})

	writer := eventwriter.New(identities, provider, eventwriter.Options{
		SharedAttendees: cfg.SharedAttendees,
		Timeout:         cfg.Timeouts.Write,
	}, metrics, logger)

	manager := meetings.NewManager(cfg, meetings.Deps{
		Store:   st,
		Slots:   slots,
		Writer:  meetings.NewDualWriter(writer, logger),
		Deleter: meetings.NewDeleter(identities, provider, cfg.Timeouts.Delete, logger),
		Metrics: metrics,
		Logger:  logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		tokens:  tokens,
		oauth:   oauthConf,
		manager: manager,
	}, nil
}

// Close releases the store.
func (a *app) Close() error {
	return a.store.Close()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storememory.New(), nil
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store %q", cfg.Store)
	}
}

func newTokenProvider(cfg config.Config) (google.TokenProvider, error) {
	if cfg.Google.TokenStore == config.TokenStoreMemory {
		return google.NewStoreTokenProvider(memory.New()), nil
	}

	dir := cfg.Google.TokenDir
	if dir == "" {
		var err error
		if dir, err = google.DefaultTokenDir(); err != nil {
			return nil, err
		}
	}
	return google.NewFileTokenProvider(dir)
}
