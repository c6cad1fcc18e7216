package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/logging"
)

// Token store kinds accepted by --token-store.
const (
	tokenStoreFile   = "file"
	tokenStoreMemory = "memory"
)

// loadEnvFile loads path into the environment without overriding variables
// that are already set. With no path, a .env file in the working directory is
// loaded when one exists.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// envOrFlag returns the flag value, or the environment variable when the
// flag is empty.
func envOrFlag(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

// resolveUser returns the --user flag or GRAPHCAL_USER.
func resolveUser() string {
	return envOrFlag(userID, "GRAPHCAL_USER")
}

// requireUser is resolveUser for commands that cannot run without a user.
func requireUser() (string, error) {
	user := resolveUser()
	if user == "" {
		return "", fmt.Errorf("no user specified: pass --user or set GRAPHCAL_USER")
	}
	return user, nil
}

// oauthConfigFromEnv reads the app registration from OAUTH_APP_ID,
// OAUTH_APP_SECRET, OAUTH_TENANT and OAUTH_AUTHORITY. Redirect URI and scopes
// are shared with the Graph configuration.
func oauthConfigFromEnv(graphCfg graph.Config) identity.OAuthConfig {
	return identity.OAuthConfig{
		ClientID:     os.Getenv("OAUTH_APP_ID"),
		ClientSecret: os.Getenv("OAUTH_APP_SECRET"),
		Tenant:       os.Getenv("OAUTH_TENANT"),
		Authority:    os.Getenv("OAUTH_AUTHORITY"),
		RedirectURI:  graphCfg.RedirectURI,
		Scopes:       graphCfg.Scopes,
	}
}

// newTokenStore opens the token store named by kind. The returned function
// releases it.
func newTokenStore(kind, dir string) (identity.TokenStore, func(), error) {
	switch kind {
	case "", tokenStoreFile:
		if dir == "" {
			var err error
			if dir, err = identity.DefaultCacheDir(); err != nil {
				return nil, nil, err
			}
		}
		return identity.NewFileTokenStore(dir), func() {}, nil
	case tokenStoreMemory:
		store := identity.NewMemoryStore()
		return store, store.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported token store %q (supported: file, memory)", kind)
	}
}

// environment bundles the Graph service and identity client that every
// Graph command works with.
type environment struct {
	graph    *graph.Service
	identity *identity.OAuthClient
	close    func()
}

// environmentOptions carries flag overrides applied on top of the
// environment configuration.
type environmentOptions struct {
	NotificationURL string
	Recorder        graph.Recorder
}

// newEnvironment builds the Graph service and the identity client from the
// environment and the shared flags. Call close when done.
func newEnvironment(opts environmentOptions) (*environment, error) {
	graphCfg, err := graph.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid graph configuration: %w", err)
	}
	if opts.NotificationURL != "" {
		graphCfg.NotificationURL = opts.NotificationURL
	}

	store, closeStore, err := newTokenStore(
		envOrFlag(tokenStoreKind, "GRAPHCAL_TOKEN_STORE"),
		envOrFlag(tokenDir, "GRAPHCAL_TOKEN_DIR"))
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogAdapter(slog.Default())

	idc, err := identity.NewOAuthClient(oauthConfigFromEnv(graphCfg), store, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to create identity client (is OAUTH_APP_ID set?): %w", err)
	}

	svcOpts := []graph.Option{graph.WithLogger(logger)}
	if opts.Recorder != nil {
		svcOpts = append(svcOpts, graph.WithRecorder(opts.Recorder))
	}

	return &environment{
		graph:    graph.NewService(graphCfg, svcOpts...),
		identity: idc,
		close:    closeStore,
	}, nil
}
