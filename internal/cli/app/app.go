package app

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/aussiebroadwan/zitadelclient/pkg/cryptox"
	"github.com/aussiebroadwan/zitadelclient/pkg/httpx"
	"github.com/aussiebroadwan/zitadelclient/pkg/idx"
	"github.com/aussiebroadwan/zitadelclient/pkg/jwtx"
	"github.com/aussiebroadwan/zitadelclient/pkg/slogx"
	"github.com/aussiebroadwan/zitadelclient/pkg/tokencache/sqlite"
	"github.com/aussiebroadwan/zitadelclient/pkg/zitadel"
)

// ErrNoTokenFlow is returned by Token for modes that never talk to a token
// endpoint.
var ErrNoTokenFlow = errors.New("cli: auth mode does not obtain tokens")

// tokenAuthenticator is what the OAuth based authenticators have on top of
// auth.Authenticator.
type tokenAuthenticator interface {
	auth.Authenticator
	RefreshToken(ctx context.Context) (auth.Token, error)
	TokenManager() *auth.TokenManager
}

// Application holds everything a CLI command needs, built from Config.
type Application struct {
	cfg    Config
	logger *slog.Logger

	httpClient *http.Client
	cache      *sqlite.Store // nil when caching is off

	authn  auth.Authenticator
	client *zitadel.Client
}

// New wires up the logger, token cache, authenticator and API client. Logs
// go to logOut so stdout stays clean for command output.
func New(ctx context.Context, cfg Config, logOut io.Writer) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "zitadelctl",
			Version: zitadel.Version,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOut,
		}),
	}

	app.httpClient = &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: httpx.WithUserAgent(
			slogx.NewTransport(nil, app.logger),
			httpx.UserAgent("zitadelctl", zitadel.Version),
		),
	}

	if err := app.initCache(ctx); err != nil {
		return nil, err
	}

	if err := app.initAuthenticator(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.client = zitadel.New(app.authn,
		zitadel.WithLogger(app.logger),
		zitadel.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		zitadel.WithRateLimit(httpx.APILimit.Limiter()),
	)

	return app, nil
}

func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.TokenCache == "" {
		return nil
	}

	store, err := sqlite.Open(ctx, app.cfg.TokenCache, sqlite.WithPassphrase(app.cfg.CachePassphrase))
	if err != nil {
		return fmt.Errorf("failed to open token cache: %w", err)
	}

	if n, err := store.DeleteExpired(ctx); err != nil {
		app.logger.Warn("token cache cleanup failed", "err", err)
	} else if n > 0 {
		app.logger.Debug("pruned expired tokens", "count", n)
	}

	app.cache = store
	return nil
}

func (app *Application) authOptions() []auth.Option {
	opts := []auth.Option{
		auth.WithLogger(app.logger),
		auth.WithHTTPClient(app.httpClient),
		auth.WithRefreshLimiter(httpx.TokenLimit.Limiter()),
	}
	if app.cache != nil {
		opts = append(opts, auth.WithTokenStore(app.cache))
	}
	return opts
}

func (app *Application) initAuthenticator(ctx context.Context) error {
	cfg := app.cfg

	switch mode := cfg.ResolveAuthMode(); mode {
	case AuthModeNone:
		app.authn = auth.NewNoAuthAuthenticator(cfg.Host)

	case AuthModePAT:
		a, err := auth.NewPersonalAccessTokenAuthenticator(cfg.Host, cfg.Token)
		if err != nil {
			return err
		}
		app.authn = a

	case AuthModeClientCredentials:
		b, err := auth.NewClientCredentialsBuilder(ctx, cfg.Host, cfg.ClientID, cfg.ClientSecret, app.authOptions()...)
		if err != nil {
			return err
		}
		if len(cfg.Scopes) > 0 {
			b.Scopes(cfg.Scopes...)
		}
		a, err := b.Build()
		if err != nil {
			return err
		}
		app.authn = a

	case AuthModePrivateKey:
		kf, err := auth.LoadKeyFile(cfg.KeyFile)
		if err != nil {
			return err
		}
		b, err := auth.NewWebTokenBuilderFromKeyFile(ctx, cfg.Host, kf, app.authOptions()...)
		if err != nil {
			return err
		}
		if len(cfg.Scopes) > 0 {
			b.Scopes(cfg.Scopes...)
		}
		if cfg.KeyAlgorithm != "" {
			b.Algorithm(cfg.KeyAlgorithm)
		}
		a, err := b.Build()
		if err != nil {
			return err
		}
		app.authn = a

	default:
		return fmt.Errorf("%w: unknown auth mode %q", ErrInvalidConfig, mode)
	}

	app.logger.Debug("authenticator ready", "mode", cfg.ResolveAuthMode(), "host", app.authn.Host())
	return nil
}

func (app *Application) Config() Config                    { return app.cfg }
func (app *Application) Logger() *slog.Logger              { return app.logger }
func (app *Application) Authenticator() auth.Authenticator { return app.authn }
func (app *Application) Client() *zitadel.Client           { return app.client }

// Token returns an access token, fetching a new one when force is set or
// when the cached one is unusable.
func (app *Application) Token(ctx context.Context, force bool) (auth.Token, error) {
	ta, ok := app.authn.(tokenAuthenticator)
	if !ok {
		return auth.Token{}, fmt.Errorf("%w: %s", ErrNoTokenFlow, app.cfg.ResolveAuthMode())
	}

	if force {
		return ta.RefreshToken(ctx)
	}
	return ta.TokenManager().Token(ctx)
}

// Discover fetches the discovery document of the configured host.
func (app *Application) Discover(ctx context.Context) (*auth.OpenIDMetadata, error) {
	return auth.Discover(ctx, app.cfg.Host, app.httpClient)
}

// Close releases the token cache.
func (app *Application) Close() error {
	if app.cache != nil {
		return app.cache.Close()
	}
	return nil
}

// GeneratedKey is the output of GenerateKeyFile.
type GeneratedKey struct {
	KeyFile   *auth.KeyFile
	PublicPEM []byte // register this with the identity platform
}

// GenerateKeyFile makes a new key pair for alg and wraps the private half
// in a service account key file for userID.
func GenerateKeyFile(alg, userID string) (*GeneratedKey, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidConfig)
	}

	pemKey, err := cryptox.GenerateKeyForAlg(alg)
	if err != nil {
		return nil, err
	}

	// Round trip through the signer so a key we hand out is one we can use
	signer, err := jwtx.NewSigner(alg, "", pemKey)
	if err != nil {
		return nil, err
	}

	pub, err := marshalPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}

	kf := &auth.KeyFile{
		Type:   auth.KeyFileTypeServiceAccount,
		KeyID:  idx.New().String(),
		Key:    string(pemKey),
		UserID: userID,
	}
	if err := kf.Validate(); err != nil {
		return nil, err
	}

	return &GeneratedKey{KeyFile: kf, PublicPEM: pub}, nil
}

func marshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
