package main

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/aussiebroadwan/zitadelclient/internal/cli/app"
	"github.com/aussiebroadwan/zitadelclient/pkg/auth"
	"github.com/aussiebroadwan/zitadelclient/pkg/zitadel"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeAuthFailed means the identity platform refused us or could
	// not be reached to ask.
	ExitCodeAuthFailed = 2
)

// rootOptions are the global flags. Flags only override the environment
// and config file when they are set explicitly.
type rootOptions struct {
	configFile   string
	host         string
	authMode     string
	token        string
	clientID     string
	clientSecret string
	keyFile      string
	keyAlg       string
	scopes       []string
	tokenCache   string
	logLevel     string
	timeout      time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "zitadelctl",
		Short: "Talk to a Zitadel instance from the command line",
		Long: `zitadelctl authenticates against a Zitadel instance and calls its API.

Credentials come from ZITADEL_* environment variables, an optional YAML
config file (--config) and flags, in increasing order of precedence.`,
		Version:       zitadel.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "zitadelctl version %s\n" .Version}}`)

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file")
	f.StringVar(&opts.host, "host", "", "instance URL (ZITADEL_HOST)")
	f.StringVar(&opts.authMode, "auth-mode", "", "none, pat, client_credentials or private_key (ZITADEL_AUTH_MODE)")
	f.StringVar(&opts.token, "token", "", "personal access token (ZITADEL_TOKEN)")
	f.StringVar(&opts.clientID, "client-id", "", "client id (ZITADEL_CLIENT_ID)")
	f.StringVar(&opts.clientSecret, "client-secret", "", "client secret (ZITADEL_CLIENT_SECRET)")
	f.StringVar(&opts.keyFile, "key-file", "", "JSON key file (ZITADEL_KEY_FILE)")
	f.StringVar(&opts.keyAlg, "key-alg", "", "signing algorithm for the key file (ZITADEL_KEY_ALG)")
	f.StringSliceVar(&opts.scopes, "scope", nil, "scope to request, repeatable (ZITADEL_SCOPES)")
	f.StringVar(&opts.tokenCache, "token-cache", "", "SQLite file to cache tokens in (ZITADEL_TOKEN_CACHE)")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	f.DurationVar(&opts.timeout, "timeout", 0, "per request timeout (HTTP_TIMEOUT)")

	cmd.AddCommand(
		newTokenCmd(opts),
		newHeadersCmd(opts),
		newDiscoverCmd(opts),
		newSettingsCmd(opts),
		newKeygenCmd(),
	)

	return cmd
}

// config merges environment, config file and flags.
func (o *rootOptions) config(cmd *cobra.Command) (app.Config, error) {
	cfg := app.LoadConfig()

	if o.configFile != "" {
		if err := cfg.LoadFile(o.configFile); err != nil {
			return app.Config{}, err
		}
	}

	flags := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("host", &cfg.Host, o.host)
	set("auth-mode", &cfg.AuthMode, o.authMode)
	set("token", &cfg.Token, o.token)
	set("client-id", &cfg.ClientID, o.clientID)
	set("client-secret", &cfg.ClientSecret, o.clientSecret)
	set("key-file", &cfg.KeyFile, o.keyFile)
	set("key-alg", &cfg.KeyAlgorithm, o.keyAlg)
	set("token-cache", &cfg.TokenCache, o.tokenCache)
	set("log-level", &cfg.LogLevel, o.logLevel)
	if flags.Changed("scope") {
		cfg.Scopes = o.scopes
	}
	if flags.Changed("timeout") {
		cfg.HTTPTimeout = o.timeout
	}

	return cfg, nil
}

// newApp builds the application for a command. Logs go to stderr.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, cmd.ErrOrStderr())
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, auth.ErrDiscovery),
		errors.Is(err, auth.ErrRefresh),
		errors.Is(err, auth.ErrAssertion),
		errors.Is(err, zitadel.ErrUnauthorized):
		return ExitCodeAuthFailed
	default:
		return ExitCodeError
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
