package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token",
		Long: `Print an access token for the configured credentials.

A cached token is reused until it is within five minutes of expiring.

Examples:
  zitadelctl token --client-id my-client --client-secret s3cret
  zitadelctl token --key-file key.json --refresh
  curl -H "Authorization: Bearer $(zitadelctl token)" ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			tok, err := application.Token(cmd.Context(), refresh)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"access_token": tok.AccessToken,
					"expires_at":   tok.ExpiresAt.Format(time.RFC3339),
					"expires_in":   int64(time.Until(tok.ExpiresAt).Seconds()),
				})
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
			return err
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch a new token even if the cached one is valid")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the token with its expiry as JSON")
	return cmd
}

func newHeadersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "headers",
		Short: "Print the headers an API request would carry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			headers, err := application.Authenticator().AuthHeaders(cmd.Context())
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(headers))
			for k := range headers {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, headers[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
