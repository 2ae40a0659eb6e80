package main

import (
	"github.com/spf13/cobra"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Show the OpenID Connect discovery document of the instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			md, err := application.Discover(cmd.Context())
			if err != nil {
				return err
			}

			pc := md.ProviderConfig()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"host":                   md.HostEndpoint(),
				"issuer":                 pc.IssuerURL,
				"authorization_endpoint": pc.AuthURL,
				"token_endpoint":         md.TokenEndpoint(),
				"userinfo_endpoint":      pc.UserInfoURL,
				"jwks_uri":               pc.JWKSURL,
			})
		},
	}
}
