package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aussiebroadwan/zitadelclient/internal/cli/app"
	"github.com/aussiebroadwan/zitadelclient/pkg/jwtx"

	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var (
		alg     string
		userID  string
		out     string
		pubPath string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a service account key file",
		Long: `Generate a key pair and write the private half as a JSON key file.

Register the public key with the service account, then use the key file
with --key-file. The public key is printed unless --public-key is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := app.GenerateKeyFile(alg, userID)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(gen.KeyFile, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("failed to write key file: %w", err)
			}

			if pubPath != "" {
				return os.WriteFile(pubPath, gen.PublicPEM, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(gen.PublicPEM)
			return err
		},
	}

	cmd.Flags().StringVar(&alg, "alg", jwtx.DefaultAlgorithm, "signing algorithm (RS256, PS256, ES256, EdDSA, ...)")
	cmd.Flags().StringVar(&userID, "user-id", "", "service account user id")
	cmd.Flags().StringVarP(&out, "out", "o", "key.json", "where to write the key file")
	cmd.Flags().StringVar(&pubPath, "public-key", "", "write the public key here instead of stdout")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
