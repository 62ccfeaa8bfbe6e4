package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapu/pulse-kit-go/internal/config"
	"github.com/kapu/pulse-kit-go/internal/constants"
	"github.com/kapu/pulse-kit-go/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development access token",
		Long: `Sign an access token with JWT_SECRET for local testing.

Examples:
  # Token with the default ideas and replies scopes
  token user-123

  # Token that can also save keys and settings
  token user-123 --scope ideas,replies,settings --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}

			token, err := server.NewTokenIssuer(cfg.Auth.JWTSecret).Issue(args[0], scopes, ttl)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(map[string]any{
				"token":      token,
				"sub":        args[0],
				"scope":      scopes,
				"expires_in": int(ttl / time.Second),
			})
		},
	}

	cmd.Flags().StringSliceVarP(&scopes, "scope", "s", constants.AuthConfig.AccessScopes, "Scopes to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to ACCESS_TOKEN_TTL_SECONDS)")

	return cmd
}
