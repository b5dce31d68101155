package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "ballotledger/internal/jwt_token"
	"ballotledger/internal/platform/config"
	"ballotledger/pkg/domain"
)

var cmdToken = &cobra.Command{
	Use:   "token <account>",
	Short: "Issue a bearer token for an account.",
	Long: "Issue a bearer token for an account, signed with BALLOT_AUTH_JWT_SIGNING_KEY. " +
		"Intended for development and operator scripts.",
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		account, err := domain.ParseAccount(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Environment()
		if err != nil {
			return err
		}
		ttl, _ := c.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
		token, err := svc.GenerateToken(account, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), token)
		return nil
	},
}

func init() {
	cmdToken.Flags().Duration("ttl", time.Duration(0), "token lifetime (defaults to BALLOT_AUTH_TOKEN_TTL)")
}
