package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/reserve/internal/config"
	"github.com/lazypower/reserve/internal/identity"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a bearer token for a user",
	Long:  "Signs a token with RESERVE_JWT_SECRET. Clients send it as RESERVE_TOKEN.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		resolver := identity.NewResolver(cfg.Identity.JWTSecret, cfg.Identity.JWTIssuer)
		tok, err := resolver.Issue(args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 90*24*time.Hour, "Token lifetime")
}
