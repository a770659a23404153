package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	jwttoken "siren/internal/jwt_token"
	id "siren/pkg/domain"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue an API access token",
	Long: `Signs an access token with JWT_SIGNING_KEY for calling the HTTP API.
A random user ID is used when none is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	userID := id.UserID(uuid.New())
	if len(args) == 1 {
		parsed, err := id.ParseUserID(args[0])
		if err != nil {
			return err
		}
		userID = parsed
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := svc.GenerateAccessToken(userID, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	cmd.Println(token)
	return nil
}
