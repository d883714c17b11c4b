package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/devjourney-backend/internal/services"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawUser, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			secret = os.Getenv("JWT_SECRET_KEY")
		}
		if secret == "" {
			secret = "defaultsecret"
		}

		userID := uuid.New()
		if rawUser != "" {
			id, err := uuid.Parse(rawUser)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			userID = id
		}
		if userID == uuid.Nil {
			return fmt.Errorf("--user must not be the nil uuid")
		}

		tok, err := services.SignAccessToken(secret, userID, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "user: %s\n", userID)
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "User id to embed (random when empty)")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	tokenCmd.Flags().String("secret", "", "Signing secret (defaults to JWT_SECRET_KEY)")
}
