package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/curapost/configs"
	"github.com/maheshrc27/curapost/pkg/utils"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	if err := newRootCmd(config.LoadConfig()).Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue operator credentials for the curapost API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newSessionCmd(cfg),
		newAPIKeyCmd(),
	)

	return cmd
}

func newSessionCmd(cfg *config.Config) *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print a signed session token for the Authorization header",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.SecretKey) != 32 {
				return errors.New("SECRET_KEY must be 32 bytes")
			}
			token, err := utils.GenerateToken(cfg.SecretKey, operator, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "operator", "operator name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func newAPIKeyCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Print a random value suitable for API_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := utils.GenerateRandomKey(length)
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "bytes", 32, "number of random bytes")

	return cmd
}
