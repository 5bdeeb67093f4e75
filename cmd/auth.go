package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage service-account authentication",
	}

	cmd.AddCommand(newAuthVerifyCmd())

	return cmd
}

func newAuthVerifyCmd() *cobra.Command {
	var debugMode bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the service-account credentials",
		Long: `Load the configured service-account key, sign a token request and
exchange it with Google. Succeeds only if the key is valid and the token
endpoint accepts it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sc, err := newCLIServerContext(ctx, debugMode)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			token, err := sc.TokenManager().Token(ctx)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Println("Credentials verified")
			fmt.Printf("Token type: %s\n", token.TokenType)
			fmt.Printf("Expires: %s (in %s)\n",
				token.ExpiresAt.Format(time.RFC3339),
				time.Until(token.ExpiresAt).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}
