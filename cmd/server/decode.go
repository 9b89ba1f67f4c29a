package main

import (
	"encoding/json"
	"fmt"
	"time"

	"portal-gateway/internal/auth"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode an access credential and report its claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claim, err := auth.NewDecoder(secret).Decode(args[0])
			if err != nil {
				return err
			}

			now := time.Now()
			out, err := json.MarshalIndent(map[string]interface{}{
				"subject":   claim.Subject,
				"role":      claim.Role,
				"expiresAt": claim.ExpiresAt.Format(time.RFC3339),
				"expired":   claim.Expired(now),
				"remaining": claim.ExpiresAt.Sub(now).Round(time.Second).String(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret; when set the signature is verified")
	return cmd
}
