package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/credence/internal/infrastructure/crypto"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh key secret for DB_KEY or MSG_KEY",
		Long: `keygen prints a random 32-byte key, base64 encoded. Use a different
key for DB_KEY and MSG_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := crypto.GenerateKeySecret()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), secret)
			return err
		},
	}
}
