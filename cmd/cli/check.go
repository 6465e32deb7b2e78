package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/credence/internal/config"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/internal/infrastructure/kms"
	"github.com/turtacn/credence/pkg/logger"
)

func newCheckCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and load both process keys",
		Long: `check loads the configuration the server would load, fetches the key
secrets from the configured source and builds the key store. Key material is
never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewNoopLogger()
			var paths []string
			if configDir != "" {
				paths = append(paths, configDir)
			}
			cfg, err := config.NewLoader(log, paths...).Load()
			if err != nil {
				return err
			}
			source, err := kms.NewSecretSource(cfg, log)
			if err != nil {
				return err
			}
			keys, err := kms.LoadKeyStore(cmd.Context(), source, log)
			if err != nil {
				return err
			}
			if err := crypto.DigestParamsFrom(cfg.Password).Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "environment: %s\n", cfg.Server.Environment)
			fmt.Fprintf(out, "key source:  %s\n", cfg.Secrets.Source)
			fmt.Fprintf(out, "keys:        %s\n", keys)
			fmt.Fprintf(out, "token ttl:   %s\n", cfg.Token.TTL)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml")
	return cmd
}
