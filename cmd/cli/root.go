// Package cli implements credence-admin, the operator tool for key and
// digest chores that run outside the API process.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "credence-admin",
	Short: "Operator tool for the Credence API.",
	Long: `credence-admin generates process keys, computes password digests and
checks that a deployment's configuration and key source are usable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newKeygenCmd(), newDigestCmd(), newCheckCmd())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
