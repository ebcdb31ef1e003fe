// Command synchrony-demo sorts and joins BED interval tracks from the
// command line, exercising the record and query packages built on top of
// synchrony's core.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/riftbio/synchrony"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		synchrony.Log.Error(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "synchrony-demo",
		Short: "sort and join BED interval tracks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := synchrony.Config()
			cfg.Debug = debug
			return synchrony.Configure(cfg)
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging")

	cmd.AddCommand(sortCmd())
	cmd.AddCommand(overlapsCmd())
	cmd.AddCommand(withinCmd())
	return cmd
}
