package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Debug bool
}

// NewRootCommand creates the root command for the cybermarket CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cybermarket",
		Short: "A multi-merchant market served over a line protocol",
		Long: `cybermarket runs a shopping marketplace behind a plain TCP line protocol.

Clients browse stores, fill carts and check out. Merchants manage their
catalog, restock and invite new merchants. Configuration is read from the
environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "log every frame (overrides APP_DEBUG)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))

	return cmd
}
