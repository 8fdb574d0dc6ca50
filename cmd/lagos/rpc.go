package main

import (
	"os"

	"github.com/jmuk/lagos/pkg/rpc"
	"github.com/spf13/cobra"
)

func newRPCCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rpc",
		Short: "Serve the editor with JSON-RPC over stdin and stdout",
		Long: `Reads one JSON-RPC request per line from stdin and writes one response
per line to stdout. Logs go to the session directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), opts, "rpc")
			if err != nil {
				return err
			}
			defer a.Close()

			logger, err := a.session.GetLogger("rpc")
			if err != nil {
				return err
			}
			return rpc.NewServer(logger, a.agent).Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}
