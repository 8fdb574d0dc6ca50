package main

import (
	"github.com/jmuk/lagos/pkg/repl"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), opts, "chat")
			if err != nil {
				return err
			}
			defer a.Close()

			logger, err := a.session.GetLogger("repl")
			if err != nil {
				return err
			}
			console, err := repl.New(logger, a.agent, a.runner, a.projectRoot)
			if err != nil {
				return err
			}
			defer console.Close()
			return console.Run(ctx)
		},
	}
}
