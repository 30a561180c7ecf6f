package cli

import (
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/querymesh/stream"
)

func newAskCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <session-id> <question>...",
		Short: "Ask a question and stream the turn as server-sent events",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args[1:], " ")

			return withApp(load, func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()

				turnID, events, errs, err := a.mesh.Ask(ctx, args[0], query)
				if err != nil {
					return err
				}
				a.logger.Debug("turn started", "session_id", args[0], "turn_id", turnID)

				pipeErr := stream.Pipe(ctx, cmd.OutOrStdout(), events)
				// Drain the rest so the turn can finish persisting.
				for range events {
				}

				return errors.Join(pipeErr, <-errs)
			})
		},
	}
}
