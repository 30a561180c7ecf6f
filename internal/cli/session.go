package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/querymesh/core"
)

func newSessionCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage analytics sessions",
	}

	cmd.AddCommand(
		newSessionCreateCmd(load),
		newSessionListCmd(load),
		newSessionShowCmd(load),
		newSessionCloseCmd(load),
		newSessionDeleteCmd(load),
	)

	return cmd
}

func newSessionCreateCmd(load configLoader) *cobra.Command {
	var (
		dataSource string
		meta       []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a session bound to a data source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMeta(meta)
			if err != nil {
				return err
			}
			return withApp(load, func(a *app) error {
				sess, err := a.mesh.CreateSession(cmd.Context(), dataSource, md)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sess)
			})
		},
	}

	cmd.Flags().StringVarP(&dataSource, "data-source", "d", "", "data source the session queries")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("data-source")

	return cmd
}

func newSessionListCmd(load configLoader) *cobra.Command {
	var filter core.SessionFilter
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = core.SessionStatus(status)
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}
			return withApp(load, func(a *app) error {
				sessions, err := a.mesh.ListSessions(cmd.Context(), filter)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, s := range sessions {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d messages\t%s\n",
						s.ID, s.DataSource, s.Status, len(s.Messages), s.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter.DataSource, "data-source", "d", "", "only sessions on this data source")
	cmd.Flags().StringVar(&status, "status", "", "only sessions with this status")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of sessions (0 = all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of sessions to skip")

	return cmd
}

func newSessionShowCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session with its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(a *app) error {
				sess, err := a.mesh.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sess)
			})
		},
	}
}

func newSessionCloseCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session; it keeps its history but rejects new questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(a *app) error {
				return a.mesh.CloseSession(cmd.Context(), args[0])
			})
		},
	}
}

func newSessionDeleteCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(a *app) error {
				return a.mesh.DeleteSession(cmd.Context(), args[0])
			})
		},
	}
}

func parseMeta(pairs []string) (map[string]string, error) {
	md := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, want key=value", p)
		}
		md[k] = v
	}
	return md, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
