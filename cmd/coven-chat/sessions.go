// ABOUTME: Non-interactive subcommands for the conversation archive
// ABOUTME: sessions lists, show prints one, delete removes one, purge removes everything

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/render"
)

func newSessionsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List archived conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			printSessions(out, a.mgr.Sessions())
			if n := len(a.mgr.Messages()); n > 0 {
				fmt.Fprintf(out, "\nActive conversation: %d messages (%s)\n", n, a.mgr.SessionID())
			}
			return nil
		},
	}
}

func newShowCmd(flags *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: "Print an archived conversation",
		Long: `Print an archived conversation.

<session> is a number from "coven-chat sessions", a full session id, or a
unique id prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveSession(a.mgr.Sessions(), args[0])
			if err != nil {
				return err
			}
			session, ok := a.mgr.Session(id)
			if !ok {
				return fmt.Errorf("session not found: %s", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n\n", session.Title, dimColor.Sprint(session.ID))
			if raw {
				for _, msg := range session.Messages {
					fmt.Fprintf(out, "[%s] %s\n\n", msg.Role, msg.Content)
				}
				return nil
			}
			printMessages(out, render.New(), session.Messages)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete an archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveSession(a.mgr.Sessions(), args[0])
			if err != nil {
				return err
			}
			if !a.mgr.DeleteSession(id) {
				return fmt.Errorf("session not found: %s", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newPurgeCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every conversation, including the active one",
		Long: `Delete every conversation, including the active one.

Requires confirmation unless --force is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			archived := len(a.mgr.Sessions())
			active := len(a.mgr.Messages())

			if !force {
				fmt.Fprintf(out, "About to delete %d archived conversations and %d active messages.\n", archived, active)
				fmt.Fprint(out, "\nContinue? [y/N]: ")

				reader := bufio.NewReader(cmd.InOrStdin())
				response, err := reader.ReadString('\n')
				if err != nil && response == "" {
					return fmt.Errorf("read input: %w", err)
				}
				response = strings.TrimSpace(strings.ToLower(response))

				if response != "y" && response != "yes" {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			a.mgr.ClearAllSessions()
			fmt.Fprintf(out, "Deleted %d conversations.\n", archived)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
