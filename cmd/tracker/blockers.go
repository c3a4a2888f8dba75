package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tiertrack/pkg/task"
)

func (a *app) blockCmd() *cobra.Command {
	var by int64
	var until string
	cmd := &cobra.Command{
		Use:   "block <id>",
		Short: "Block a task on another task and/or until a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var spec task.BlockerSpec
			if cmd.Flags().Changed("by") {
				spec.BlockedByTaskID = &by
			}
			if until != "" {
				t, err := parseDate(until)
				if err != nil {
					return err
				}
				spec.BlockedUntilDate = &t
			}
			b, err := a.svc.AddBlocker(cmd.Context(), id, spec)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), b)
		},
	}
	cmd.Flags().Int64Var(&by, "by", 0, "id of the task this one waits on")
	cmd.Flags().StringVar(&until, "until", "", "date (2006-01-02) or RFC 3339 time the blocker lifts")
	return cmd
}

func (a *app) unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <blocker-id>",
		Short: "Remove a blocker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.svc.RemoveBlocker(cmd.Context(), id)
		},
	}
}

func (a *app) blockersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blockers <id>",
		Short: "List every blocker on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := a.svc.Blockers(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !a.short() {
				return a.print(cmd.OutOrStdout(), list)
			}
			w := cmd.OutOrStdout()
			for _, b := range list {
				state := "open"
				if b.Resolved {
					state = "resolved"
				}
				cond := "manual"
				switch {
				case b.BlockedByTaskID != nil && b.BlockedUntilDate != nil:
					cond = fmt.Sprintf("task %d or %s", *b.BlockedByTaskID, b.BlockedUntilDate.Format(time.RFC3339))
				case b.BlockedByTaskID != nil:
					cond = fmt.Sprintf("task %d", *b.BlockedByTaskID)
				case b.BlockedUntilDate != nil:
					cond = b.BlockedUntilDate.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%-5d %-8s %s\n", b.ID, state, cond)
			}
			return nil
		},
	}
}

// parseDate accepts a bare date (midnight local time) or an RFC 3339
// timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want 2006-01-02 or RFC 3339", s)
	}
	return t, nil
}
