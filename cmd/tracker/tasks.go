package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tiertrack/pkg/task"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [view]",
		Short: "List a view: active, backlog, ideas, blocked, hidden, completed or archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			view, err := task.ParseView(name)
			if err != nil {
				return err
			}
			items, err := a.svc.List(cmd.Context(), view)
			if err != nil {
				return err
			}
			if a.short() {
				printShortItems(cmd.OutOrStdout(), items)
				return nil
			}
			return a.print(cmd.OutOrStdout(), items)
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its blockers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := a.svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), item)
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var status, priority string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task (omit --priority for an idea)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := task.ParsePriority(priority)
			if err != nil {
				return err
			}
			t, err := a.svc.Create(cmd.Context(), args[0], status, p)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "P0, P1 or P2")
	cmd.Flags().StringVarP(&status, "status", "s", "", "free-text status")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var title, status, priority string
	var archive, unarchive bool
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task; with no flags it only marks the task as touched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p task.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("status") {
				p.Status = &status
			}
			if flags.Changed("priority") {
				prio, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				p.Priority = &prio
			}
			if archive && unarchive {
				return fmt.Errorf("--archive and --unarchive are mutually exclusive")
			}
			if archive || unarchive {
				p.IsArchived = &archive
			}
			t, err := a.svc.Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "P0, P1, P2 or none")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive the task")
	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "restore an archived task")
	return cmd
}

// idCmd builds a command that runs op on a single task id.
func (a *app) idCmd(use, short string, op func(ctx context.Context, id int64) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v, err := op(cmd.Context(), id)
			if err != nil || v == nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), v)
		},
	}
}

func (a *app) doneCmd() *cobra.Command {
	return a.idCmd("done", "Complete a task", func(ctx context.Context, id int64) (any, error) {
		return a.svc.Complete(ctx, id)
	})
}

func (a *app) undoCmd() *cobra.Command {
	return a.idCmd("undo", "Reopen a completed task", func(ctx context.Context, id int64) (any, error) {
		return a.svc.Uncomplete(ctx, id)
	})
}

func (a *app) unhideCmd() *cobra.Command {
	return a.idCmd("unhide", "Clear a task's deferral", func(ctx context.Context, id int64) (any, error) {
		return a.svc.Unhide(ctx, id)
	})
}

func (a *app) focusCmd() *cobra.Command {
	return a.idCmd("focus", "Make a task the current focus", func(ctx context.Context, id int64) (any, error) {
		return a.svc.Focus(ctx, id)
	})
}

func (a *app) rmCmd() *cobra.Command {
	return a.idCmd("rm", "Delete a task and its blockers", func(ctx context.Context, id int64) (any, error) {
		return nil, a.svc.Delete(ctx, id)
	})
}

func (a *app) hideCmd() *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "hide <id>",
		Short: fmt.Sprintf("Defer an active task for one of %v minutes", task.HideDurations),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := a.svc.Hide(cmd.Context(), id, minutes)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 60, "deferral length")
	return cmd
}

func (a *app) unfocusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfocus",
		Short: "Clear the current focus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.ClearFocus(cmd.Context())
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show view counts, focus and any vacation suggestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			if !a.short() {
				return a.print(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			for _, v := range task.Views {
				fmt.Fprintf(w, "%-10s %d\n", v, st.Counts[v.String()])
			}
			if st.FocusedTaskID != nil {
				fmt.Fprintf(w, "focus      %d\n", *st.FocusedTaskID)
			}
			if st.Nudge != nil {
				fmt.Fprintf(w, "nudge      inactive %.0fh, suggest %d day(s): tracker vacation apply\n", st.Nudge.InactivityHours, st.Nudge.SuggestedDays)
			}
			return nil
		},
	}
}

func (a *app) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Resolve due blockers and drop stale focus now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res)
		},
	}
}
