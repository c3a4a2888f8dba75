package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tiertrack/pkg/task"
)

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change tracker settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.Settings(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), set)
		},
	}

	var staleHours, offsetHours float64
	var topN int
	var clearOffset bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p task.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("stale-hours") {
				p.StaleThresholdHours = &staleHours
			}
			if flags.Changed("top-n") {
				p.TopN = &topN
			}
			if flags.Changed("offset-hours") {
				p.OneTimeOffsetHours = &offsetHours
			}
			p.ClearOneTimeOffset = clearOffset
			s, err := a.svc.UpdateSettings(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s)
		},
	}
	set.Flags().Float64Var(&staleHours, "stale-hours", 0, "hours before an untouched task is stale")
	set.Flags().IntVar(&topN, "top-n", 0, "size of the active view")
	set.Flags().Float64Var(&offsetHours, "offset-hours", 0, "one-time staleness offset in hours")
	set.Flags().BoolVar(&clearOffset, "clear-offset", false, "drop any one-time offset")
	cmd.AddCommand(set)
	return cmd
}

func (a *app) vacationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vacation",
		Short: "Show the vacation suggestion, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.Nudge(cmd.Context())
			if err != nil {
				return err
			}
			if n == nil && a.short() {
				fmt.Fprintln(cmd.OutOrStdout(), "no suggestion")
				return nil
			}
			return a.print(cmd.OutOrStdout(), n)
		},
	}

	apply := &cobra.Command{
		Use:   "apply [days]",
		Short: "Extend the staleness threshold by days (default: the suggestion)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var days int
			if len(args) == 1 {
				d, err := strconv.Atoi(args[0])
				if err != nil || d < 1 {
					return fmt.Errorf("invalid days %q", args[0])
				}
				days = d
			}
			s, err := a.svc.ApplyVacation(cmd.Context(), days)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s)
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss",
		Short: "Silence the suggestion until a task is touched again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.svc.DismissVacation(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s)
		},
	}

	cmd.AddCommand(apply, dismiss)
	return cmd
}
