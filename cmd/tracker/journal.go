package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tiertrack/internal/config"
	"tiertrack/pkg/journal"
)

func (a *app) journalCmd() *cobra.Command {
	var limit int
	var taskID int64
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent journal entries (postgres keeps them across runs)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var entries []journal.Entry
			var err error
			if taskID > 0 {
				entries, err = a.backend.Journal.ByTask(ctx, taskID, limit)
			} else {
				entries, err = a.backend.Journal.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			if !a.short() {
				return a.print(cmd.OutOrStdout(), entries)
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-20s  %d\n", e.Timestamp.Format(time.DateTime), e.Type, e.TaskID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	cmd.Flags().Int64Var(&taskID, "task", 0, "only entries for this task")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the journal's hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := a.backend.Journal.Count(ctx)
			if err != nil {
				return err
			}
			if err := a.backend.Journal.VerifyChain(ctx); err != nil {
				return fmt.Errorf("chain broken: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chain ok (%d entries)\n", n)
			return nil
		},
	}
	cmd.AddCommand(verify)
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage tracker configuration",
		Annotations: map[string]string{noBackend: "true"},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with the default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noBackend: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noBackend: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}
