package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tiertrack/internal/config"
	"tiertrack/internal/db"
	"tiertrack/pkg/clock"
	"tiertrack/pkg/task"
)

// noBackend marks commands that must not open the store.
const noBackend = "no-backend"

type app struct {
	configPath string
	format     string

	cfg     *config.Config
	backend *db.Backend
	svc     *task.Service
	clock   clock.Clock
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithClock(clock.Real())
}

func newRootCmdWithClock(clk clock.Clock) *cobra.Command {
	a := &app{clock: clk}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Single-user task tracker with tiers, blockers and staleness",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[noBackend] != "" {
				return nil
			}
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.backend != nil {
				a.backend.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.tiertrack/config.yaml)")
	root.PersistentFlags().StringVar(&a.format, "format", "json", "output format: json or short")

	root.AddCommand(
		a.listCmd(),
		a.showCmd(),
		a.addCmd(),
		a.editCmd(),
		a.doneCmd(),
		a.undoCmd(),
		a.hideCmd(),
		a.unhideCmd(),
		a.focusCmd(),
		a.unfocusCmd(),
		a.rmCmd(),
		a.blockCmd(),
		a.unblockCmd(),
		a.blockersCmd(),
		a.statusCmd(),
		a.settingsCmd(),
		a.vacationCmd(),
		a.sweepCmd(),
		a.journalCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	backend, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.backend = backend
	a.svc = task.NewService(backend.Tasks, backend.Journal, a.clock, task.WithVacationGrace(cfg.Tracker.VacationGrace))
	return nil
}

func (a *app) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func (a *app) short() bool { return a.format == "short" }

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// truncStr flattens s to one line of at most n runes.
func truncStr(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func printShortItems(w io.Writer, items []task.Item) {
	for _, it := range items {
		flags := ""
		if it.Focused {
			flags += "*"
		}
		if it.Stale {
			flags += "!"
		}
		if it.Blocked {
			flags += "#"
		}
		prio := string(it.Priority)
		if prio == "" {
			prio = "-"
		}
		fmt.Fprintf(w, "%-5d %-3s %-3s %-40s %s\n", it.ID, prio, flags, truncStr(it.Title, 40), truncStr(it.Status, 30))
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
