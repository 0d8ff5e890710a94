package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aretw0/evalrepl/internal/cli"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded invocations",
	Long:  "Reads the history store selected by history.backend (file or redis for anything that outlives the process).",
}

var historyLsCmd = &cobra.Command{
	Use:   "ls [session]",
	Short: "List sessions, or the records of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openHistoryApp()
		if err != nil {
			return err
		}
		defer app.Close()
		ctx := cmd.Context()

		if len(args) == 0 {
			sessions, err := app.History.Sessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No recorded sessions.")
				return nil
			}
			for _, id := range sessions {
				fmt.Println(id)
			}
			return nil
		}

		records, err := app.History.List(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSHAPE\tINPUT")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Shape, summarize(rec))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session> [record]",
	Short: "Print records as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openHistoryApp()
		if err != nil {
			return err
		}
		defer app.Close()

		var out any
		if len(args) == 2 {
			rec, err := app.History.Get(cmd.Context(), args[0], args[1])
			if errors.Is(err, domain.ErrRecordNotFound) {
				return fmt.Errorf("record %s not found in session %s", args[1], args[0])
			}
			if err != nil {
				return err
			}
			out = rec
		} else {
			records, err := app.History.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out = records
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <session>",
	Short: "Delete the records of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openHistoryApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.History.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete session history: %w", err)
		}
		fmt.Printf("Deleted history of %s\n", args[0])
		return nil
	},
}

func openHistoryApp() (*cli.App, error) {
	app, err := cli.NewApp(cfg, logger, "cli")
	if err != nil {
		return nil, err
	}
	if app.History == nil {
		app.Close()
		return nil, errors.New("history is disabled (history.backend: none)")
	}
	return app, nil
}

func summarize(rec *domain.Record) string {
	const width = 48
	line := rec.Input
	for i, r := range line {
		if r == '\n' {
			line = line[:i] + " ..."
			break
		}
	}
	if len([]rune(line)) > width {
		line = string([]rune(line)[:width-3]) + "..."
	}
	return line
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyLsCmd, historyShowCmd, historyRmCmd)
}
