package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aretw0/evalrepl/internal/cli"
	"github.com/spf13/cobra"
)

var snippetsCmd = &cobra.Command{
	Use:   "snippets",
	Short: "Inspect the snippet library",
}

var snippetsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List snippets",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openSnippetsApp()
		if err != nil {
			return err
		}
		defer app.Close()

		snippets, err := app.Snippets.Snippets(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAUTOLOAD\tDESCRIPTION")
		for _, s := range snippets {
			fmt.Fprintf(w, "%s\t%t\t%s\n", s.Name, s.Autoload, s.Description)
		}
		return w.Flush()
	},
}

var snippetsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the code of a snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openSnippetsApp()
		if err != nil {
			return err
		}
		defer app.Close()

		s, err := app.Snippets.Snippet(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(s.Code)
		return nil
	},
}

func openSnippetsApp() (*cli.App, error) {
	if cfg.Snippets.Dir == "" {
		return nil, errors.New("no snippet library configured (snippets.dir)")
	}
	return cli.NewApp(cfg, logger, "cli")
}

func init() {
	rootCmd.AddCommand(snippetsCmd)
	snippetsCmd.AddCommand(snippetsLsCmd, snippetsShowCmd)
}
