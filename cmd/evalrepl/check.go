package main

import (
	"fmt"

	"github.com/aretw0/evalrepl/internal/cli"
	"github.com/aretw0/evalrepl/internal/compiler"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and the snippet library",
	Long: `Loads the configuration and compiles every snippet of the library
without running it. Exits non-zero when a snippet does not compile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Configuration OK (formatter: %s, history: %s)\n", cfg.Formatter, cfg.History.Backend)

		if cfg.Snippets.Dir == "" {
			return nil
		}

		app, err := cli.NewApp(cfg, logger, "cli")
		if err != nil {
			return err
		}
		defer app.Close()

		snippets, err := app.Snippets.Snippets(cmd.Context())
		if err != nil {
			return err
		}

		failed := 0
		for _, s := range snippets {
			if err := compiler.Check(s.Code); err != nil {
				failed++
				fmt.Printf("✗ %s: %v\n", s.Name, err)
				continue
			}
			fmt.Printf("✓ %s\n", s.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d snippets failed to compile", failed, len(snippets))
		}
		fmt.Printf("Snippet library %s is valid.\n", cfg.Snippets.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
