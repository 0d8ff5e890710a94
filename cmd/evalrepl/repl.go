package main

import (
	"os"
	"os/user"

	"github.com/aretw0/evalrepl"
	"github.com/aretw0/evalrepl/internal/cli"
	"github.com/aretw0/evalrepl/internal/presentation/tui"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive terminal session",
	Long: `Reads messages from stdin and evaluates them in one session.

End a line with \ to continue it, or wrap several lines in a ` + "```lua" + ` fence.
Press Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")
		if f, _ := cmd.Flags().GetString("formatter"); f != "" {
			cfg.Formatter = f
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		app, err := cli.NewApp(cfg, logger, "terminal")
		if err != nil {
			return err
		}
		defer app.Close()

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		render := tui.Plain
		if interactive && !plain {
			markdown := tui.NewRenderer()
			render = func(r domain.Rendering) string {
				out, err := markdown(tui.Markdown(r, cfg.FenceLanguage))
				if err != nil {
					return tui.Plain(r)
				}
				return out
			}
		}
		if interactive {
			tui.PrintBanner(os.Stdout, evalrepl.Version)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		r := &cli.REPL{
			Sessions:   app.Sessions,
			SessionID:  sessionID,
			Author:     currentUser(),
			In:         os.Stdin,
			Out:        os.Stdout,
			Prompt:     interactive,
			Render:     render,
			Invocation: app.Invocation,
		}
		return r.Run(ctx)
	},
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "user"
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().StringP("session", "s", "terminal", "Session ID")
	replCmd.Flags().StringP("formatter", "f", "", "Formatter: simple, embed or ipython (overrides the configuration)")
	replCmd.Flags().Bool("plain", false, "Disable markdown rendering")

	// Default to the REPL when no subcommand is given.
	rootCmd.RunE = replCmd.RunE
	rootCmd.Flags().AddFlagSet(replCmd.Flags())
}
