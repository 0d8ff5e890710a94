package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/evalrepl"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of evalrepl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("evalrepl version %s\n", strings.TrimSpace(evalrepl.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
