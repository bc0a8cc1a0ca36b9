package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.2.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the scalper CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scalper version %s\n", version)
		fmt.Println("An automated short-horizon FX trading engine")
		fmt.Println("https://github.com/rustyeddy/scalper")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
