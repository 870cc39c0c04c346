// Package cli implements the inkwell command-line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/inkwellai/inkwell/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  ___       _                    _ _\n" +
		" |_ _|_ __ | | ____      _____| | |\n" +
		"  | || '_ \\| |/ /\\ \\ /\\ / / _ \\ | |\n" +
		"  | || | | |   <  \\ V  V /  __/ | |\n" +
		" |___|_| |_|_|\\_\\  \\_/\\_/ \\___|_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Inkwell - AI assistant for your Markdown vault",
	Long:  color.CyanString(logo) + "\nA conversational assistant that reads, searches, and edits your note vault.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the inkwell version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inkwell %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(auditCmd)
}

func printHeader(title string) {
	color.Cyan("%s\n", title)
}
