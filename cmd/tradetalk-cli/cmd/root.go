package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	session   string
)

var rootCmd = &cobra.Command{
	Use:   "tradetalk-cli",
	Short: "TradeTalk CLI tool",
	Long: `TradeTalk CLI is a command-line client for a TradeTalk server.

Available commands:
  chat       Join a room and chat interactively over the WebSocket gateway
  history    Print the message history of a room

Use "tradetalk-cli [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the TradeTalk server")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "session cookie value to authenticate with")
}
