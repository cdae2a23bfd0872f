package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "fritter",
	Short: "Fritter server and command-line client",
	Long: `Fritter serves short posts ("freets") with comments and reactions.

Run "fritter serve" to start the server. The other commands talk to a
running server through its HTTP API.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "fritter", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "Fritter server URL (default from login, or http://localhost:8080)")
	rootCmd.AddCommand(serveCmd, seedCmd, versionCmd)
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, freetCmd, commentCmd, reactCmd, commentsCmd, reactionsCmd)
}

func main() {
	_ = godotenv.Load(".env")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
