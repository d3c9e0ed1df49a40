package command

// root.go defines the root command for the chatdesk CLI.
// Global flags and shared state live here.

import (
	"fmt"
	"os"

	"chatdesk/cmd/cli/authentication"

	"github.com/spf13/cobra"
)

var (
	apiURL string // global flag for the API server URL
	token  string // access token, loaded from the keyring or --token
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatdesk",
	Short: "chatdesk - command line chat client",
	Long: `chatdesk is a terminal client for the chatdesk API. It can:
- Register and log in
- List, create and update chat rooms
- Open a room: page through history and follow live messages

Use "chatdesk <command> -h" to see the flags of each command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token (defaults to the stored login)")

	loadStoredToken()
}

// loadStoredToken picks up the keyring credentials so authed commands work
// without --token. A missing entry just means "not logged in".
func loadStoredToken() {
	if token != "" {
		return
	}
	creds, err := authentication.GetTokens()
	if err != nil {
		return
	}
	token = creds.AccessToken
}
