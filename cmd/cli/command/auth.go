package command

import (
	"fmt"
	"time"

	"chatdesk/cmd/cli/authentication"
	"chatdesk/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

// auth.go handles authentication commands: login, register, logout.

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate against the chatdesk API server. Supports login, registration, logout.`,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")

		httpClient := client.NewHTTPClient(apiURL)
		response, err := httpClient.Register(&req)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Println("✓ Registration successful! Please login to continue.")
		fmt.Printf("UserID: %s\n", response.UserID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req client.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")

		httpClient := client.NewHTTPClient(apiURL)
		response, err := httpClient.Login(&req)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		creds := &authentication.StoredCredentials{
			AccessToken:  response.AccessToken,
			RefreshToken: response.RefreshToken,
			Username:     response.Username,
			ExpiresAt:    time.Now().Unix() + response.ExpiresIn,
		}
		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		token = response.AccessToken

		fmt.Println("✓ Successfully logged in!")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget the stored credentials",
	Run: func(cmd *cobra.Command, args []string) {
		if err := authentication.DeleteTokens(); err != nil {
			fmt.Println("No stored credentials to remove.")
			return
		}
		token = ""
		fmt.Println("✓ Successfully logged out.")
	},
}

func init() {
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(authCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account")
	registerCmd.Flags().StringP("email", "e", "", "Email address for the new account")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
