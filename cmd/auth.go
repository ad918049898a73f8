// Package cmd implements the command-line interface for lectio.
package cmd

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lectio-cli/lectio/auth"
	"github.com/lectio-cli/lectio/icon"
	"github.com/lectio-cli/lectio/key"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authLoginCmd.Flags().StringP("account", "a", "", "Marketplace account identifier")
}

// authCmd groups credential management for the marketplace API.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage marketplace API credentials",
}

// authLoginCmd stores the API token in the system keyring.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a marketplace API token in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		var token string
		prompt := &survey.Password{Message: "Marketplace API token:"}
		handleErr(survey.AskOne(prompt, &token))

		if token == "" {
			handleErr(errors.New("empty token"))
		}

		handleErr(auth.SetToken(token))

		if account, _ := cmd.Flags().GetString("account"); account != "" {
			viper.Set(key.AccountID, account)
			switch err := viper.WriteConfig(); err.(type) {
			case viper.ConfigFileNotFoundError:
				handleErr(viper.SafeWriteConfig())
			default:
				handleErr(err)
			}
		}

		fmt.Printf("%s Logged in\n", icon.Get(icon.Success))
	},
}

// authLogoutCmd removes the stored token.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored marketplace API token",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteToken())
		fmt.Printf("%s Logged out\n", icon.Get(icon.Success))
	},
}

// authStatusCmd reports whether a token is present without printing it.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a marketplace API token is stored",
	Run: func(cmd *cobra.Command, args []string) {
		token, err := auth.GetToken()
		if err != nil || token == "" {
			fmt.Printf("%s No token stored; run \"lectio auth login\"\n", icon.Get(icon.Fail))
			return
		}

		account := viper.GetString(key.AccountID)
		if account == "" {
			account = "unknown account"
		}
		fmt.Printf("%s Token stored (%s)\n", icon.Get(icon.Success), account)
	},
}
