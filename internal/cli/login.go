package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate against the scheduling backend",
	Long:  "Exchange a username and password for an access token and store it locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		username := args[0]
		password, _ := cmd.Flags().GetString("password")

		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		access, err := rt.client.Login(ctx, username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := rt.tokens.Put(access); err != nil {
			return fmt.Errorf("store token: %w", err)
		}

		fmt.Printf("%s Logged in as %s\n", color.New(color.FgGreen).Sprint("✓"), username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.tokens.Clear(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("password", "", "Password (prompted on stdin when omitted)")
}

func LoginCmd() *cobra.Command {
	return loginCmd
}

func LogoutCmd() *cobra.Command {
	return logoutCmd
}
