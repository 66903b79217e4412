package commands

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginUsername *string

func init() {
	loginUsername = loginCmd.Flags().StringP("username", "u", "", "The CRM account email.")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// readPassword reads CRMLOOKUP_PASSWORD, or prompts for the password without
// echo when stdin is a terminal.
func readPassword() (string, error) {
	if password := os.Getenv("CRMLOOKUP_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var loginCmd = &cobra.Command{
	Use:   "login --username <email>",
	Short: "Logs into the CRM and saves the session for the other commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tel, stop := newTelemetry()
		defer stop()

		client, err := newCrmClient(tel)
		if err != nil {
			return err
		}

		password, err := readPassword()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		res, err := client.Login(cmd.Context(), *loginUsername, password)
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Message)
		}

		slog.Info("logged in", "username", *loginUsername, "session", cfg.SessionPath())
		t := NewTable()
		t.AppendRow([]any{"User", res.UserName})
		t.AppendRow([]any{"Office", res.OfficeName})
		t.Render()
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Deletes the saved CRM session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tel, stop := newTelemetry()
		defer stop()

		client, err := newCrmClient(tel)
		if err != nil {
			return err
		}
		return client.Logout()
	},
}
