package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/myles/perch/internal/apiclient"
	"github.com/myles/perch/internal/config"
	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account on the feed server",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL := serverFlagOrDefault(cmd)

		login, err := promptLine("Login: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			output.Error("passwords do not match")
			return fmt.Errorf("passwords do not match")
		}
		name, err := promptLine("Display name (optional): ")
		if err != nil {
			return err
		}

		client := apiclient.New(serverURL, "")
		sess, err := client.Register(login, password, name)
		if err != nil {
			output.Error("register: %v", err)
			return err
		}

		if err := saveSession(serverURL, sess); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		output.Success("Registered and logged in as %s", sess.Login)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in to the feed server",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL := serverFlagOrDefault(cmd)

		login, err := promptLine("Login: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		client := apiclient.New(serverURL, "")
		sess, err := client.Login(login, password)
		if err != nil {
			output.Error("login: %v", err)
			return err
		}

		if err := saveSession(serverURL, sess); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		output.Success("Logged in as %s", sess.Login)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Forget the saved session",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearAuth(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the saved session",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := config.LoadAuth()
		if err != nil {
			output.Error("load auth: %v", err)
			return err
		}

		if creds == nil || creds.Token == "" {
			fmt.Println("Not logged in.")
			return nil
		}

		tokenPrefix := creds.Token
		if len(tokenPrefix) > 12 {
			tokenPrefix = tokenPrefix[:12] + "..."
		}

		fmt.Printf("Login:  %s\n", creds.Login)
		if creds.Name != "" {
			fmt.Printf("Name:   %s\n", creds.Name)
		}
		fmt.Printf("Server: %s\n", creds.ServerURL)
		fmt.Printf("Token:  %s\n", tokenPrefix)
		return nil
	},
}

func serverFlagOrDefault(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		return strings.TrimRight(s, "/")
	}
	return config.ServerURL()
}

func saveSession(serverURL string, sess *apiclient.SessionResponse) error {
	return config.SaveAuth(&config.AuthCredentials{
		Token:     sess.Token,
		UserID:    sess.UserID,
		Login:     sess.Login,
		Name:      sess.Name,
		ServerURL: serverURL,
	})
}

// stdinReader is shared across prompts so buffered piped input is not lost
// between reads.
var stdinReader = bufio.NewReader(os.Stdin)

func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal and falls back to plain
// line reading when stdin is piped.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptPipedLine()
	}
	data, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(data), nil
}

func promptPipedLine() (string, error) {
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	registerCmd.Flags().String("server", "", "Feed server URL")
	loginCmd.Flags().String("server", "", "Feed server URL")
}
