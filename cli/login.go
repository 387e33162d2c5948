// ABOUTME: login and logout commands for remote store credentials
// ABOUTME: Prompts for user id and token, generating a device id on first login
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/presencehq/radar/config"
)

// LoginCommand stores remote store credentials in the config file.
func LoginCommand(cfg *config.Config, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("User ID: ")
	userID, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	fmt.Print("Access token (hidden, blank to keep current): ")
	tokenBytes, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	cfg.UserID = userID
	if token := strings.TrimSpace(string(tokenBytes)); token != "" {
		cfg.Token = token
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = config.GenerateDeviceID()
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (device %s)\n", cfg.UserID, cfg.DeviceID)
	return nil
}

// LogoutCommand clears the stored credentials but keeps local data.
func LogoutCommand(cfg *config.Config, args []string) error {
	cfg.Token = ""
	cfg.UserID = ""
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println("Logged out. Local data and queued changes are preserved.")
	return nil
}
