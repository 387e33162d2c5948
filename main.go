// ABOUTME: Entry point for the radar sync CLI and servers
// ABOUTME: Routes to serve, tui, sync, status, login, logout, or devstore commands
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/presencehq/radar/cli"
	"github.com/presencehq/radar/config"
)

const version = "0.1.0"

func main() {
	// Load .env if present; missing file is fine
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "Show version and exit")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("radar version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	command := args[0]
	commandArgs := args[1:]

	var run func(*config.Config, []string) error
	switch command {
	case "serve":
		run = cli.ServeCommand
	case "tui":
		run = cli.TUICommand
	case "sync":
		run = cli.SyncCommand
	case "status":
		run = cli.StatusCommand
	case "login":
		run = cli.LoginCommand
	case "logout":
		run = cli.LogoutCommand
	case "devstore":
		run = cli.DevstoreCommand
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := run(cfg, commandArgs); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func printUsage() {
	fmt.Println("radar - offline-first competitive analysis sync")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  radar serve [-port 8080]        Run the local HTTP API with background sync")
	fmt.Println("  radar tui                       Interactive sync status view")
	fmt.Println("  radar sync                      Drain the queue and pull remote data once")
	fmt.Println("  radar status                    Show connectivity, queue, and cache state")
	fmt.Println("  radar login                     Configure user id and access token")
	fmt.Println("  radar logout                    Clear credentials, keep local data")
	fmt.Println("  radar devstore [-port 8090]     Run a local SQLite-backed remote store")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version                       Show version and exit")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RADAR_REMOTE_URL, RADAR_USER_ID, RADAR_TOKEN,")
	fmt.Println("  RADAR_GEMINI_API_KEY, RADAR_GEMINI_MODEL, RADAR_DATA_DIR")
}
