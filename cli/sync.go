// ABOUTME: One-shot sync and status commands
// ABOUTME: Drains the queue, pulls remote truth, and reports the subsystem state
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/presencehq/radar/config"
	"github.com/presencehq/radar/models"
)

// SyncCommand performs a single drain+pull cycle.
func SyncCommand(cfg *config.Config, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app, err := BuildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	pending := app.Queue.Len()
	if !app.Monitor.Check(ctx, app.Remote.HealthURL()) {
		return fmt.Errorf("remote store is unreachable; %d action(s) remain queued", pending)
	}

	fmt.Printf("Syncing %d queued action(s)...\n", pending)
	if err := app.Engine.Sync(ctx); err != nil {
		return fmt.Errorf("sync incomplete: %w", err)
	}

	fmt.Printf("Sync complete. %d analyses, %d proposals in local cache.\n",
		len(app.Session.History()), len(app.Session.Proposals()))
	return nil
}

// StatusCommand prints the sync subsystem state.
func StatusCommand(cfg *config.Config, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := BuildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println("Radar Sync Status")
	fmt.Println("=================")
	fmt.Printf("Remote store: %s\n", cfg.RemoteURL)
	fmt.Printf("User:         %s\n", cfg.UserID)
	fmt.Printf("Device:       %s\n", cfg.DeviceID)

	if app.Monitor.Check(ctx, app.Remote.HealthURL()) {
		fmt.Println("Connectivity: online")
	} else {
		fmt.Println("Connectivity: offline")
	}

	actions := app.Queue.Snapshot()
	fmt.Printf("Queued:       %d action(s)\n", len(actions))
	for _, a := range actions {
		fmt.Printf("  - %s %s (queued %s)\n", a.Type, a.EntityID, a.EnqueuedAt.Local().Format("2006-01-02 15:04:05"))
	}

	pending := 0
	for _, item := range app.Session.History() {
		if item.Status == models.StatusPending {
			pending++
		}
	}
	fmt.Printf("Local cache:  %d analyses (%d pending), %d proposals\n",
		len(app.Session.History()), pending, len(app.Session.Proposals()))
	return nil
}
