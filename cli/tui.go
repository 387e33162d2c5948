// ABOUTME: tui command launching the sync status terminal view
// ABOUTME: Runs connectivity monitoring alongside the bubbletea program
package cli

import (
	"context"

	"github.com/presencehq/radar/config"
	"github.com/presencehq/radar/tui"
)

// TUICommand runs the interactive sync status view.
func TUICommand(cfg *config.Config, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := BuildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.StartMonitoring(ctx)
	app.Monitor.Check(ctx, app.Remote.HealthURL())

	return tui.Run(app.Session, app.Engine, app.Monitor)
}
