// ABOUTME: serve command running the API server with background sync
// ABOUTME: Starts connectivity monitoring, reconnect-triggered reconciliation, and the HTTP surface
package cli

import (
	"context"
	"flag"
	"log"

	"github.com/presencehq/radar/config"
	"github.com/presencehq/radar/web"
)

// ServeCommand runs the JSON API server until the process exits.
func ServeCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 8080, "API server port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := BuildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.StartMonitoring(ctx)

	// Reconcile any state queued before this session started.
	if app.Monitor.Check(ctx, app.Remote.HealthURL()) {
		go func() {
			if err := app.Engine.Sync(ctx); err != nil {
				log.Printf("startup sync failed: %v", err)
			}
		}()
	}

	server := web.NewServer(app.Session, app.Engine)
	return server.Start(*port)
}
