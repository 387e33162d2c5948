// ABOUTME: devstore command running the local document store
// ABOUTME: Serves the remote store contract against a SQLite database for development
package cli

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/presencehq/radar/config"
	"github.com/presencehq/radar/remotestore"
)

// DevstoreCommand runs the development document store.
func DevstoreCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("devstore", flag.ContinueOnError)
	port := fs.Int("port", 8090, "document store port")
	dbPath := fs.String("db", filepath.Join(config.Dir(), "devstore.db"), "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := remotestore.OpenDatabase(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Printf("Document store database: %s", *dbPath)
	return remotestore.NewServer(db).Start(*port)
}
